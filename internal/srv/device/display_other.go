//go:build !amd64

package device

import (
	"github.com/sirupsen/logrus"
)

// Without a desktop window, simulated frames only show up in the logs
type simulationWindow struct {
	frameCount int
}

func (d *Display) startSimulation() {
	logrus.Infof("Simulated display, frames are only logged")
}

func (d *Display) invalidateSimulationWindow() {
	d.simulationWindow.frameCount++
	logrus.Debugf("Simulated display frame #%d", d.simulationWindow.frameCount)
}

func (d *Display) closeSimulationWindow() {
}
