package config

import (
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"os"
	"sync"
	"time"
)

const saveDelay = 10 * time.Second

// ServerState holds what must survive a restart. Saves are delayed and grouped.
type ServerState struct {
	serverStateConfig     ServerStateConfig
	lock                  sync.RWMutex
	backupTimer           *time.Timer
	completeStateFilename string
}

func NewServerState(completeStateFilename string) *ServerState {
	serverState := &ServerState{
		completeStateFilename: completeStateFilename,
	}

	rawConfig, err := os.ReadFile(completeStateFilename)
	if err == nil {
		if err = yaml.Unmarshal(rawConfig, &serverState.serverStateConfig); err != nil {
			logrus.Warnf("Unable to interpret state file, starting from scratch: %v", err)
			serverState.serverStateConfig = ServerStateConfig{}
		}
	} else {
		logrus.Infof("No state file yet")
	}

	return serverState
}

func (ss *ServerState) ApiStats() ApiStatsState {
	ss.lock.RLock()
	defer ss.lock.RUnlock()

	return ss.serverStateConfig.ApiStats
}

func (ss *ServerState) SetApiStats(apiStats ApiStatsState) {
	ss.lock.Lock()
	defer ss.lock.Unlock()

	if ss.serverStateConfig.ApiStats == apiStats {
		return
	}
	ss.serverStateConfig.ApiStats = apiStats
	ss.scheduleSave()
}

func (ss *ServerState) scheduleSave() {
	if ss.backupTimer == nil {
		ss.backupTimer = time.AfterFunc(saveDelay, func() {
			ss.lock.Lock()
			defer ss.lock.Unlock()
			ss.save()
		})
	} else {
		ss.backupTimer.Reset(saveDelay)
	}
}

func (ss *ServerState) save() {
	logrus.Debugf("Save state file: %s", ss.completeStateFilename)
	rawConfig, err := yaml.Marshal(&ss.serverStateConfig)
	if err != nil {
		logrus.Errorf("Unable to serialize state file: %v", err)
		return
	}
	if err = os.WriteFile(ss.completeStateFilename, rawConfig, 0660); err != nil {
		logrus.Errorf("Unable to save state file: %v", err)
	}
}

// FlushSave writes a pending save immediately
func (ss *ServerState) FlushSave() {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	if ss.backupTimer != nil {
		if ss.backupTimer.Stop() {
			ss.save()
		}
	}
}

type ServerStateConfig struct {
	ApiStats ApiStatsState `yaml:"api_stats"`
}

type ApiStatsState struct {
	Date      string `yaml:"date"`
	Success   int64  `yaml:"success"`
	Failed    int64  `yaml:"failed"`
	LastError string `yaml:"last_error"`
}
