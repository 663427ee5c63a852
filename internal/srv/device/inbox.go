package device

import (
	"github.com/jypelle/busboard/apimodel"
	"github.com/sirupsen/logrus"
	"os"
	"strings"
)

// Inbox is the command file written by the remote control.
// A command is consumed at most once: the file is removed right after reading.
type Inbox struct {
	filename string
}

func NewInbox(filename string) *Inbox {
	return &Inbox{filename: filename}
}

func (d *Inbox) Poll() (apimodel.ModeToken, bool) {
	raw, err := os.ReadFile(d.filename)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.Debugf("Unable to read command file %s: %v", d.filename, err)
		}
		return "", false
	}
	if err = os.Remove(d.filename); err != nil {
		logrus.Debugf("Unable to remove command file %s: %v", d.filename, err)
	}

	command := strings.TrimSpace(string(raw))
	modeToken, ok := apimodel.ParseModeToken(command)
	if !ok {
		logrus.Debugf("Ignore unknown command %q", command)
		return "", false
	}
	logrus.Infof("Remote command: %s", modeToken)
	return modeToken, true
}
