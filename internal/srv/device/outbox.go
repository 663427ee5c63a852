package device

import (
	"encoding/json"
	"github.com/jypelle/busboard/apimodel"
	"github.com/jypelle/busboard/internal/tool"
	"github.com/sirupsen/logrus"
	"sync"
)

// Outbox publishes the status snapshot of the last display cycle
type Outbox struct {
	lock     sync.RWMutex
	filename string
	last     *apimodel.Status
}

func NewOutbox(filename string) *Outbox {
	return &Outbox{filename: filename}
}

// Publish never fails, a status that cannot be written is only logged
func (d *Outbox) Publish(status apimodel.Status) {
	d.lock.Lock()
	d.last = &status
	d.lock.Unlock()

	raw, err := json.Marshal(status)
	if err != nil {
		logrus.Debugf("Unable to serialize status: %v", err)
		return
	}
	if err = tool.WriteFileReplace(d.filename, raw, 0644); err != nil {
		logrus.Debugf("Unable to write status file %s: %v", d.filename, err)
	}
}

// Last returns the last published status, false before the first cycle
func (d *Outbox) Last() (apimodel.Status, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	if d.last == nil {
		return apimodel.Status{}, false
	}
	return *d.last, true
}
