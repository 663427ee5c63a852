package remote

import (
	"encoding/json"
	"github.com/jypelle/busboard/apimodel"
	"github.com/jypelle/busboard/internal/tool"
	"os"
)

// ReadStatus loads the status file published by the server
func ReadStatus(filename string) (*apimodel.Status, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var status apimodel.Status
	if err = json.Unmarshal(raw, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SendCommand drops a mode token in the command file, the server consumes it on its next tick.
// The file appears whole so the server never reads half a token.
func SendCommand(filename string, modeToken apimodel.ModeToken) error {
	return tool.WriteFileReplace(filename, []byte(modeToken), 0666)
}
