package event

import (
	"github.com/jypelle/busboard/apimodel"
)

// Buttons
type ButtonId int

const (
	KEY1_BUTTON ButtonId = iota
	KEY2_BUTTON
	KEY3_BUTTON
	KEY4_BUTTON
)

func (b ButtonId) String() string {
	switch b {
	case KEY1_BUTTON:
		return "KEY1"
	case KEY2_BUTTON:
		return "KEY2"
	case KEY3_BUTTON:
		return "KEY3"
	case KEY4_BUTTON:
		return "KEY4"
	}
	return "KEY?"
}

// ModeToken is the mode a button requests
func (b ButtonId) ModeToken() apimodel.ModeToken {
	switch b {
	case KEY1_BUTTON:
		return apimodel.BusModeToken
	case KEY2_BUTTON:
		return apimodel.BusOppositeModeToken
	case KEY3_BUTTON:
		return apimodel.WelcomeModeToken
	}
	return apimodel.BlankModeToken
}

type ButtonEvent struct {
	ButtonId ButtonId
}

// Api
type ApiEvent struct {
	Result chan error
	Data   interface{}
}

type ApiEventModeData struct {
	ModeToken apimodel.ModeToken
}

type ApiEventRefreshData struct{}
