package srv

import (
	"fmt"
	"github.com/jypelle/busboard/apimodel"
	"github.com/jypelle/busboard/internal/srv/provider"
	"github.com/jypelle/busboard/internal/srv/screen"
)

type Mode int64

const (
	WELCOME_MODE Mode = iota
	BUS_PRIMARY_MODE
	BUS_SECONDARY_MODE
	BLANK_MODE
)

const initialMode = BUS_PRIMARY_MODE

type modeTraits struct {
	token     apimodel.ModeToken
	layout    screen.Layout
	isBus     bool
	direction provider.Direction
}

func (m Mode) traits() modeTraits {
	switch m {
	case WELCOME_MODE:
		return modeTraits{token: apimodel.WelcomeModeToken, layout: screen.WELCOME_LAYOUT}
	case BUS_PRIMARY_MODE:
		return modeTraits{token: apimodel.BusModeToken, layout: screen.BUS_LAYOUT, isBus: true, direction: provider.PRIMARY_DIRECTION}
	case BUS_SECONDARY_MODE:
		return modeTraits{token: apimodel.BusOppositeModeToken, layout: screen.BUS_LAYOUT, isBus: true, direction: provider.SECONDARY_DIRECTION}
	case BLANK_MODE:
		return modeTraits{token: apimodel.BlankModeToken, layout: screen.BLANK_LAYOUT}
	}
	panic(fmt.Sprintf("unknown mode %d", m))
}

func (m Mode) Token() apimodel.ModeToken {
	return m.traits().token
}

func (m Mode) IsBus() bool {
	return m.traits().isBus
}

func (m Mode) String() string {
	return string(m.Token())
}

// ModeFromToken maps a wire token to its mode
func ModeFromToken(token apimodel.ModeToken) (Mode, bool) {
	for _, mode := range []Mode{WELCOME_MODE, BUS_PRIMARY_MODE, BUS_SECONDARY_MODE, BLANK_MODE} {
		if mode.Token() == token {
			return mode, true
		}
	}
	return BLANK_MODE, false
}
