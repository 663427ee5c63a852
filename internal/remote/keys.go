package remote

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/jypelle/busboard/apimodel"
)

type KeyMap struct {
	Bus         key.Binding
	BusOpposite key.Binding
	Welcome     key.Binding
	Blank       key.Binding
	Refresh     key.Binding
	Quit        key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Bus: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "bus"),
		),
		BusOpposite: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "bus opposite"),
		),
		Welcome: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "welcome"),
		),
		Blank: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "blank"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r", "enter"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("5", "q", "ctrl+c"),
			key.WithHelp("5/q", "exit"),
		),
	}
}

func (k KeyMap) modeBindings() []modeBinding {
	return []modeBinding{
		{k.Bus, apimodel.BusModeToken},
		{k.BusOpposite, apimodel.BusOppositeModeToken},
		{k.Welcome, apimodel.WelcomeModeToken},
		{k.Blank, apimodel.BlankModeToken},
	}
}

type modeBinding struct {
	binding   key.Binding
	modeToken apimodel.ModeToken
}
