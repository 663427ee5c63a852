package apimodel

import "testing"

func TestParseModeToken(t *testing.T) {
	tests := []struct {
		input string
		want  ModeToken
		ok    bool
	}{
		{"welcome", WelcomeModeToken, true},
		{"bus", BusModeToken, true},
		{"bus_opposite", BusOppositeModeToken, true},
		{"blank", BlankModeToken, true},
		{"Bus", "", false},
		{" bus", "", false},
		{"bus_", "", false},
		{"", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := ParseModeToken(tc.input)
			if got != tc.want || ok != tc.ok {
				t.Errorf("ParseModeToken(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
			}
		})
	}
}
