package ui

import "testing"

func TestDetectTheme(t *testing.T) {
	t.Setenv("COLORFGBG", "15;0")
	if !DetectTheme().IsDark {
		t.Fatalf("expected dark theme for a black background")
	}

	t.Setenv("COLORFGBG", "0;15")
	if DetectTheme().IsDark {
		t.Fatalf("expected light theme for a white background")
	}

	t.Setenv("COLORFGBG", "")
	if DetectTheme().IsDark {
		t.Fatalf("expected light theme when COLORFGBG is unset")
	}
}

func TestThemeByName(t *testing.T) {
	t.Setenv("COLORFGBG", "")
	if !ThemeByName("Dark").IsDark {
		t.Errorf("ThemeByName(Dark) should be dark")
	}
	if ThemeByName("light").IsDark {
		t.Errorf("ThemeByName(light) should be light")
	}
	if ThemeByName("auto").IsDark {
		t.Errorf("ThemeByName(auto) should detect light without COLORFGBG")
	}
}
