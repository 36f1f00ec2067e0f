package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{" es ", "es"},
		{"eng", "en"},
		{"fra", "fr"},
		{"fre", "fr"},
		{"ger", "de"},
		{"chi", "zh"},
		{"dut", "nl"},
		{"english", "en"},
		{"Français", "fr"},
		{"Mandarin", "zh"},
		{"pt-BR", "pt-BR"},
		{"pt_br", "pt-BR"},
		{"en-gb", "en-GB"},
		{"sw", "sw"},
		{"", ""},
		{"   ", ""},
		{"not a language", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Fatalf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "English"},
		{"eng", "English"},
		{"german", "German"},
		{"pt-BR", "Brazilian Portuguese"},
		{"sw", "Swahili"},
		{"", "Unknown"},
		{"not a language", "NOT A LANGUAGE"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DisplayName(tt.input); got != tt.expected {
				t.Fatalf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	if got := Label("spa"); got != "Spanish (es)" {
		t.Fatalf("Label(spa) = %q", got)
	}
	if got := Label("???"); got != "???" {
		t.Fatalf("Label(???) = %q", got)
	}
}
