package scraper

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Backend Engineer", "Backend Engineer"},
		{"inner spaces", "Senior   Backend   Engineer", "Senior Backend Engineer"},
		{"surrounding space", "  Staff Engineer \t", "Staff Engineer"},
		{"single newline is a space", "Go\nEngineer", "Go Engineer"},
		{"tabs", "Go\t\tEngineer", "Go Engineer"},
		{"crlf", "Go\r\nEngineer", "Go Engineer"},
		{"paragraph break kept", "About us\n\nThe role", "About us\n\nThe role"},
		{"triple newline collapses", "About us\n\n\nThe role", "About us\n\nThe role"},
		{"many newlines collapse", "About us\n\n\n\n\n\nThe role", "About us\n\nThe role"},
		{"spaced paragraph break", "About us\n \n \nThe role", "About us\n\nThe role"},
		{"show more stripped", "Great role Show more", "Great role"},
		{"show less stripped", "Great role Show less tail", "Great role tail"},
		{"see more stripped", "See more\nGreat role", "Great role"},
		{"see less stripped", "Great See less role", "Great role"},
		{"token inside word kept", "Showcase more details", "Showcase more details"},
		{"token suffix kept", "Show moreover details", "Show moreover details"},
		{"combined noise", "Senior  Engineer\n\n\n\nShow more", "Senior Engineer"},
		{"boilerplate-only paragraph dropped", "Intro\n\nShow more\n\nOutro", "Intro\n\nOutro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Senior  Engineer\n\n\n\nShow more",
		"About the role\n\n\nWe are hiring.\nApply now.   ",
		"Show more Show less",
		"Plain text already clean",
		"Para one\n\nPara two\n\nPara three",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}
