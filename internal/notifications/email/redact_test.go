package email

import "testing"

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"client address", "john@x.com", "j***@x.com"},
		{"single char local part", "a@studio.test", "a***@studio.test"},
		{"empty", "", ""},
		{"no at sign", "front-desk", "***"},
		{"empty local part", "@studio.test", "***@studio.test"},
		{"first at splits", "user@sub@studio.test", "u***@sub@studio.test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactEmail(tt.input); got != tt.want {
				t.Errorf("RedactEmail(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
