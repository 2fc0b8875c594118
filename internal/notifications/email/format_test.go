package email

import (
	"strings"
	"testing"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2024-03-10", "Sunday, March 10, 2024"},
		{"2024-01-01", "Monday, January 1, 2024"},
		{"2024-02-29", "Thursday, February 29, 2024"},
		{"not-a-date", "not-a-date"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.in); got != tt.want {
			t.Errorf("FormatDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"14:00", "2:00 PM"},
		{"00:05", "12:05 AM"},
		{"12:30", "12:30 PM"},
		{"09:15", "9:15 AM"},
		{"23:59", "11:59 PM"},
		{"", ""},
		{"noon", "noon"},
		{"25:00", "25:00"},
	}
	for _, tt := range tests {
		if got := FormatTime(tt.in); got != tt.want {
			t.Errorf("FormatTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	short := "Tight left trapezius."
	if got := truncateRunes(short, 200); got != short {
		t.Errorf("short input changed: %q", got)
	}

	exact := strings.Repeat("a", 200)
	if got := truncateRunes(exact, 200); got != exact {
		t.Error("input of exactly the limit must not be cut")
	}

	long := strings.Repeat("é", 250)
	got := truncateRunes(long, 200)
	if want := strings.Repeat("é", 200) + "..."; got != want {
		t.Errorf("expected 200 runes plus ellipsis, got %d runes", len([]rune(got)))
	}
}

func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tags become spaces", "<p>Hi&nbsp;Ann,</p><p>See you</p>", "Hi Ann, See you"},
		{"entities decoded", "<b>Tom &amp; Jerry &lt;3&gt; &quot;ok&quot;</b>", `Tom & Jerry <3> "ok"`},
		{"style and script dropped", "<style>p{color:red}</style><p>Body</p><script>alert(1)</script>", "Body"},
		{"whitespace collapsed", "<div>\n   a \t\n b  </div>", "a b"},
		{"self closing", "line one<br/>line two", "line one line two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTMLToText(tt.in); got != tt.want {
				t.Errorf("HTMLToText() = %q, want %q", got, tt.want)
			}
		})
	}
}
