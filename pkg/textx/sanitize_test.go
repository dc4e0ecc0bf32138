package textx

import (
	"errors"
	"testing"
)

func TestNormalizeScript(t *testing.T) {
	in := "\ufeffSELECT 1;\r\nSELECT\x00 2;\rSELECT\t3\x7f;"
	got := NormalizeScript(in)
	want := "SELECT 1;\nSELECT 2;\nSELECT\t3;"
	if got != want {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestFirstLine(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"\n\n  select * from users  \nwhere 1=1", 0, "select * from users"},
		{"select * from very_long_table_name", 10, "select * f…"},
		{"   \n ", 5, ""},
	}
	for _, c := range cases {
		if got := FirstLine(c.in, c.max); got != c.want {
			t.Fatalf("FirstLine(%q, %d) = %q, want %q", c.in, c.max, got, c.want)
		}
	}
}

func TestRequireText(t *testing.T) {
	if err := RequireText([]byte("SELECT * FROM users;\n")); err != nil {
		t.Fatalf("sql rejected: %v", err)
	}
	if err := RequireText(nil); err != nil {
		t.Fatalf("empty rejected: %v", err)
	}
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	if err := RequireText(png); !errors.Is(err, ErrNotText) {
		t.Fatalf("expected ErrNotText, got %v", err)
	}
}
