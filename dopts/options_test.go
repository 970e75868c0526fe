package dopts

import "testing"

func TestClampWidthStretch(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.05, 0.2},
		{0.2, 0.2},
		{1.0, 1.0},
		{5.0, 5.0},
		{9.0, 5.0},
	}
	for _, tc := range cases {
		o := DisplayOptions{WidthStretch: tc.in}
		if got := o.ClampWidthStretch(); got != tc.want {
			t.Errorf("ClampWidthStretch(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatTitle(t *testing.T) {
	cases := []struct {
		format string
		want   string
	}{
		{"%f", "/tmp/pic.png"},
		{"%b", "pic.png"},
		{"%wx%h", "640x480"},
		{"[%D] %b", "[png] pic.png"},
		{"%x literal", "x literal"},
		{"trailing %", "trailing %"},
		{"no tokens here", "no tokens here"},
	}
	for _, tc := range cases {
		got := FormatTitle(tc.format, "/tmp/pic.png", "pic.png", 640, 480, "png")
		if got != tc.want {
			t.Errorf("FormatTitle(%q) = %q, want %q", tc.format, got, tc.want)
		}
	}
}
