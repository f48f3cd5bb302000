package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := map[string]string{
		"  PL  ":                 "PL",
		"<b>Pick</b> list":       "Pick list",
		"night\tshift\nteam":     "night shift team",
		"ops\x00desk":            "ops desk",
		"":                       "",
		"multi   space   prefix": "multi space prefix",
	}
	for in, want := range cases {
		if got := Text(in); got != want {
			t.Fatalf("Text(%q) = %q, want %q", in, got, want)
		}
	}
}
