package server

import "testing"

func TestNormalizeAddr(t *testing.T) {
	cases := map[string]string{
		"":               ":8080",
		"9000":           ":9000",
		":9000":          ":9000",
		" 9000 ":         ":9000",
		"127.0.0.1:9000": "127.0.0.1:9000",
	}
	for in, want := range cases {
		if got := normalizeAddr(in); got != want {
			t.Fatalf("normalizeAddr(%q)=%q, want %q", in, got, want)
		}
	}
}
