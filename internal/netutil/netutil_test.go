package netutil

import (
	"strings"
	"testing"
)

func TestNormalizeIP(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare ipv4", "192.0.2.4", "192.0.2.4", true},
		{"ipv4 with port", "192.0.2.4:1234", "192.0.2.4", true},
		{"bare ipv6", "2001:db8::1", "2001:db8::1", true},
		{"ipv6 with port", "[2001:db8::1]:443", "2001:db8::1", true},
		{"ipv6 with zone", "fe80::1%eth0", "fe80::1", true},
		{"bracketed without port", "[::1]:port", "::1", true},
		{"garbage", "not an ip", "not an ip", false},
		{"empty", "", "", false},
		{"whitespace", "  10.0.0.1  ", "10.0.0.1", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeIP(tc.in)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("NormalizeIP(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestTruncateUserAgent(t *testing.T) {
	short := "curl/8.0"
	if got := TruncateUserAgent(short); got != short {
		t.Fatalf("short UA modified: %q", got)
	}

	long := strings.Repeat("ä", MaxUserAgentLength+10)
	got := TruncateUserAgent(long)
	if len([]rune(got)) != MaxUserAgentLength {
		t.Fatalf("expected %d runes, got %d", MaxUserAgentLength, len([]rune(got)))
	}
	for _, r := range got {
		if r != 'ä' {
			t.Fatalf("multi-byte rune split during truncation")
		}
	}
}
