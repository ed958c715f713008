package utils

import "testing"

func TestNormalizeWebsite(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.istanbul.com/", "https://istanbul.com"},
		{"HTTP://WWW.Example.COM/path/", "http://example.com/path"},
		{"istanbul.com", "https://istanbul.com"},
		{"  https://istanbul.com  ", "https://istanbul.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeWebsite(tt.in); got != tt.want {
			t.Errorf("NormalizeWebsite(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.istanbul.com/hagia-sophia", "istanbul.com"},
		{"http://en.wikipedia.org/wiki/Hagia_Sophia", "en.wikipedia.org"},
		{"istanbul.com:8080/page", "istanbul.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExtractDomain(tt.in); got != tt.want {
			t.Errorf("ExtractDomain(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
