package utils

import (
	"testing"
	"time"
)

func TestStringToDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", time.Minute},
		{"3600", time.Hour},
		{"90s", 90 * time.Second},
		{"1h30m", 90 * time.Minute},
		{"garbage", time.Minute},
	}
	for _, c := range cases {
		if got := StringToDuration(c.in, time.Minute); got != c.want {
			t.Errorf("StringToDuration(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestStringToInt(t *testing.T) {
	if got := StringToInt(" 7 ", 2); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := StringToInt("x", 2); got != 2 {
		t.Errorf("expected fallback 2, got %d", got)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("AUTOREPLY_TEST_B", "second")
	if got := GetEnv("def", "AUTOREPLY_TEST_A", "AUTOREPLY_TEST_B"); got != "second" {
		t.Errorf("expected second, got %s", got)
	}
	if got := GetEnv("def", "AUTOREPLY_TEST_A"); got != "def" {
		t.Errorf("expected def, got %s", got)
	}
}
