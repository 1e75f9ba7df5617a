package ui

import (
	"testing"
	"time"
)

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "-"},
		{67123.5, "$67,123.50"},
		{1234.0, "$1,234.00"},
		{152.3, "$152.30"},
		{1.5, "$1.50"},
		{0.4523, "$0.4523"},
		{0.00054321, "$0.000543"},
	}
	for _, c := range cases {
		if got := FormatPrice(c.in); got != c.want {
			t.Errorf("FormatPrice(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestGroupThousands(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
	}
	for _, c := range cases {
		if got := groupThousands(c.in); got != c.want {
			t.Errorf("groupThousands(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPadOrTrunc(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"abc", 5, "abc  "},
		{"abcdef", 4, "abcd"},
		{"", 3, "   "},
		{"abc", 0, ""},
		// Multi-byte text must be cut on rune boundaries, not bytes.
		{"héllo wörld", 5, "héllo"},
		{"né", 4, "né  "},
	}
	for _, c := range cases {
		if got := padOrTrunc(c.in, c.width); got != c.want {
			t.Errorf("padOrTrunc(%q, %d) = %q, want %q", c.in, c.width, got, c.want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, ""},
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m ago"},
		{now.Add(-3 * time.Hour), "3h ago"},
		{now.Add(-48 * time.Hour), "2d ago"},
		{now.Add(-30 * 24 * time.Hour), "2026-07-31"},
	}
	for _, c := range cases {
		if got := FormatAge(c.t, now); got != c.want {
			t.Errorf("FormatAge(%v) = %q, want %q", c.t, got, c.want)
		}
	}
}
