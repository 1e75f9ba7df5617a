package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
)

// groupThousands renders n with a comma every three digits, for the whole
// part of large prices.
func groupThousands(n int) string {
	digits := strconv.Itoa(n)
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := 0; i < len(digits); i++ {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	return string(out)
}

// FormatPrice formats a coin price in dollars. Sub-dollar coins keep enough
// decimals to stay meaningful; zero renders as "-".
func FormatPrice(p float64) string {
	switch {
	case p == 0:
		return "-"
	case p >= 1000:
		whole := int(p)
		cents := int((p - float64(whole)) * 100)
		return fmt.Sprintf("$%s.%02d", groupThousands(whole), cents)
	case p >= 1:
		return fmt.Sprintf("$%.2f", p)
	case p >= 0.01:
		return fmt.Sprintf("$%.4f", p)
	default:
		return fmt.Sprintf("$%.6f", p)
	}
}

// FormatAge renders how long ago a timestamp was, for news bylines. A zero
// time renders as "".
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// padOrTrunc fits s to exactly width terminal cells, truncating or padding
// with spaces. Cell-aware, so multi-byte text in headers is never split
// mid-rune.
func padOrTrunc(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = truncate.String(s, uint(width))
	if w := ansi.PrintableRuneWidth(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}
