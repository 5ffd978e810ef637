// Package cli provides shared formatting helpers for the fleetscan CLI.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/newtron-network/fleetscan/pkg/model"
)

// colorEnabled is false when NO_COLOR env var is set (per no-color.org).
var colorEnabled = os.Getenv("NO_COLOR") == ""

// Green wraps s in ANSI green. Returns s unchanged when NO_COLOR is set.
func Green(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[32m" + s + "\033[0m"
}

// Yellow wraps s in ANSI yellow. Returns s unchanged when NO_COLOR is set.
func Yellow(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[33m" + s + "\033[0m"
}

// Red wraps s in ANSI red. Returns s unchanged when NO_COLOR is set.
func Red(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[31m" + s + "\033[0m"
}

// Bold wraps s in ANSI bold. Returns s unchanged when NO_COLOR is set.
func Bold(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[1m" + s + "\033[0m"
}

// Dim wraps s in ANSI dim. Returns s unchanged when NO_COLOR is set.
func Dim(s string) string {
	if !colorEnabled {
		return s
	}
	return "\033[2m" + s + "\033[0m"
}

// Status colors a health status: ok green, warning yellow, critical red.
func Status(s model.HealthStatus) string {
	switch s {
	case model.StatusOK:
		return Green(string(s))
	case model.StatusWarning:
		return Yellow(string(s))
	case model.StatusCritical:
		return Red(string(s))
	}
	return Dim(string(s))
}

// ProgressBar renders "[#####     ]  5/10" with the given bar width.
func ProgressBar(completed, total, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := width
	if total > 0 {
		filled = completed * width / total
	}
	if filled > width {
		filled = width
	}
	digits := len(fmt.Sprint(total))
	return fmt.Sprintf("[%s%s] %*d/%d", strings.Repeat("#", filled), strings.Repeat(" ", width-filled), digits, completed, total)
}

// Float formats an optional reading with the given precision, or "-".
func Float(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, *v)
}
