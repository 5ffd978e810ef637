package health

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/newtron-network/fleetscan/pkg/util"
)

// AnyVendor matches every vendor in an error pattern.
const AnyVendor = "*"

// UnknownError is the catch-all message.
const UnknownError = "Unknown error."

// Pattern maps raw error codes of one vendor to a message.
type Pattern struct {
	Vendor  string `json:"vendor" yaml:"vendor"`
	Pattern string `json:"pattern" yaml:"pattern"`
	Message string `json:"message" yaml:"message"`

	re *regexp.Regexp
}

func (p *Pattern) matches(vendor, code string) bool {
	if p.Vendor != AnyVendor && !strings.EqualFold(p.Vendor, vendor) {
		return false
	}
	return p.re.MatchString(code)
}

func (p *Pattern) catchAll() bool {
	return p.Vendor == AnyVendor && p.re.MatchString("") && p.re.MatchString("\x00no such code\x00")
}

// ErrorTable is an ordered lookup; the first matching pattern wins.
type ErrorTable struct {
	patterns []Pattern
}

// NewErrorTable compiles patterns in order. The table must contain a
// catch-all (any vendor, matches every code).
func NewErrorTable(patterns []Pattern) (*ErrorTable, error) {
	t := &ErrorTable{patterns: make([]Pattern, len(patterns))}
	v := &util.ValidationBuilder{}
	hasCatchAll := false

	for i, p := range patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			v.AddErrorf("error pattern %d (%s): %v", i, p.Pattern, err)
			continue
		}
		p.re = re
		if p.Vendor == "" {
			p.Vendor = AnyVendor
		}
		t.patterns[i] = p
		if p.catchAll() {
			hasCatchAll = true
		}
	}
	if !v.HasErrors() && !hasCatchAll {
		v.AddError(fmt.Sprintf("error table needs a catch-all pattern (vendor %q, pattern \".*\")", AnyVendor))
	}
	if err := v.Build(); err != nil {
		return nil, err
	}
	return t, nil
}

// DefaultPatterns is the built-in table.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Vendor: "antminer", Pattern: `FAN_LOST|fan.*(lost|fail)`, Message: "Fan failure."},
		{Vendor: "antminer", Pattern: `TEMP_TOO_HIGH|over ?heat`, Message: "Temperature too high."},
		{Vendor: "antminer", Pattern: `POWER_LOST|PSU`, Message: "Power supply failure."},
		{Vendor: "antminer", Pattern: `NETWORK_DISCONNECTED`, Message: "Network disconnected."},
		{Vendor: "antminer", Pattern: `(CHAIN|ASIC)_?(NOT_FOUND|LOST)|chain.*missing`, Message: "Hashboard not detected."},
		{Vendor: "whatsminer", Pattern: `^1[0-9]{2}$`, Message: "Fan speed error."},
		{Vendor: "whatsminer", Pattern: `^2[0-9]{2}$`, Message: "Power supply error."},
		{Vendor: "whatsminer", Pattern: `^3[0-9]{2}$`, Message: "Temperature error."},
		{Vendor: "whatsminer", Pattern: `^5[0-9]{2}$`, Message: "Hashboard error."},
		{Vendor: AnyVendor, Pattern: `.*`, Message: UnknownError},
	}
}

// DefaultErrorTable returns the compiled built-in table.
func DefaultErrorTable() *ErrorTable {
	t, err := NewErrorTable(DefaultPatterns())
	if err != nil {
		panic(err)
	}
	return t
}

// Translate returns the message of the first pattern matching code.
func (t *ErrorTable) Translate(vendor, code string) string {
	for i := range t.patterns {
		if t.patterns[i].matches(vendor, code) {
			return t.patterns[i].Message
		}
	}
	return UnknownError
}

// TranslateAll translates every code, preserving order.
func (t *ErrorTable) TranslateAll(vendor string, codes []string) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		out = append(out, t.Translate(vendor, c))
	}
	return out
}

// Patterns returns a copy of the table in lookup order.
func (t *ErrorTable) Patterns() []Pattern {
	out := make([]Pattern, len(t.patterns))
	copy(out, t.patterns)
	return out
}
