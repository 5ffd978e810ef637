package sshdriver

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"

	"github.com/newtron-network/fleetscan/pkg/model"
)

//go:embed profiles.yaml
var defaultProfiles []byte

// Read names.
const (
	ReadModel       = "model"
	ReadMAC         = "mac"
	ReadHashrate    = "hashrate"
	ReadTemperature = "temperature"
	ReadFans        = "fans"
	ReadUptime      = "uptime"
	ReadPools       = "pools"
	ReadSleep       = "sleep"
	ReadLocate      = "locate"
	ReadPower       = "power"
	ReadNameplate   = "nameplate"
	ReadProfile     = "profile"
	ReadErrors      = "errors"
	ReadLogs        = "logs"
)

// Write names.
const (
	WriteSetPools   = "set_pools"
	WriteSetProfile = "set_profile"
	WriteSetSleep   = "set_sleep"
	WriteSetLocate  = "set_locate"
	WriteReboot     = "reboot"
)

// Query is one read: a remote command and an optional jq expression
// applied to its JSON output.
type Query struct {
	Command string `yaml:"command"`
	JQ      string `yaml:"jq,omitempty"`

	code *gojq.Code
}

// Profile describes how to drive one vendor's firmware over SSH.
type Profile struct {
	Vendor string            `yaml:"vendor"`
	Banner string            `yaml:"banner"`
	Reads  map[string]*Query `yaml:"reads"`
	Writes map[string]string `yaml:"writes"`

	banner *regexp.Regexp
}

// ProfileSet is an ordered list of profiles; the first banner match wins.
type ProfileSet struct {
	Profiles []*Profile `yaml:"profiles"`
}

// DefaultProfiles returns the embedded profile set.
func DefaultProfiles() (*ProfileSet, error) {
	return ParseProfiles(defaultProfiles)
}

// LoadProfiles reads a profile set from path, or the embedded set when
// path is empty.
func LoadProfiles(path string) (*ProfileSet, error) {
	if path == "" {
		return DefaultProfiles()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading driver profiles: %w", err)
	}
	return ParseProfiles(data)
}

// ParseProfiles parses and compiles a YAML profile set.
func ParseProfiles(data []byte) (*ProfileSet, error) {
	var set ProfileSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parsing driver profiles: %w", err)
	}
	if len(set.Profiles) == 0 {
		return nil, fmt.Errorf("driver profiles: no profiles defined")
	}
	for _, p := range set.Profiles {
		if err := p.compile(); err != nil {
			return nil, err
		}
	}
	return &set, nil
}

func (p *Profile) compile() error {
	if p.Vendor == "" {
		return fmt.Errorf("driver profile: vendor is required")
	}
	re, err := regexp.Compile(p.Banner)
	if err != nil {
		return fmt.Errorf("profile %s: banner: %w", p.Vendor, err)
	}
	p.banner = re

	for name, q := range p.Reads {
		if q == nil || q.Command == "" {
			return fmt.Errorf("profile %s: read %s has no command", p.Vendor, name)
		}
		if q.JQ == "" {
			continue
		}
		parsed, err := gojq.Parse(q.JQ)
		if err != nil {
			return fmt.Errorf("profile %s: read %s: %w", p.Vendor, name, err)
		}
		code, err := gojq.Compile(parsed)
		if err != nil {
			return fmt.Errorf("profile %s: read %s: %w", p.Vendor, name, err)
		}
		q.code = code
	}
	return nil
}

// Match returns the first profile whose banner pattern matches the SSH
// identification line, or nil.
func (s *ProfileSet) Match(banner string) *Profile {
	for _, p := range s.Profiles {
		if p.banner.MatchString(banner) {
			return p
		}
	}
	return nil
}

// Extract applies the query to raw command output. Without a jq
// expression the trimmed output is returned as a string.
func (q *Query) Extract(output string) (interface{}, error) {
	output = strings.TrimSpace(strings.TrimRight(output, "\x00"))
	if q.code == nil {
		return output, nil
	}

	var input interface{}
	if err := json.Unmarshal([]byte(output), &input); err != nil {
		return nil, fmt.Errorf("output is not JSON: %w", err)
	}

	iter := q.code.Run(input)
	v, ok := iter.Next()
	if !ok {
		return nil, fmt.Errorf("jq %q produced no value", q.JQ)
	}
	if err, isErr := v.(error); isErr {
		return nil, fmt.Errorf("jq %q: %w", q.JQ, err)
	}
	if v == nil {
		return nil, fmt.Errorf("jq %q produced null", q.JQ)
	}
	return v, nil
}

// RenderWrite expands placeholders in a write template.
func RenderWrite(tmpl string, pools []model.Pool, profile string, enabled bool) (string, error) {
	poolsJSON := "[]"
	if pools != nil {
		data, err := json.Marshal(pools)
		if err != nil {
			return "", err
		}
		poolsJSON = strings.ReplaceAll(string(data), "'", `'\''`)
	}
	num := "0"
	if enabled {
		num = "1"
	}
	r := strings.NewReplacer(
		"{pools_json}", poolsJSON,
		"{profile}", profile,
		"{enabled}", strconv.FormatBool(enabled),
		"{enabled_num}", num,
	)
	return r.Replace(tmpl), nil
}

func asFloat(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func asString(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(x), nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}

func asBool(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case float64:
		return x != 0, nil
	case int:
		return x != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "1", "true", "on", "yes", "enabled":
			return true, nil
		case "0", "false", "off", "no", "disabled", "":
			return false, nil
		}
		return false, fmt.Errorf("cannot interpret %q as boolean", x)
	}
	return false, fmt.Errorf("expected boolean, got %T", v)
}

func asInts(v interface{}) ([]int, error) {
	list, ok := v.([]interface{})
	if !ok {
		f, err := asFloat(v)
		if err != nil {
			return nil, fmt.Errorf("expected list of numbers, got %T", v)
		}
		return []int{int(f)}, nil
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		f, err := asFloat(item)
		if err != nil {
			return nil, err
		}
		out = append(out, int(f))
	}
	return out, nil
}

// asStrings accepts a JSON list or newline-separated raw output.
func asStrings(v interface{}) ([]string, error) {
	switch x := v.(type) {
	case string:
		var out []string
		for _, line := range strings.Split(x, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out, nil
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, err := asString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected list of strings, got %T", v)
}

func asPools(v interface{}) ([]model.Pool, error) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected list of pools, got %T", v)
	}
	out := make([]model.Pool, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected pool object, got %T", item)
		}
		var p model.Pool
		p.URL, _ = m["url"].(string)
		p.Username, _ = m["username"].(string)
		p.Password, _ = m["password"].(string)
		out = append(out, p)
	}
	return out, nil
}
