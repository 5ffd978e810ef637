package util

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// captureLogs points the global logger at a buffer until the test ends.
func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	out, lvl, formatter := Logger.Out, Logger.Level, Logger.Formatter
	t.Cleanup(func() {
		Logger.SetOutput(out)
		Logger.SetLevel(lvl)
		Logger.SetFormatter(formatter)
	})

	var buf bytes.Buffer
	SetLogOutput(&buf)
	if err := SetLogLevel(level); err != nil {
		t.Fatalf("SetLogLevel(%q): %v", level, err)
	}
	return &buf
}

func TestSetLogLevel(t *testing.T) {
	captureLogs(t, "info")

	tests := []struct {
		level   string
		want    logrus.Level
		wantErr bool
	}{
		{"debug", logrus.DebugLevel, false},
		{"info", logrus.InfoLevel, false},
		{"warn", logrus.WarnLevel, false},
		{"warning", logrus.WarnLevel, false},
		{"error", logrus.ErrorLevel, false},
		{"verbose", logrus.ErrorLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := SetLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetLogLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
			if Logger.Level != tt.want {
				t.Errorf("level = %v, want %v", Logger.Level, tt.want)
			}
		})
	}
}

func TestQuietLevelSuppressesInfo(t *testing.T) {
	buf := captureLogs(t, "warn")

	Infof("imported %d container(s)", 2)
	Debugf("store opened")
	if buf.Len() != 0 {
		t.Errorf("expected nothing below warn, got %q", buf.String())
	}

	Warnf("redis %s unreachable", "localhost:6379")
	if !strings.Contains(buf.String(), "redis localhost:6379 unreachable") {
		t.Errorf("warning missing: %q", buf.String())
	}
}

func TestSetJSONFormat(t *testing.T) {
	buf := captureLogs(t, "debug")
	SetJSONFormat()

	WithJob("c0ffee", "scan").Infof("%d task(s)", 10)

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not a JSON line: %q: %v", buf.String(), err)
	}
	if line["job"] != "c0ffee" || line["kind"] != "scan" {
		t.Errorf("job fields = %v", line)
	}
	if line["msg"] != "10 task(s)" {
		t.Errorf("msg = %v", line["msg"])
	}
}

func TestScopedLoggers(t *testing.T) {
	tests := []struct {
		name  string
		entry *logrus.Entry
		key   string
		want  string
	}{
		{"device", WithDevice("10.20.3.4"), "device", "10.20.3.4"},
		{"operation", WithOperation("import topology"), "operation", "import topology"},
		{"field", WithField("addr", ":9100"), "addr", ":9100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Data[tt.key]; got != tt.want {
				t.Errorf("%s = %v, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestLevelWrappers(t *testing.T) {
	tests := []struct {
		name string
		log  func()
		want string
	}{
		{"debugf", func() { Debugf("publishing progress: %v", io.EOF) }, "level=debug"},
		{"infof", func() { Infof("imported %d device(s)", 20) }, "level=info"},
		{"warn", func() { Warn("previous scan still running") }, "level=warning"},
		{"warnf", func() { Warnf("could not load settings: %v", io.EOF) }, "level=warning"},
		{"errorf", func() { Errorf("metrics server: %v", io.EOF) }, "level=error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t, "debug")
			tt.log()
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q missing %q", buf.String(), tt.want)
			}
		})
	}
}
