package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSettings_Defaults(t *testing.T) {
	s := &Settings{}

	if got := s.GetDBPath(); !strings.HasSuffix(got, filepath.Join(".fleetscan", "fleetscan.db")) {
		t.Errorf("GetDBPath() default = %q, want suffix .fleetscan/fleetscan.db", got)
	}
	if s.RedisAddr != "" {
		t.Errorf("RedisAddr should be empty, got %q", s.RedisAddr)
	}
	if s.DefaultContainer != 0 {
		t.Errorf("DefaultContainer should be zero, got %d", s.DefaultContainer)
	}
}

func TestSettings_DBPathOverride(t *testing.T) {
	s := &Settings{DBPath: "/var/lib/fleetscan.db"}
	if got := s.GetDBPath(); got != "/var/lib/fleetscan.db" {
		t.Errorf("GetDBPath() = %q, want %q", got, "/var/lib/fleetscan.db")
	}
}

func TestSettings_Clear(t *testing.T) {
	s := &Settings{
		DBPath:           "/path",
		DriversPath:      "/drivers.yaml",
		RedisAddr:        "127.0.0.1:6379",
		DefaultContainer: 24,
	}

	s.Clear()

	if *s != (Settings{}) {
		t.Errorf("Clear() should reset all fields, got %+v", *s)
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	original := &Settings{
		DBPath:           "/data/fleet.db",
		RedisAddr:        "10.0.0.5:6379",
		DefaultContainer: 7,
	}
	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}
	if *loaded != *original {
		t.Errorf("LoadFrom() = %+v, want %+v", *loaded, *original)
	}
}

func TestSettings_LoadMissingFile(t *testing.T) {
	s, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadFrom() on missing file should not fail: %v", err)
	}
	if *s != (Settings{}) {
		t.Errorf("missing file should yield empty settings, got %+v", *s)
	}
}

func TestSettings_LoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() should fail on invalid JSON")
	}
}
