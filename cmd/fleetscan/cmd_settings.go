package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/fleetscan/pkg/cli"
	"github.com/newtron-network/fleetscan/pkg/settings"
)

const validSettings = "db, drivers, redis, container"

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage persistent settings",
	Long: `Manage persistent settings stored in ~/.fleetscan/settings.json.

Settings provide defaults for global flags:
  - db_path:           Used when --db is not specified
  - drivers_path:      Used when --drivers is not specified
  - redis_addr:        Used when --redis is not specified
  - default_container: Used when --can is not specified

Examples:
  fleetscan settings show
  fleetscan settings set db /var/lib/fleetscan/fleet.db
  fleetscan settings set container 24
  fleetscan settings clear`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		fmt.Printf("Settings file: %s\n\n", settings.DefaultSettingsPath())

		t := cli.NewTable("SETTING", "VALUE")

		printSetting := func(name, value string) {
			if value == "" {
				value = "(not set)"
			}
			t.Row(name, value)
		}

		printSetting("db_path", s.DBPath)
		printSetting("drivers_path", s.DriversPath)
		printSetting("redis_addr", s.RedisAddr)
		container := ""
		if s.DefaultContainer != 0 {
			container = strconv.Itoa(s.DefaultContainer)
		}
		printSetting("default_container", container)

		t.Flush()
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Set a setting value",
	Long: `Set a persistent setting value.

Available settings:
  db        - SQLite database path (--db flag default)
  drivers   - Device driver profile file (--drivers flag default)
  redis     - Redis address for event publishing (--redis flag default)
  container - Default container number (--can flag default)

Examples:
  fleetscan settings set db /var/lib/fleetscan/fleet.db
  fleetscan settings set redis localhost:6379`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			s = &settings.Settings{}
		}

		if err := applySetting(s, args[0], args[1]); err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Printf("%s set to: %s\n", args[0], args[1])
		return nil
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <setting>",
	Short: "Get a setting value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}

		value, err := settingValue(s, args[0])
		if err != nil {
			return err
		}
		if value == "" {
			fmt.Println("(not set)")
		} else {
			fmt.Println(value)
		}
		return nil
	},
}

var settingsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := &settings.Settings{}
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println("All settings cleared.")
		return nil
	},
}

var settingsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show settings file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(settings.DefaultSettingsPath())
	},
}

func applySetting(s *settings.Settings, setting, value string) error {
	switch setting {
	case "db", "db_path":
		s.DBPath = value
	case "drivers", "drivers_path":
		s.DriversPath = value
	case "redis", "redis_addr":
		s.RedisAddr = value
	case "container", "default_container":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid container number: %s", value)
		}
		s.DefaultContainer = n
	default:
		return fmt.Errorf("unknown setting: %s (valid: %s)", setting, validSettings)
	}
	return nil
}

func settingValue(s *settings.Settings, setting string) (string, error) {
	switch setting {
	case "db", "db_path":
		return s.DBPath, nil
	case "drivers", "drivers_path":
		return s.DriversPath, nil
	case "redis", "redis_addr":
		return s.RedisAddr, nil
	case "container", "default_container":
		if s.DefaultContainer == 0 {
			return "", nil
		}
		return strconv.Itoa(s.DefaultContainer), nil
	default:
		return "", fmt.Errorf("unknown setting: %s (valid: %s)", setting, validSettings)
	}
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsClearCmd)
	settingsCmd.AddCommand(settingsPathCmd)
}
