package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/fleetscan/pkg/cli"
	"github.com/newtron-network/fleetscan/pkg/store"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the runtime configuration",
	Long: `Show or change the runtime configuration stored in the database.

Keys:
  refreshRate        - seconds between watch scans
  maxConnections     - device sessions in flight (0 = unbounded)
  connectionTimeout  - seconds to establish a device session
  readTimeout        - seconds for a single device command
  hashrateThreshold  - fraction of nameplate below which errors are queried

Examples:
  fleetscan config show
  fleetscan config set maxConnections 200`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		cfg, err := st.LoadConfig(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cfg)
		}

		t := cli.NewTable("KEY", "VALUE")
		t.Row("refreshRate", strconv.Itoa(cfg.RefreshRate))
		t.Row("maxConnections", strconv.Itoa(cfg.MaxConnections))
		t.Row("connectionTimeout", strconv.Itoa(cfg.ConnectionTimeout))
		t.Row("readTimeout", strconv.Itoa(cfg.ReadTimeout))
		t.Row("hashrateThreshold", strconv.FormatFloat(cfg.HashrateThreshold, 'f', -1, 64))
		t.Flush()
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		cfg, err := st.LoadConfig(cmd.Context())
		if err != nil {
			return err
		}
		if err := setConfigValue(&cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := st.SaveConfig(cmd.Context(), cfg); err != nil {
			return err
		}
		fmt.Printf("%s set to %s\n", args[0], args[1])
		return nil
	},
}

// setConfigValue parses value into the field named key. Range checks are
// left to Config.Validate.
func setConfigValue(cfg *store.Config, key, value string) error {
	if key == "hashrateThreshold" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid number %q", key, value)
		}
		cfg.HashrateThreshold = f
		return nil
	}

	var field *int
	switch key {
	case "refreshRate":
		field = &cfg.RefreshRate
	case "maxConnections":
		field = &cfg.MaxConnections
	case "connectionTimeout":
		field = &cfg.ConnectionTimeout
	case "readTimeout":
		field = &cfg.ReadTimeout
	default:
		return fmt.Errorf("unknown config key: %s (valid: refreshRate, maxConnections, connectionTimeout, readTimeout, hashrateThreshold)", key)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, value)
	}
	*field = n
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
