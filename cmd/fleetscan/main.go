// Fleetscan - mining fleet orchestration tool
//
// Scans and controls the miners of a container fleet. Devices are
// arranged container -> rack -> (row, column); jobs fan out one task per
// device and stream results as they arrive.
//
// Examples:
//
//	fleetscan topology import fleet.yaml
//	fleetscan scan --can 24
//	fleetscan reboot 10.24.0.1-20
//	fleetscan pool 10.24.0.1 10.24.0.2 --template main
//	fleetscan watch --can 24 --metrics-addr :9100
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/fleetscan/pkg/cli"
	"github.com/newtron-network/fleetscan/pkg/settings"
	"github.com/newtron-network/fleetscan/pkg/util"
	"github.com/newtron-network/fleetscan/pkg/version"
)

var (
	// Global option flags
	dbPath      string
	driversPath string
	redisAddr   string
	verbose     bool
	jsonOutput  bool

	// Global state
	userSettings *settings.Settings
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "fleetscan",
	Short:             "Mining fleet orchestration tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Fleetscan scans and controls the miners of a container fleet.

Jobs run one task per device concurrently. Results stream as each device
finishes; Ctrl-C cancels the running job.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr so --json output on stdout stays parseable
		util.SetLogOutput(os.Stderr)
		if jsonOutput {
			util.SetJSONFormat()
		}

		// Set log level: quiet by default, verbose on -v
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}

		if isSettingsOrHelp(cmd) {
			return nil
		}

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		// Apply defaults from settings
		if dbPath == "" {
			dbPath = userSettings.GetDBPath()
		}
		if driversPath == "" {
			driversPath = userSettings.DriversPath
		}
		if redisAddr == "" {
			redisAddr = userSettings.RedisAddr
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&driversPath, "drivers", "", "Device driver profiles (YAML)")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "Publish events to this Redis server (host:port)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "jobs", Title: "Device Jobs:"},
		&cobra.Group{ID: "fleet", Title: "Fleet Data:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{
		scanCmd, rebootCmd, sleepCmd, locateCmd, poolCmd, profileCmd, logsCmd, watchCmd,
	} {
		cmd.GroupID = "jobs"
		rootCmd.AddCommand(cmd)
	}

	for _, cmd := range []*cobra.Command{topologyCmd, credentialsCmd, poolsCmd} {
		cmd.GroupID = "fleet"
		rootCmd.AddCommand(cmd)
	}

	for _, cmd := range []*cobra.Command{configCmd, auditCmd, settingsCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion("fleetscan")
	},
}

func printVersion(tool string) {
	if verbose {
		fmt.Printf("%s %s\n", tool, version.Info())
		return
	}
	if version.Version == "dev" {
		fmt.Printf("%s dev build (set version via -ldflags)\n", tool)
	} else {
		fmt.Printf("%s %s (%s)\n", tool, version.Version, version.GitCommit)
	}
}

// isSettingsOrHelp checks whether cmd (or any ancestor) is a settings, help, or version command.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "settings":
			return true
		}
	}
	return false
}

// Color helpers delegate to pkg/cli
func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
func bold(s string) string   { return cli.Bold(s) }
