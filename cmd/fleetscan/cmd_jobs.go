package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/newtron-network/fleetscan/pkg/jobs"
	"github.com/newtron-network/fleetscan/pkg/store"
	"github.com/newtron-network/fleetscan/pkg/util"
)

var (
	containerNum int
	disable      bool
	poolTemplate string
	profileName  string
	logsDir      string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan every miner of a container",
	Long: `Scan every miner of a container and print one row per device.

The container defaults to default_container from settings.

Examples:
  fleetscan scan --can 24
  fleetscan scan --can 24 --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
			id, err := resolveContainer(ctx, rt.store)
			if err != nil {
				return err
			}
			return runJob(ctx, rt, jobs.Scan{ContainerID: id})
		})
	},
}

var rebootCmd = &cobra.Command{
	Use:   "reboot <address>...",
	Short: "Reboot miners",
	Long: `Reboot miners. Addresses accept a last-octet range.

Examples:
  fleetscan reboot 10.24.0.7
  fleetscan reboot 10.24.0.1-20`,
	Args: cobra.MinimumNArgs(1),
	RunE: addressJob(func(addrs []string) jobs.Job {
		return jobs.Reboot{Addresses: addrs}
	}),
}

var sleepCmd = &cobra.Command{
	Use:   "sleep <address>...",
	Short: "Put miners to sleep (or wake them with --off)",
	Args:  cobra.MinimumNArgs(1),
	RunE: addressJob(func(addrs []string) jobs.Job {
		return jobs.Sleep{Addresses: addrs, Enabled: !disable}
	}),
}

var locateCmd = &cobra.Command{
	Use:   "locate <address>...",
	Short: "Turn the locate LED on (or off with --off)",
	Args:  cobra.MinimumNArgs(1),
	RunE: addressJob(func(addrs []string) jobs.Job {
		return jobs.Locate{Addresses: addrs, Enabled: !disable}
	}),
}

var poolCmd = &cobra.Command{
	Use:   "pool <address>...",
	Short: "Apply a pool template to miners",
	Long: `Apply a pool template to miners. Worker names are expanded per device
from the template's {can}, {model} and {ip} placeholders.

Examples:
  fleetscan pool 10.24.0.1-40 --template main`,
	Args: cobra.MinimumNArgs(1),
	RunE: addressJob(func(addrs []string) jobs.Job {
		return jobs.SetPool{Addresses: addrs, Template: poolTemplate}
	}),
}

var profileCmd = &cobra.Command{
	Use:   "profile <address>...",
	Short: "Set the power profile of miners",
	Args:  cobra.MinimumNArgs(1),
	RunE: addressJob(func(addrs []string) jobs.Job {
		return jobs.SetProfile{Addresses: addrs, Profile: profileName}
	}),
}

var logsCmd = &cobra.Command{
	Use:   "logs <address>...",
	Short: "Download miner logs into a directory",
	Long: `Download miner logs. Each log is written to <dir>/<mac>.log.

Examples:
  fleetscan logs 10.24.0.1-20 --dir ./logs`,
	Args: cobra.MinimumNArgs(1),
	RunE: addressJob(func(addrs []string) jobs.Job {
		return jobs.FetchLogs{Addresses: addrs, Dir: logsDir}
	}),
}

func init() {
	scanCmd.Flags().IntVar(&containerNum, "can", 0, "Container number")

	sleepCmd.Flags().BoolVar(&disable, "off", false, "Wake instead of sleep")
	locateCmd.Flags().BoolVar(&disable, "off", false, "Turn the locate LED off")

	poolCmd.Flags().StringVar(&poolTemplate, "template", "", "Pool template name")
	poolCmd.MarkFlagRequired("template")

	profileCmd.Flags().StringVar(&profileName, "profile", "", "Power profile name")
	profileCmd.MarkFlagRequired("profile")

	logsCmd.Flags().StringVar(&logsDir, "dir", "", "Output directory")
	logsCmd.MarkFlagRequired("dir")
}

// withRuntime builds a runtime, runs fn and tears the runtime down.
func withRuntime(ctx context.Context, fn func(ctx context.Context, rt *runtime) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

// addressJob returns a RunE that expands the address arguments and runs
// the job built from them.
func addressJob(build func(addrs []string) jobs.Job) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		addrs, err := util.ExpandAddresses(args)
		if err != nil {
			return err
		}
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
			return runJob(ctx, rt, build(addrs))
		})
	}
}

// selectedContainer returns --can, falling back to the default container.
func selectedContainer() int {
	if containerNum == 0 && userSettings != nil {
		return userSettings.DefaultContainer
	}
	return containerNum
}

// resolveContainer maps the selected container number to its id.
func resolveContainer(ctx context.Context, st *store.Store) (int64, error) {
	num := selectedContainer()
	if num == 0 {
		return 0, fmt.Errorf("container required: use --can <num> or 'fleetscan settings set container <num>'")
	}
	return st.ContainerByNum(ctx, num)
}

// runJob submits job and waits for it. SIGINT or SIGTERM cancels the job;
// the command returns once every task has been accounted for.
func runJob(ctx context.Context, rt *runtime, job jobs.Job) error {
	h, err := rt.manager.Submit(ctx, job)
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-sig:
		if rt.manager.Cancel() {
			fmt.Fprintln(os.Stderr, yellow("Cancelling..."))
		}
	case <-h.Done():
	}

	res := h.Wait()
	rt.flush()
	if jsonOutput {
		if res.Cancelled {
			return fmt.Errorf("%s: %w", h.Label, util.ErrCancelled)
		}
		return nil
	}

	if res.Cancelled {
		fmt.Fprintf(os.Stderr, "%s after %d/%d device(s)\n", red("Cancelled"), res.Completed, res.Total)
		return fmt.Errorf("%s: %w", h.Label, util.ErrCancelled)
	}
	fmt.Printf("%s %s: %d device(s)\n", green("Done."), h.Label, res.Completed)
	return nil
}
