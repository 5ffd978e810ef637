package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/fleetscan/pkg/audit"
	"github.com/newtron-network/fleetscan/pkg/cli"
	"github.com/newtron-network/fleetscan/pkg/util"
)

var (
	auditKind    string
	auditUser    string
	auditOutcome string
	auditTarget  string
	auditLast    string
	auditLimit   int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the job audit trail",
	Long: `Show recorded job submissions, newest last.

Every submitted job is recorded with its user, targets and outcome
(completed, cancelled, rejected or failed).

Examples:
  fleetscan audit
  fleetscan audit --kind reboot --last 24h
  fleetscan audit --target 10.24.0.7`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{
			Kind:    auditKind,
			User:    auditUser,
			Outcome: auditOutcome,
			Target:  auditTarget,
			Limit:   auditLimit,
		}
		if auditLast != "" {
			d, err := time.ParseDuration(auditLast)
			if err != nil {
				return fmt.Errorf("invalid --last duration: %w", err)
			}
			filter.StartTime = time.Now().Add(-d)
		}

		trail, err := audit.NewFileLogger(auditPath(), audit.RotationConfig{})
		if err != nil {
			return err
		}
		defer trail.Close()

		events, err := trail.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}
		if jsonOutput {
			return printJSON(events)
		}
		if len(events) == 0 {
			fmt.Println("No audit events found.")
			return nil
		}

		t := cli.NewTable("TIME", "USER", "KIND", "TARGETS", "DEVICES", "OUTCOME", "DURATION")
		for _, e := range events {
			outcome := e.Outcome
			switch e.Outcome {
			case audit.OutcomeCompleted:
				outcome = green(outcome)
			case audit.OutcomeCancelled, audit.OutcomeRejected:
				outcome = yellow(outcome)
			case audit.OutcomeFailed:
				outcome = red(outcome)
			}
			targets := util.CompactAddresses(e.Targets)
			if e.Container != 0 {
				targets = "container id " + strconv.FormatInt(e.Container, 10)
			}
			devices := "-"
			if e.Total > 0 || e.Outcome == audit.OutcomeCompleted {
				devices = strconv.Itoa(e.Completed) + "/" + strconv.Itoa(e.Total)
			}
			t.Row(
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.User,
				e.Kind,
				targets,
				devices,
				outcome,
				e.Duration.Round(time.Millisecond).String(),
			)
		}
		t.Flush()
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditKind, "kind", "", "Filter by job kind")
	auditCmd.Flags().StringVar(&auditUser, "user", "", "Filter by user")
	auditCmd.Flags().StringVar(&auditOutcome, "outcome", "", "Filter by outcome")
	auditCmd.Flags().StringVar(&auditTarget, "target", "", "Filter by device address")
	auditCmd.Flags().StringVar(&auditLast, "last", "", "Only events within this duration (e.g. 24h)")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "Most recent events to show (0 = all)")
}
