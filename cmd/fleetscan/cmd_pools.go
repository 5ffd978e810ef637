package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newtron-network/fleetscan/pkg/cli"
	"github.com/newtron-network/fleetscan/pkg/model"
	"github.com/newtron-network/fleetscan/pkg/util"
)

var (
	poolURLs     []string
	poolWorker   string
	poolPassword string
)

var poolsCmd = &cobra.Command{
	Use:   "pools",
	Short: "Manage pool templates",
	Long: `Manage pool templates applied by 'fleetscan pool'.

The worker name may use {can}, {model} and {ip}; they are replaced per
device with the container number, the model family and the last address
octet.

Examples:
  fleetscan pools add main --url stratum+tcp://a:3333 --url stratum+tcp://b:3333 \
      --worker 'acct.{can}.{model}.{ip}' --password x
  fleetscan pools list`,
}

var poolsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create or replace a pool template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var urls []string
		for _, u := range poolURLs {
			urls = append(urls, util.SplitCommaSeparated(u)...)
		}
		if len(urls) == 0 || len(urls) > model.PoolSlots {
			return fmt.Errorf("between 1 and %d pool URLs required", model.PoolSlots)
		}
		tmpl := model.PoolTemplate{Name: args[0], Worker: poolWorker, Password: poolPassword}
		copy(tmpl.URLs[:], urls)

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SavePoolTemplate(cmd.Context(), tmpl); err != nil {
			return err
		}
		fmt.Printf("Pool template %s saved\n", bold(tmpl.Name))
		return nil
	},
}

var poolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pool templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		pools, err := st.ListPoolTemplates(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			for i := range pools {
				pools[i].Password = ""
			}
			return printJSON(pools)
		}
		if len(pools) == 0 {
			fmt.Println("No pool templates.")
			return nil
		}

		t := cli.NewTable("NAME", "URL 1", "URL 2", "URL 3", "WORKER")
		for _, p := range pools {
			row := []string{p.Name}
			for _, u := range p.URLs {
				if u == "" {
					u = "-"
				}
				row = append(row, u)
			}
			t.Row(append(row, p.Worker)...)
		}
		t.Flush()
		return nil
	},
}

func init() {
	poolsAddCmd.Flags().StringArrayVar(&poolURLs, "url", nil, "Pool URL in priority order (repeatable or comma-separated, up to 3)")
	poolsAddCmd.Flags().StringVar(&poolWorker, "worker", "", "Worker name template")
	poolsAddCmd.Flags().StringVar(&poolPassword, "password", "", "Pool password")
	poolsAddCmd.MarkFlagRequired("worker")

	poolsCmd.AddCommand(poolsAddCmd)
	poolsCmd.AddCommand(poolsListCmd)
}
