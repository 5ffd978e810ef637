package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/fleetscan/pkg/cli"
	"github.com/newtron-network/fleetscan/pkg/credential"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage per-vendor login candidates",
	Long: `Manage per-vendor login candidates.

Candidates are tried in the order they were added; the first one the
device accepts is used. Vendor "*" applies to vendors without their own
list.

Examples:
  fleetscan credentials add antminer root root
  fleetscan credentials add '*' admin admin
  fleetscan credentials list`,
}

var credentialsAddCmd = &cobra.Command{
	Use:   "add <vendor> <username> <password>",
	Short: "Append a candidate to a vendor's list",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		c := credential.Credential{Username: args[1], Password: args[2]}
		if err := st.AddCredential(cmd.Context(), args[0], c); err != nil {
			return err
		}
		fmt.Printf("Added %s for %s\n", c, strings.ToLower(args[0]))
		return nil
	},
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List candidates (passwords hidden)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		set, err := st.LoadCredentials(cmd.Context())
		if err != nil {
			return err
		}
		vendors := set.Vendors()
		sort.Strings(vendors)

		if jsonOutput {
			type entry struct {
				Vendor   string `json:"vendor"`
				Order    int    `json:"order"`
				Username string `json:"username"`
			}
			var out []entry
			for _, v := range vendors {
				for i, c := range set[v] {
					out = append(out, entry{v, i + 1, c.Username})
				}
			}
			return printJSON(out)
		}

		if len(vendors) == 0 {
			fmt.Println("No credentials configured.")
			return nil
		}
		t := cli.NewTable("VENDOR", "ORDER", "USERNAME", "PASSWORD")
		for _, v := range vendors {
			for i, c := range set[v] {
				t.Row(v, strconv.Itoa(i+1), c.Username, "****")
			}
		}
		t.Flush()
		return nil
	},
}

func init() {
	credentialsCmd.AddCommand(credentialsAddCmd)
	credentialsCmd.AddCommand(credentialsListCmd)
}
