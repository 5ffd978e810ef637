package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/fleetscan/pkg/cli"
	"github.com/newtron-network/fleetscan/pkg/model"
	"github.com/newtron-network/fleetscan/pkg/store"
)

var topologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Import and inspect the container/rack/device layout",
	Long: `Import and inspect the fleet layout.

A fleet file (YAML) lists containers with their racks and devices and may
also carry credentials, pool templates and error patterns. Importing
replaces the whole topology.

Examples:
  fleetscan topology import fleet.yaml
  fleetscan topology list
  fleetscan topology show 24`,
}

var topologyImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the topology from a fleet file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := store.LoadFleetFile(args[0])
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.ImportFleet(cmd.Context(), f); err != nil {
			return fmt.Errorf("importing %s: %w", args[0], err)
		}

		devices := 0
		for _, c := range f.Containers {
			for _, r := range c.Racks {
				devices += len(r.Devices)
			}
		}
		fmt.Printf("%s %d container(s), %d device(s), %d pool template(s)\n",
			green("Imported"), len(f.Containers), devices, len(f.Pools))
		return nil
	},
}

var topologyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List containers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		containers, err := st.ListContainers(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(containers)
		}
		if len(containers) == 0 {
			fmt.Println("No containers. Use 'fleetscan topology import <file>'.")
			return nil
		}

		t := cli.NewTable("CAN", "NAME", "RACKS", "DEVICES")
		for _, c := range containers {
			devices := 0
			for _, r := range c.Racks {
				devices += len(r.Devices)
			}
			t.Row(strconv.Itoa(c.Num), c.Name, strconv.Itoa(len(c.Racks)), strconv.Itoa(devices))
		}
		t.Flush()
		return nil
	},
}

var topologyShowCmd = &cobra.Command{
	Use:   "show <can>",
	Short: "Show the racks and devices of a container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		num, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid container number %q", args[0])
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		id, err := st.ContainerByNum(cmd.Context(), num)
		if err != nil {
			return err
		}
		c, err := st.GetContainer(cmd.Context(), id)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(c)
		}

		fmt.Printf("Container %s", bold(strconv.Itoa(c.Num)))
		if c.Name != "" {
			fmt.Printf(" (%s)", c.Name)
		}
		fmt.Println()
		for _, r := range c.Racks {
			printRack(r)
		}
		return nil
	},
}

func printRack(r model.Rack) {
	fmt.Printf("\nRack %s  index %d  %dx%d\n", bold(r.Name), r.Index, r.Width, r.Height)
	if len(r.Devices) == 0 {
		fmt.Println("  (empty)")
		return
	}
	t := cli.NewTable("ROW", "COL", "ADDRESS").WithPrefix("  ")
	for _, d := range r.Devices {
		t.Row(strconv.Itoa(d.Row), strconv.Itoa(d.Column), d.IP)
	}
	t.Flush()
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	topologyCmd.AddCommand(topologyImportCmd)
	topologyCmd.AddCommand(topologyListCmd)
	topologyCmd.AddCommand(topologyShowCmd)
}
