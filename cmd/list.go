package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered extensions and their states",
	Long: `List every extension the daemon knows about, with its lifecycle
state: registered (discovered, never installed), installed (assets and
schema in place, currently disabled), enabled (live) or degraded
(recorded enabled but failed to initialize on the last discovery pass).

Examples:
  plugboard list
  plugboard list --json | jq '.[].id'`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&clientAddr, "addr", "", "Daemon address (overrides config)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
}

func runList(_ *cobra.Command, _ []string) error {
	var extensions []extensionDTO
	if err := apiGet("/api/extensions", &extensions); err != nil {
		return err
	}

	if listJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(extensions)
	}

	if len(extensions) == 0 {
		fmt.Println("No extensions discovered")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVERSION\tSTATE")
	for _, ext := range extensions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ext.ID, ext.Name, ext.Version, ext.State)
	}
	return tw.Flush()
}
