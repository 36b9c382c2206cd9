package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:   "enable <extension-id>",
	Short: "Enable an extension",
	Long: `Enable an extension by ID. Requirements are enabled first, and a
first enable installs the extension's assets and schema migrations
before initializing it.

Example:
  plugboard enable com.example.reports`,
	Args: cobra.ExactArgs(1),
	RunE: runEnable,
}

func init() {
	rootCmd.AddCommand(enableCmd)

	enableCmd.Flags().StringVar(&clientAddr, "addr", "", "Daemon address (overrides config)")
}

func runEnable(_ *cobra.Command, args []string) error {
	id := args[0]

	var ext extensionDTO
	if err := apiPost("/api/extensions/"+id+"/enable", &ext); err != nil {
		return err
	}

	fmt.Printf("Enabled %s (%s %s)\n", ext.ID, ext.Name, ext.Version)
	return nil
}
