package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var disableCmd = &cobra.Command{
	Use:   "disable <extension-id>",
	Short: "Disable an extension",
	Long: `Disable an extension by ID. Extensions depending on it are disabled
first. The extension stays installed, so re-enabling skips the install
step.

Example:
  plugboard disable com.example.reports`,
	Args: cobra.ExactArgs(1),
	RunE: runDisable,
}

func init() {
	rootCmd.AddCommand(disableCmd)

	disableCmd.Flags().StringVar(&clientAddr, "addr", "", "Daemon address (overrides config)")
}

func runDisable(_ *cobra.Command, args []string) error {
	id := args[0]

	var ext extensionDTO
	if err := apiPost("/api/extensions/"+id+"/disable", &ext); err != nil {
		return err
	}

	fmt.Printf("Disabled %s (%s %s)\n", ext.ID, ext.Name, ext.Version)
	return nil
}
