package main

import (
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/cavsgen/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:         "init [path]",
	Short:       "Write an example config file",
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipConfig: "true"},
	RunE:        runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := "cavsgen.yaml"
	if len(args) > 0 {
		path = args[0]
	}

	if err := config.SaveExample(path); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{"success": true, "path": path})
		return nil
	}
	printSuccess("Wrote %s", path)
	return nil
}
