package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/cavsgen/internal/config"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and manage generation state",
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List outputs with recorded generation state",
	Args:  cobra.NoArgs,
	RunE:  runStateList,
}

var stateResetCmd = &cobra.Command{
	Use:   "reset <output>",
	Short: "Forget the recorded state of an output",
	Long: `Reset removes the recorded state of an output so the next generate
rebuilds it.`,
	Args: cobra.ExactArgs(1),
	RunE: runStateReset,
}

var stateMigrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Copy all state to another backend",
	Example: `  cavsgen state migrate --to sqlite`,
	Args:    cobra.NoArgs,
	RunE:    runStateMigrate,
}

var migrateTo string

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateListCmd, stateResetCmd, stateMigrateCmd)

	stateMigrateCmd.Flags().StringVar(&migrateTo, "to", "",
		"Target backend (json, sqlite)")
	_ = stateMigrateCmd.MarkFlagRequired("to")
}

func runStateList(cmd *cobra.Command, args []string) error {
	apiClient, err := newClient()
	if err != nil {
		return err
	}
	defer apiClient.Close()

	states, err := apiClient.State.ListStates()
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(states)
		return nil
	}

	if len(states) == 0 {
		printInfo("No generation state recorded")
		return nil
	}

	for _, st := range states {
		fmt.Printf("%s\n", st.Output)
		fmt.Printf("   Format:   %s\n", st.Format)
		fmt.Printf("   Inputs:   %d (%s vectors)\n", len(st.Inputs), formatCount(st.TotalVectors()))
		if !st.LastRunTime.IsZero() {
			fmt.Printf("   Last run: %s\n", st.LastRunTime.Local().Format(time.RFC3339))
		}
		if st.LastError != "" {
			printWarning("   Last error: %s", st.LastError)
		}
	}
	return nil
}

func runStateReset(cmd *cobra.Command, args []string) error {
	output := args[0]

	apiClient, err := newClient()
	if err != nil {
		return err
	}
	defer apiClient.Close()

	if err := apiClient.State.Reset(output); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{"success": true, "output": output})
		return nil
	}
	printSuccess("Reset state for %s", output)
	return nil
}

func runStateMigrate(cmd *cobra.Command, args []string) error {
	if migrateTo != config.BackendJSON && migrateTo != config.BackendSQLite {
		return fmt.Errorf("invalid target backend: %s", migrateTo)
	}

	apiClient, err := newClient()
	if err != nil {
		return err
	}
	defer apiClient.Close()

	if err := apiClient.State.MigrateTo(migrateTo); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"from":    cfg.Storage.StateBackend,
			"to":      migrateTo,
		})
		return nil
	}

	printSuccess("Migrated state from %s to %s", cfg.Storage.StateBackend, migrateTo)
	printInfo("Set storage.state_backend: %s to use it", migrateTo)
	return nil
}
