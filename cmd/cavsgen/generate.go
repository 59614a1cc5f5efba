package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/cavsgen/internal/services/generate"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build the test module from the configured response files",
	Long: `Generate reads every configured response file in order, builds its
vector sequence and renders all suites into one output file.

Nothing is rewritten when the inputs, the format and the output on disk
match the last successful run. Use --force to regenerate anyway.`,
	Example: `  cavsgen generate
  cavsgen generate --format go --output sha1_vectors_test.go
  cavsgen generate --dry-run > CAVS.elm`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

var (
	generateForce  bool
	generateDryRun bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("output", "o", "",
		"Output path, relative to storage.output_dir")
	generateCmd.Flags().StringP("format", "f", "",
		"Output format (elm, go, json, yaml)")
	generateCmd.Flags().BoolVar(&generateForce, "force", false,
		"Regenerate even if nothing changed")
	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false,
		"Print the rendered output instead of writing it")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	apiClient, err := newClient()
	if err != nil {
		return err
	}
	defer apiClient.Close()

	res, err := apiClient.Generate.Generate(ctx, generate.Options{
		Force:  generateForce,
		DryRun: generateDryRun,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"result":  res,
		})
		return nil
	}

	if res.DryRun {
		_, err := os.Stdout.Write(res.Rendered)
		return err
	}

	if res.UpToDate {
		printInfo("%s is up to date (%s vectors)", res.Output, formatCount(res.Vectors))
		return nil
	}

	fmt.Printf("\nGeneration Summary:\n")
	for _, in := range res.Inputs {
		fmt.Printf("   %-8s %s vectors from %s", in.Name, formatCount(in.Vectors), in.Path)
		if len(in.Skipped) > 0 {
			fmt.Printf(" (%d blocks skipped)", len(in.Skipped))
		}
		fmt.Println()
	}
	fmt.Printf("   Output: %s (%s, %s)\n", res.Output, res.Format, formatBytes(int64(res.Size)))
	fmt.Printf("   Duration: %s\n", res.Duration.Round(time.Millisecond))

	printSuccess("\nWrote %s vectors to %s", formatCount(res.Vectors), res.Output)
	return nil
}
