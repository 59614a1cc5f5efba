package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TheMichaelB/cavsgen/internal/cavs"
	"github.com/TheMichaelB/cavsgen/internal/models"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.rsp>",
	Short: "Parse one response file and print its vectors as JSON",
	Example: `  cavsgen inspect SHA1ShortMsg.rsp
  cavsgen inspect SHA1LongMsg.rsp --variant long --truncate=false`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{skipConfig: "true"},
	RunE:        runInspect,
}

var (
	inspectVariant    string
	inspectHeaders    int
	inspectTruncate   bool
	inspectTokenWidth int
	inspectOrigin     int
)

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectVariant, "variant", "short",
		"Response file variant (short, long)")
	inspectCmd.Flags().IntVar(&inspectHeaders, "headers", cavs.DefaultHeaderBlocks,
		"Number of leading header blocks to drop")
	inspectCmd.Flags().BoolVar(&inspectTruncate, "truncate", true,
		"Keep only the first Len tokens of each message")
	inspectCmd.Flags().IntVar(&inspectTokenWidth, "token-width", cavs.DefaultTokenWidth,
		"Width each byte token is zero-padded to")
	inspectCmd.Flags().IntVar(&inspectOrigin, "origin", 0,
		"Index of the first record block")
}

type inspectReport struct {
	File    string              `json:"file"`
	Variant string              `json:"variant"`
	Options cavs.Options        `json:"options"`
	Blocks  int                 `json:"blocks"`
	Skipped []int               `json:"skipped"`
	Vectors []models.TestVector `json:"vectors"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]

	variant, err := cavs.ParseVariant(inspectVariant)
	if err != nil {
		return err
	}

	opts := cavs.DefaultOptions()
	opts.HeaderBlocks = inspectHeaders
	opts.Truncate = inspectTruncate
	opts.TokenWidth = inspectTokenWidth
	opts.IndexOrigin = inspectOrigin

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", models.ErrInputNotFound, path)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	res, err := cavs.Build(string(data), opts)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	skipped := res.Skipped
	if skipped == nil {
		skipped = []int{}
	}

	printJSON(inspectReport{
		File:    path,
		Variant: variant.String(),
		Options: opts,
		Blocks:  res.Blocks,
		Skipped: skipped,
		Vectors: res.Vectors,
	})
	return nil
}
