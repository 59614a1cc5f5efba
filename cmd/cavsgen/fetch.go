package main

import (
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <name-or-url>...",
	Short: "Download response files",
	Long: `Fetch downloads response files into the input directory. Bare file
names are resolved against fetch.base_url; absolute URLs are used as is.`,
	Example: `  cavsgen fetch SHA1ShortMsg.rsp SHA1LongMsg.rsp
  cavsgen fetch https://example.org/vectors/SHA1ShortMsg.rsp --dir testdata`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

var fetchDir string

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&fetchDir, "dir", "d", "",
		"Destination directory (default: storage.input_dir)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	apiClient, err := newClient()
	if err != nil {
		return err
	}
	defer apiClient.Close()

	fetcher, err := apiClient.Fetcher(fetchDir)
	if err != nil {
		return err
	}

	results, err := fetcher.Fetch(ctx, args)
	if err != nil {
		if !jsonOutput {
			for _, r := range results {
				printInfo("Fetched %s", r.Path)
			}
		}
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"files":   results,
		})
		return nil
	}

	for _, r := range results {
		printSuccess("Fetched %s -> %s (%s)", r.URL, r.Path, formatBytes(int64(r.Size)))
	}
	return nil
}
