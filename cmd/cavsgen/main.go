package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !jsonOutput {
			printError("%v", err)
		} else {
			printJSON(map[string]interface{}{
				"success": false,
				"error":   err.Error(),
			})
		}
		os.Exit(1)
	}
}
