// Command etl refreshes the district air-quality index from the Seoul Open
// API, either once (etl run) or on demand behind an HTTP trigger (etl serve).
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var cmdRoot = &cobra.Command{
		Use:           "etl",
		Short:         "Seoul district air-quality ETL",
		Long:          `etl fetches district air-quality readings, grades CO and PM10, and bulk-upserts one document per station.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmdRoot.AddCommand(cmdRun())
	cmdRoot.AddCommand(cmdServe())
	cmdRoot.AddCommand(cmdValidate())

	if err := cmdRoot.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
