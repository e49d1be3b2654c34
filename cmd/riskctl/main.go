// Command riskctl is the pipeline's operator CLI: it runs individual
// worker stages, the ingestion/report scheduler, and seed-data loaders,
// mirroring the teacher's single-binary-many-subcommands shape (cobra)
// generalized from a gateway server into a streaming-pipeline runner.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/riskpipe/supplychain/internal/errkind"
)

func main() {
	root := &cobra.Command{
		Use:   "riskctl",
		Short: "Supply chain risk pipeline operator CLI",
	}

	root.AddCommand(newWorkerCmd())
	root.AddCommand(newScheduleCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newCreateSampleDataCmd())

	if err := root.Execute(); err != nil {
		if errkind.Is(err, errkind.ConfigError) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
