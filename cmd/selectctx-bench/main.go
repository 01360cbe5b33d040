// Command selectctx-bench exercises the selective subscription protocol
// under synthetic load and reports how well bail-out contains render work.
//
//	selectctx-bench run --profile standard
//	selectctx-bench serve --addr :6061
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "selectctx-bench",
		Short: "Benchmark and inspect selective subscriptions",
		Long: `selectctx-bench drives a synthetic consumer tree through the
two-phase update protocol and measures render containment:

  • run    one-shot workload, prints a report
  • serve  continuous workload with the devtools inspector attached`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		serveCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}
