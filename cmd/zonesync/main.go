// zonesync reconciles DNS zones at hosting providers with declarative
// record-set documents. It runs once (plan, apply) or as a daemon (serve).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configPath  string
	output      string
	logLevel    string
	logFormat   string
	concurrency int
	zones       []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "zonesync",
		Short:   "Reconcile DNS zones with declarative record sets",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to the run configuration (env ZONESYNC_CONFIG)")
	flags.StringVarP(&opts.output, "output", "o", "yaml", "Output format (yaml|json)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug|info|warn|error), overrides the configuration")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (json|text), overrides the configuration")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "Zones reconciled at the same time, overrides the configuration")
	flags.StringSliceVar(&opts.zones, "zone", nil, "Only process these zones (provider/zone or zone name), repeatable")

	cmd.AddCommand(newCmdPlan(opts))
	cmd.AddCommand(newCmdApply(opts))
	cmd.AddCommand(newCmdShow(opts))
	cmd.AddCommand(newCmdServe(opts))
	cmd.AddCommand(newCmdVersion())
	return cmd
}

func main() {
	root := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
