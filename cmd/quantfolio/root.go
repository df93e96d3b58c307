package main

import (
	"context"

	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:           "quantfolio",
		Short:         "Quantum-inspired portfolio selection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd())
	return root.ExecuteContext(ctx)
}
