package main

import (
	"github.com/spf13/cobra"
)

func newCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove the import staging area",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			mod, err := loadModule(ctx)
			if err != nil {
				return err
			}
			defer mod.Close()

			mod.Batch.Cleanup(ctx)

			type cleanupSummary struct {
				Status string `json:"status"`
			}
			return writeJSONLine(cleanupSummary{Status: "cleaned"})
		},
	}
	return cmd
}
