package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/qoox/smartcsv/modules/content/services"
)

type importOptions struct {
	file      string
	mode      services.ImportMode
	chunkSize int
	keepStage bool
}

func newImportCmd() *cobra.Command {
	var opts importOptions
	var mode string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import records from a CSV file in resumable chunks",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := services.ParseImportMode(mode)
			if err != nil {
				return withCode(exitUsage, err)
			}
			opts.mode = m
			return runImport(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "CSV file to import (required)")
	cmd.Flags().StringVar(&mode, "mode", "", "Import mode: update_or_create (default) or create_only")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", services.DefaultChunkSize, "Rows per chunk")
	cmd.Flags().BoolVar(&opts.keepStage, "keep-staged", false, "Leave the staged copy behind for inspection")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runImport(ctx context.Context, opts importOptions) error {
	mod, err := loadModule(ctx)
	if err != nil {
		return err
	}
	defer mod.Close()

	f, err := os.Open(opts.file)
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("open input file: %w", err))
	}
	defer func() { _ = f.Close() }()

	count, err := mod.Batch.Count(ctx, f)
	if err != nil {
		return serviceExit(err)
	}

	type chunkLine struct {
		Offset    int  `json:"offset"`
		Processed int  `json:"processed"`
		Created   int  `json:"created"`
		Updated   int  `json:"updated"`
		Skipped   int  `json:"skipped"`
		Errors    int  `json:"errors"`
		HasMore   bool `json:"has_more"`
	}

	var total services.Tally
	offset := 0
	for {
		res, err := mod.Batch.ApplyBatch(ctx, count.StagedFile, offset, opts.chunkSize, opts.mode)
		if err != nil {
			return serviceExit(err)
		}
		if err := writeJSONLine(chunkLine{
			Offset:    offset,
			Processed: res.Processed,
			Created:   res.Tally.Created,
			Updated:   res.Tally.Updated,
			Skipped:   res.Tally.Skipped,
			Errors:    res.Tally.Errors,
			HasMore:   res.HasMore,
		}); err != nil {
			return err
		}
		total.Add(res.Tally)
		offset = res.NextOffset
		if !res.HasMore {
			break
		}
	}

	if !opts.keepStage {
		mod.Batch.Cleanup(ctx)
	}

	type importSummary struct {
		Status    string `json:"status"`
		TotalRows int    `json:"total_rows"`
		Created   int    `json:"created"`
		Updated   int    `json:"updated"`
		Skipped   int    `json:"skipped"`
		Errors    int    `json:"errors"`
	}
	return writeJSONLine(importSummary{
		Status:    "imported",
		TotalRows: count.TotalRows,
		Created:   total.Created,
		Updated:   total.Updated,
		Skipped:   total.Skipped,
		Errors:    total.Errors,
	})
}
