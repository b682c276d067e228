package main

import (
	"github.com/spf13/cobra"
)

func newFieldsCmd() *cobra.Command {
	var recordType string

	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List the exportable field groups for a record type",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			mod, err := loadModule(ctx)
			if err != nil {
				return err
			}
			defer mod.Close()

			groups, err := mod.Fields.GetAvailableFields(ctx, recordType)
			if err != nil {
				return serviceExit(err)
			}

			type fieldLine struct {
				Group string `json:"group"`
				Key   string `json:"key"`
				Label string `json:"label"`
			}
			for _, group := range groups {
				for _, field := range group.Fields {
					if err := writeJSONLine(fieldLine{Group: group.Key, Key: field.Key, Label: field.Label}); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&recordType, "type", "", "Record type (required)")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}
