package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/helmcode/codescribe/pkg/formatter"
)

var docTypesOutputFormat string

func NewDocTypesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc-types",
		Short: "List documentation types and the provider settings used for each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := formatter.ValidateFormat(docTypesOutputFormat); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gen, err := newOfflineGenerator(cfg)
			if err != nil {
				return err
			}
			return formatter.DisplayDocTypes(os.Stdout, gen.DocTypes(), docTypesOutputFormat)
		},
	}

	cmd.Flags().StringVarP(&docTypesOutputFormat, "output", "o", formatter.FormatHuman, "Output format (human, json, yaml)")
	return cmd
}
