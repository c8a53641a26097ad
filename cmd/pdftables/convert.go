package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/local/pdftables/internal/convert"
	"github.com/local/pdftables/internal/extract"
)

var (
	convFormat string
	convMerge  bool
	convOut    string
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.pdf>...",
	Short: "Convert PDF files to tables",
	Long: `Convert extracts the tables of each PDF and writes them to the output
directory. With --merge all tables of a document are combined into one
output using the header of the first table that has one; otherwise every
table is written to <name>_table<N>.<ext>.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := convert.ParseFormat(convFormat)
		if err != nil {
			return err
		}
		conv := convert.New(analyzer())
		grid := extract.NewGridExtractor()
		text := extract.NewTextExtractor(nil)

		for _, path := range args {
			if err := convertOne(cmd.Context(), conv, grid, text, path, format); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVarP(&convFormat, "format", "f", "csv", "output format: csv, excel, json or text")
	convertCmd.Flags().BoolVarP(&convMerge, "merge", "m", false, "merge all tables of a document into one output")
	convertCmd.Flags().StringVarP(&convOut, "out", "o", ".", "output directory")
}

func convertOne(ctx context.Context, conv *convert.Converter, grid *extract.GridExtractor, text *extract.TextExtractor, path string, format convert.Format) error {
	layout, err := grid.Extract(ctx, path)
	if err != nil {
		return err
	}
	base := filepath.Base(path)
	res, err := conv.Convert(ctx, convert.Input{
		Tables: layout.RawTables(),
		Text: func(ctx context.Context) (extract.TextDocument, error) {
			return text.Structured(ctx, path)
		},
	}, convert.Options{
		Format:    format,
		Merge:     convMerge,
		OutputDir: convOut,
		BaseName:  strings.TrimSuffix(base, filepath.Ext(base)),
	})
	if err != nil {
		return err
	}
	mode := "tables"
	if res.Fallback {
		mode = "text"
	}
	fmt.Printf("%s: %d table(s), %d record(s), %s\n", base, res.Tables, res.Records, mode)
	for _, f := range res.Files {
		fmt.Printf("  %s\n", f)
	}
	return nil
}
