package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/local/pdftables/internal/extract"
)

type tableReport struct {
	Table           int      `json:"table"`
	Rows            int      `json:"rows"`
	Columns         int      `json:"columns"`
	Title           string   `json:"title,omitempty"`
	HeaderRow       int      `json:"header_row"`
	DataStart       int      `json:"data_start"`
	HasSequentialID bool     `json:"has_sequential_id"`
	Headers         []string `json:"headers,omitempty"`
}

type analyzeReport struct {
	File   string        `json:"file"`
	Pages  int           `json:"pages"`
	Valid  bool          `json:"valid"`
	Tables []tableReport `json:"tables"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.pdf>",
	Short: "Print the inferred structure of every detected table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		layout, err := extract.NewGridExtractor().Extract(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		a := analyzer()
		raw := layout.RawTables()
		rep := analyzeReport{File: args[0], Pages: layout.Pages, Valid: a.Valid(raw), Tables: []tableReport{}}
		for i, t := range raw {
			tr := tableReport{Table: i + 1, Rows: len(t), HeaderRow: -1, DataStart: -1}
			if st := a.Analyze(t); st != nil {
				tr.Columns = st.ColumnCount
				tr.Title = st.Title()
				tr.HeaderRow = st.HeaderRow
				tr.DataStart = st.DataStart
				tr.HasSequentialID = st.HasSequentialID
				tr.Headers = a.Headers(t, st)
			}
			rep.Tables = append(rep.Tables, tr)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	},
}
