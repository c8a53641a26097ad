package main

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/local/pdftables/internal/extract"
)

var probeThreshold int

var probeCmd = &cobra.Command{
	Use:   "probe <file.pdf>",
	Short: "Check whether a PDF has an extractable text layer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := extract.Probe(extract.FitzOpener{}, args[0], probeThreshold)
		if err != nil {
			return err
		}
		if n, err := extract.PageCount(args[0]); err == nil {
			res.TotalPages = n
		} else {
			log.Debug().Err(err).Msg("pdfcpu page count failed")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	probeCmd.Flags().IntVar(&probeThreshold, "threshold", extract.DefaultProbeThreshold, "minimum non-whitespace characters in the sampled pages")
}
