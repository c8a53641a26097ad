package extract

import (
	"fmt"
	"regexp"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// DefaultProbeThreshold is the number of non-whitespace characters a sample
// of pages must reach to count as having a text layer.
const DefaultProbeThreshold = 300

var whitespace = regexp.MustCompile(`\s+`)

// ProbeResult describes a text-layer check.
type ProbeResult struct {
	TotalPages   int   `json:"total_pages"`
	SampledPages []int `json:"sampled_pages"`
	Chars        int   `json:"chars"`
	Threshold    int   `json:"threshold"`
	HasText      bool  `json:"has_text"`
	DurationMs   int64 `json:"duration_ms"`
}

// Probe samples up to five pages (first, quartiles, last) and counts
// non-whitespace characters. Scanned PDFs without OCR fail this check.
func Probe(opener Opener, path string, threshold int) (ProbeResult, error) {
	if threshold <= 0 {
		threshold = DefaultProbeThreshold
	}
	start := time.Now()
	res := ProbeResult{Threshold: threshold}

	doc, err := opener.Open(path)
	if err != nil {
		return res, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	res.TotalPages = doc.NumPage()
	res.SampledPages = samplePages(res.TotalPages)
	for _, idx := range res.SampledPages {
		text, err := doc.Text(idx)
		if err != nil {
			continue
		}
		res.Chars += utf8.RuneCountInString(whitespace.ReplaceAllString(text, ""))
		if res.Chars >= threshold {
			break
		}
	}
	res.HasText = res.Chars >= threshold
	res.DurationMs = time.Since(start).Milliseconds()
	return res, nil
}

func samplePages(total int) []int {
	if total <= 0 {
		return []int{}
	}
	set := map[int]struct{}{}
	if total <= 5 {
		for i := 0; i < total; i++ {
			set[i] = struct{}{}
		}
	} else {
		for _, i := range []int{0, total / 4, total / 2, 3 * total / 4, total - 1} {
			set[i] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// PageCount returns the number of pages of the PDF at path.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}
