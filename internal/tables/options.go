package tables

// Default thresholds of the analyzer.
const (
	HeaderMinScore           = 6
	HeaderCellLookahead      = 8
	SequenceLookahead        = 5
	MinSequenceLength        = 3
	ValidityMinRows          = 3
	ValidityMinColumns       = 3
	ValidityMultiColumnRatio = 0.7
	TitleMinLength           = 15
)

// Options tunes the analyzer. Zero fields fall back to the defaults above.
type Options struct {
	HeaderMinScore           int
	HeaderCellLookahead      int
	SequenceLookahead        int
	MinSequenceLength        int
	ValidityMinRows          int
	ValidityMinColumns       int
	ValidityMultiColumnRatio float64
	TitleMinLength           int
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		HeaderMinScore:           HeaderMinScore,
		HeaderCellLookahead:      HeaderCellLookahead,
		SequenceLookahead:        SequenceLookahead,
		MinSequenceLength:        MinSequenceLength,
		ValidityMinRows:          ValidityMinRows,
		ValidityMinColumns:       ValidityMinColumns,
		ValidityMultiColumnRatio: ValidityMultiColumnRatio,
		TitleMinLength:           TitleMinLength,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.HeaderMinScore == 0 {
		o.HeaderMinScore = d.HeaderMinScore
	}
	if o.HeaderCellLookahead <= 0 {
		o.HeaderCellLookahead = d.HeaderCellLookahead
	}
	if o.SequenceLookahead <= 0 {
		o.SequenceLookahead = d.SequenceLookahead
	}
	if o.MinSequenceLength <= 0 {
		o.MinSequenceLength = d.MinSequenceLength
	}
	if o.ValidityMinRows <= 0 {
		o.ValidityMinRows = d.ValidityMinRows
	}
	if o.ValidityMinColumns <= 0 {
		o.ValidityMinColumns = d.ValidityMinColumns
	}
	if o.ValidityMultiColumnRatio <= 0 {
		o.ValidityMultiColumnRatio = d.ValidityMultiColumnRatio
	}
	if o.TitleMinLength <= 0 {
		o.TitleMinLength = d.TitleMinLength
	}
	return o
}
