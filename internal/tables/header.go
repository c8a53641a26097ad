package tables

import "strings"

// headerKeywords are column names commonly seen in product and price lists.
var headerKeywords = []string{
	"sno", "s.no", "no", "serial", "number", "#",
	"name", "description", "price", "code", "barcode", "bar code",
	"brand", "item", "product", "quantity", "qty", "amount",
	"date", "time", "category", "type", "status", "id", "image",
	"wholesale", "retail", "ml", "pcs", "ctn", "carton", "pieces",
	"count", "total", "subtotal", "unit", "size", "color", "model", "sku",
}

var currencyMarkers = []string{"ksh", "$", "€", "£"}

// HeaderScore returns the header likelihood of a row and whether the row
// looks like data. Only the first lookahead cells are considered.
func HeaderScore(cells []string, lookahead int) (score int, likelyData bool) {
	if len(cells) > lookahead {
		cells = cells[:lookahead]
	}
	for _, cell := range cells {
		if cell == "" {
			continue
		}
		lower := strings.ToLower(cell)
		n := runeLen(cell)
		digits := isDigits(cell)

		if containsKeyword(lower) {
			score += 5
		}
		if hasLetter(cell) && n >= headerMinCellRunes && n <= headerMaxCellRunes && !digits && !numberLike(cell) {
			score += 2
		}
		if digits && n >= barcodeMinDigits {
			score -= 10
			likelyData = true
		}
		if hasCurrency(lower) && hasDigit(cell) {
			score -= 8
			likelyData = true
		}
		if digits && n == 1 {
			score -= 3
		}
		if strings.Contains(cell, "(") && strings.Contains(cell, ")") && n > 15 {
			score -= 2
		}
	}
	return score, likelyData
}

func containsKeyword(lower string) bool {
	for _, kw := range headerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func hasCurrency(lower string) bool {
	for _, m := range currencyMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// numberLike reports whether s is a number once thousands and decimal
// separators are removed.
func numberLike(s string) bool {
	return isDigits(strings.NewReplacer(".", "", ",", "").Replace(s))
}

// pickHeader chooses the header row among the analysed rows, or -1.
func (a *Analyzer) pickHeader(rows []RowAnalysis) int {
	best, bestScore := -1, 0
	for _, r := range rows {
		if r.Label != Unclassified {
			continue
		}
		score, likelyData := HeaderScore(r.Cells, a.opts.HeaderCellLookahead)
		if likelyData || score <= 0 {
			continue
		}
		// strict comparison keeps the earliest row on ties
		if best < 0 || score > bestScore {
			best, bestScore = r.Index, score
		}
	}
	if best >= 0 && bestScore >= a.opts.HeaderMinScore {
		return best
	}

	for _, r := range rows {
		if r.Label == Unclassified && r.Text >= 3 && r.Barcode == 0 && r.ShortNumber <= 1 {
			return r.Index
		}
	}
	for _, r := range rows {
		if r.Label != Title && r.Label != Empty {
			return r.Index
		}
	}
	return -1
}
