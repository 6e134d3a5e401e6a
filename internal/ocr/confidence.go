package ocr

import (
	"regexp"
	"strings"
)

// LowConfidenceThreshold flags OCR output worth a manual look.
const LowConfidenceThreshold = 0.6

var (
	reTaxIDish   = regexp.MustCompile(`\d{22}`)
	reFakturMark = regexp.MustCompile(`(?i)faktur\s+pajak`)
	reDateish    = regexp.MustCompile(`(?i)\d{1,2}\s+(januari|februari|maret|april|mei|juni|juli|agustus|september|oktober|november|desember)\s+\d{4}`)
	rePartnerTag = regexp.MustCompile(`(?i)pembeli\s+barang\s+kena\s+pajak`)
)

// heuristicConfidence scores OCR text by the e-Faktur markers it contains.
func heuristicConfidence(txt string) float32 {
	score := float32(0.2) // base
	if reFakturMark.MatchString(txt) {
		score += 0.2
	}
	if reTaxIDish.MatchString(txt) {
		score += 0.2
	}
	if reDateish.MatchString(txt) {
		score += 0.15
	}
	if rePartnerTag.MatchString(strings.Join(strings.Fields(txt), " ")) {
		score += 0.15
	}
	if len(txt) > 400 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
