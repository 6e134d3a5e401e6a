// Package metadata reads the identifying fields of an Indonesian e-Faktur
// from its extracted text layer.
package metadata

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
)

var (
	reDigits   = regexp.MustCompile(`\d+`)
	rePartner  = regexp.MustCompile(`(?s)Pembeli Barang Kena Pajak\s*/\s*Penerima Jasa Kena Pajak:\s*Nama\s*:\s*(.+?)\s*Alamat`)
	reInvoice  = regexp.MustCompile(`Kode dan Nomor Seri Faktur Pajak:\s*(\d+)`)
	reDate     = regexp.MustCompile(`(?i)(\d{1,2})\s+(Januari|Februari|Maret|April|Mei|Juni|Juli|Agustus|September|Oktober|November|Desember)\s+(\d{4})`)
	reRefParen = regexp.MustCompile(`\(Referensi:\s*([^)]+)\)`)
	reRefBare  = regexp.MustCompile(`Referensi:\s*([A-Za-z0-9/\-_]+)`)

	reSpaces   = regexp.MustCompile(`\s+`)
	reNonAlnum = regexp.MustCompile(`[^\p{L}\p{N} ]`)
)

var months = map[string]int{
	"januari":   1,
	"februari":  2,
	"maret":     3,
	"april":     4,
	"mei":       5,
	"juni":      6,
	"juli":      7,
	"agustus":   8,
	"september": 9,
	"oktober":   10,
	"november":  11,
	"desember":  12,
}

// Normalize applies NFKC so full-width digits and non-breaking spaces from
// some PDF producers match the ASCII patterns.
func Normalize(text string) string {
	return norm.NFKC.String(text)
}

// Extract reads every field independently. A field that cannot be parsed
// holds its sentinel; Extract never fails.
func Extract(text string) entity.DocumentMetadata {
	text = Normalize(text)
	meta := entity.EmptyMetadata()

	if v := taxID(text); v != "" {
		meta.TaxID = v
	}
	if v := partnerName(text); v != "" {
		meta.PartnerName = v
	}
	if m := reInvoice.FindStringSubmatch(text); m != nil {
		meta.InvoiceNumber = m[1]
	}
	if v := issueDate(text); v != "" {
		meta.IssueDate = v
	}
	if v := reference(text); v != "" {
		meta.Reference = v
	}
	return meta
}

// ExtractLegacy reads only the merge grouping key.
func ExtractLegacy(text string) entity.LegacyMetadata {
	text = Normalize(text)
	out := entity.LegacyMetadata{TaxID: entity.TaxIDNotFound, PartnerName: entity.PartnerNotFound}
	if v := taxID(text); v != "" {
		out.TaxID = v
	}
	if v := partnerName(text); v != "" {
		out.PartnerName = v
	}
	return out
}

// taxIDLen is the length of an NPWP/NITKU run on the invoice.
const taxIDLen = 22

// taxID returns the first run of exactly taxIDLen digits. Longer runs are
// other numbers and never contribute a prefix.
func taxID(text string) string {
	for _, run := range reDigits.FindAllString(text, -1) {
		if len(run) == taxIDLen {
			return run
		}
	}
	return ""
}

// partnerName collapses whitespace, drops punctuation and uppercases.
func partnerName(text string) string {
	m := rePartner.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	name := reSpaces.ReplaceAllString(m[1], " ")
	name = reNonAlnum.ReplaceAllString(name, "")
	name = strings.TrimSpace(reSpaces.ReplaceAllString(name, " "))
	return strings.ToUpper(name)
}

// issueDate formats the first valid "<day> <month> <year>" as DD-MM-YYYY.
// Matches with an impossible day are skipped.
func issueDate(text string) string {
	for _, m := range reDate.FindAllStringSubmatch(text, -1) {
		day, err := strconv.Atoi(m[1])
		if err != nil || day < 1 || day > 31 {
			continue
		}
		month, ok := months[strings.ToLower(m[2])]
		if !ok {
			continue
		}
		return fmt.Sprintf("%02d-%02d-%s", day, month, m[3])
	}
	return ""
}

func reference(text string) string {
	if m := reRefParen.FindStringSubmatch(text); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	if m := reRefBare.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
