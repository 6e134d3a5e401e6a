// Package rename names documents from a settings template and places them
// without ever overwriting an existing file.
package rename

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/faktur-sorter/constants"
	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
)

var reSpaces = regexp.MustCompile(`\s+`)

const reservedChars = `<>:"/\|?*`

// Render builds the file name for meta from the settings template:
// enabled components in order, joined by the separator, plus ".pdf".
func Render(meta entity.DocumentMetadata, s entity.Settings) string {
	sep := s.Separator
	if sep == "" {
		sep = entity.DefaultSeparator
	}
	slash := s.SlashReplacement
	if slash == "" {
		slash = entity.DefaultSlashReplacement
	}

	order := s.EnabledComponents()
	if len(order) == 0 {
		// Nothing enabled: fall back to the sentinel name.
		order = constants.DefaultComponentOrder()
		meta = entity.EmptyMetadata()
	}
	parts := make([]string, 0, len(order))
	for _, c := range order {
		parts = append(parts, componentValue(c, meta, slash))
	}

	stem := Sanitize(strings.Join(parts, sep))
	if s.MaxFilenameLength > 0 {
		stem = truncateRunes(stem, s.MaxFilenameLength)
	}
	if stem == "" {
		stem = entity.InvoiceNotFound
	}
	return stem + "." + constants.DocumentExt
}

func componentValue(c constants.Component, meta entity.DocumentMetadata, slash string) string {
	switch c {
	case constants.ComponentPartner:
		return meta.PartnerName
	case constants.ComponentDate:
		return meta.IssueDate
	case constants.ComponentReference:
		return strings.NewReplacer("/", slash, `\`, slash).Replace(meta.Reference)
	case constants.ComponentInvoice:
		return meta.InvoiceNumber
	default:
		return ""
	}
}

// Sanitize strips filesystem-reserved and control characters, collapses
// whitespace and trims the result.
func Sanitize(name string) string {
	name = reSpaces.ReplaceAllString(name, " ")
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(reservedChars, r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(reSpaces.ReplaceAllString(name, " "))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
