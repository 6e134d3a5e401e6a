package constants

import (
	"strings"
)

// Component is one named part of a rename template.
type Component string

const (
	ComponentPartner   Component = "partner"
	ComponentDate      Component = "date"
	ComponentReference Component = "reference"
	ComponentInvoice   Component = "invoice"
)

var allComponents = []Component{
	ComponentPartner,
	ComponentDate,
	ComponentReference,
	ComponentInvoice,
}

// DefaultComponentOrder is the template used when the caller supplies none.
func DefaultComponentOrder() []Component {
	out := make([]Component, len(allComponents))
	copy(out, allComponents)
	return out
}

func AsStringSlice() []string {
	result := make([]string, len(allComponents))
	for i, c := range allComponents {
		result[i] = string(c)
	}
	return result
}

// Canonicalize maps a component label (including a few Indonesian and legacy
// spellings) onto a Component.
func Canonicalize(input string) (Component, bool) {
	if input == "" {
		return "", false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]Component{
		"partner_name":   ComponentPartner,
		"partnername":    ComponentPartner,
		"nama":           ComponentPartner,
		"tanggal":        ComponentDate,
		"issue_date":     ComponentDate,
		"ref":            ComponentReference,
		"referensi":      ComponentReference,
		"faktur":         ComponentInvoice,
		"invoice_number": ComponentInvoice,
		"nomor_faktur":   ComponentInvoice,
	}

	if c, ok := synonyms[normalized]; ok {
		return c, true
	}

	for _, c := range allComponents {
		if normalized == string(c) {
			return c, true
		}
	}

	return "", false
}
