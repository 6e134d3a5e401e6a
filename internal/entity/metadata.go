package entity

// Sentinel values substituted when a field cannot be parsed.
const (
	TaxIDNotFound     = "Unknown_TaxID"
	PartnerNotFound   = "Unknown_Partner"
	InvoiceNotFound   = "Unknown_Invoice"
	DateNotFound      = "Unknown_Date"
	ReferenceNotFound = "Ref_Not_Found"
)

// DocumentMetadata is the identifying metadata read from one tax invoice.
type DocumentMetadata struct {
	TaxID         string `json:"tax_id"`
	PartnerName   string `json:"partner_name"`
	InvoiceNumber string `json:"invoice_number"`
	IssueDate     string `json:"issue_date"` // DD-MM-YYYY
	Reference     string `json:"reference"`
}

// LegacyMetadata is the reduced record merge mode groups on.
type LegacyMetadata struct {
	TaxID       string `json:"tax_id"`
	PartnerName string `json:"partner_name"`
}

// EmptyMetadata returns a record with every field at its sentinel.
func EmptyMetadata() DocumentMetadata {
	return DocumentMetadata{
		TaxID:         TaxIDNotFound,
		PartnerName:   PartnerNotFound,
		InvoiceNumber: InvoiceNotFound,
		IssueDate:     DateNotFound,
		Reference:     ReferenceNotFound,
	}
}

// Legacy narrows the record to the merge grouping key.
func (m DocumentMetadata) Legacy() LegacyMetadata {
	return LegacyMetadata{TaxID: m.TaxID, PartnerName: m.PartnerName}
}
