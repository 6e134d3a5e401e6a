package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
	"github.com/joseph-ayodele/faktur-sorter/internal/metadata"
)

const sampleFaktur = `Faktur Pajak
Kode dan Nomor Seri Faktur Pajak: 0100002412345678
Pengusaha Kena Pajak
Nama : PT Penjual Makmur
NPWP : #0123456789012345678901
Pembeli Barang Kena Pajak / Penerima Jasa Kena Pajak:
Nama : PT. Sinar   Jaya, Tbk.
Alamat : Jl. Merdeka No. 1, Jakarta
No. Nama Barang
1 Jasa konsultasi (Referensi: INV/2024/001)
JAKARTA, 5 Maret 2024
`

func TestExtract_AllFields(t *testing.T) {
	meta := metadata.Extract(sampleFaktur)

	assert.Equal(t, "0123456789012345678901", meta.TaxID)
	assert.Equal(t, "PT SINAR JAYA TBK", meta.PartnerName)
	assert.Equal(t, "0100002412345678", meta.InvoiceNumber)
	assert.Equal(t, "05-03-2024", meta.IssueDate)
	assert.Equal(t, "INV/2024/001", meta.Reference)
}

func TestExtract_EmptyTextYieldsSentinels(t *testing.T) {
	assert.Equal(t, entity.EmptyMetadata(), metadata.Extract(""))
}

func TestExtract_FieldsAreIndependent(t *testing.T) {
	text := "NPWP 0123456789012345678901\nKode dan Nomor Seri Faktur Pajak: 999"

	meta := metadata.Extract(text)

	assert.Equal(t, "0123456789012345678901", meta.TaxID)
	assert.Equal(t, "999", meta.InvoiceNumber)
	assert.Equal(t, entity.PartnerNotFound, meta.PartnerName)
	assert.Equal(t, entity.DateNotFound, meta.IssueDate)
	assert.Equal(t, entity.ReferenceNotFound, meta.Reference)
}

func TestExtract_TaxIDNeedsTwentyTwoDigits(t *testing.T) {
	meta := metadata.Extract("NPWP 012345678901234567890")
	assert.Equal(t, entity.TaxIDNotFound, meta.TaxID)
}

func TestExtract_TaxIDIgnoresLongerDigitRuns(t *testing.T) {
	cases := map[string]string{
		"NITKU 01234567890123456789012 end":                            entity.TaxIDNotFound,
		"Nomor 1234567890123456789012345 lalu #0123456789012345678901": "0123456789012345678901",
		"#0123456789012345678901":                                      "0123456789012345678901",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, metadata.Extract(in).TaxID)
			assert.Equal(t, want, metadata.ExtractLegacy(in).TaxID)
		})
	}
}

func TestExtract_IssueDateSkipsImpossibleDay(t *testing.T) {
	assert.Equal(t, "05-04-2024", metadata.Extract("00 Maret 2024 dan 5 April 2024").IssueDate)
	assert.Equal(t, entity.DateNotFound, metadata.Extract("00 Maret 2024 dan 32 April 2024").IssueDate)
}

func TestExtract_IssueDate(t *testing.T) {
	cases := map[string]string{
		"1 januari 2023":    "01-01-2023",
		"31 DESEMBER 2024":  "31-12-2024",
		"12 Agustus  2022":  "12-08-2022",
		"7 Mei 2021":        "07-05-2021",
		"7 May 2021":        entity.DateNotFound,
		"tanggal tidak ada": entity.DateNotFound,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, metadata.Extract(in).IssueDate)
		})
	}
}

func TestExtract_ReferenceFallsBackToBareToken(t *testing.T) {
	meta := metadata.Extract("Referensi: PO-77/A_1 lainnya")
	assert.Equal(t, "PO-77/A_1", meta.Reference)
}

func TestExtract_FullWidthDigits(t *testing.T) {
	meta := metadata.Extract("Kode dan Nomor Seri Faktur Pajak: ０１０")
	assert.Equal(t, "010", meta.InvoiceNumber)
}

func TestExtractLegacy(t *testing.T) {
	legacy := metadata.ExtractLegacy(sampleFaktur)
	assert.Equal(t, entity.LegacyMetadata{TaxID: "0123456789012345678901", PartnerName: "PT SINAR JAYA TBK"}, legacy)

	empty := metadata.ExtractLegacy("nothing here")
	assert.Equal(t, entity.TaxIDNotFound, empty.TaxID)
	assert.Equal(t, entity.PartnerNotFound, empty.PartnerName)
}
