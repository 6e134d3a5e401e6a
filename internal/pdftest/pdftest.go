// Package pdftest builds small, valid PDF files for tests.
package pdftest

import (
	"fmt"
	"os"
	"strings"
)

// Build returns a PDF with one page per entry of pages. Each page shows its
// text line by line in Helvetica.
func Build(pages ...string) []byte {
	if len(pages) == 0 {
		pages = []string{""}
	}
	n := len(pages)
	// 1 catalog, 2 pages tree, 3 font, then (page, contents) per page.
	total := 3 + 2*n
	offsets := make([]int, total+1)

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = b.Len()
	fmt.Fprintf(&b, "2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", strings.Join(kids, " "), n)
	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	for i, text := range pages {
		pageObj := 4 + 2*i
		contentObj := pageObj + 1
		stream := contentStream(text)

		offsets[pageObj] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>\nendobj\n", pageObj, contentObj)
		offsets[contentObj] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", contentObj, len(stream), stream)
	}

	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", total+1)
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= total; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", total+1, xref)
	return []byte(b.String())
}

func contentStream(text string) string {
	var s strings.Builder
	s.WriteString("BT\n/F1 10 Tf\n14 TL\n40 750 Td\n")
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(&s, "(%s) Tj\nT*\n", escape(line))
	}
	s.WriteString("ET")
	return s.String()
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "(", `\(`)
	return strings.ReplaceAll(s, ")", `\)`)
}

// Write stores Build(pages...) at path.
func Write(path string, pages ...string) error {
	return os.WriteFile(path, Build(pages...), 0o644)
}
