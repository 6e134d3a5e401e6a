package ocr

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// nativeText reads the embedded text layer without external tools.
func nativeText(path string) (text string, pages int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", 0, err
	}

	// the parser panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	pages = reader.NumPage()
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		txt, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
	}
	return b.String(), pages, nil
}
