package archive

import (
	"fmt"

	"github.com/joseph-ayodele/faktur-sorter/internal/common"
)

// ExtractionError reports an input archive that could not be unpacked.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

// Unwrap exposes both the cause and common.ErrExtraction to errors.Is.
func (e *ExtractionError) Unwrap() []error {
	return []error{common.ErrExtraction, e.Err}
}

// PackingError reports an output archive that could not be written.
type PackingError struct {
	Path string
	Err  error
}

func (e *PackingError) Error() string {
	return fmt.Sprintf("pack %s: %v", e.Path, e.Err)
}

func (e *PackingError) Unwrap() []error {
	return []error{common.ErrPacking, e.Err}
}
