package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"clausewise/internal/model"
)

// extractPDF reads the plain text of every page. The pdf reader panics on
// some malformed files, so the panic is turned into an error.
func extractPDF(raw []byte) (paragraphs []model.Paragraph, err error) {
	if len(raw) == 0 {
		return nil, ErrNoText
	}
	defer func() {
		if r := recover(); r != nil {
			paragraphs = nil
			err = fmt.Errorf("read pdf failed: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("read pdf page %d failed: %w", i, err)
		}
		paragraphs = append(paragraphs, splitParagraphs(text, i)...)
	}
	return paragraphs, nil
}
