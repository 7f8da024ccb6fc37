// Package extract turns uploaded files into ordered paragraphs and tables.
package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"

	"clausewise/internal/model"
)

const (
	MimePDF      = "application/pdf"
	MimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeHTML     = "text/html"
	MimePlain    = "text/plain"
	MimeMarkdown = "text/markdown"
	// MimeMSWord is the binary Word format. It is recognized only to be
	// rejected with a pointer to .docx.
	MimeMSWord   = "application/msword"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrNoText          = errors.New("document contains no extractable text")
	ErrLegacyWord      = fmt.Errorf("%w: legacy Word .doc, save it as .docx", ErrUnsupportedType)
)

var (
	blankLinePattern  = regexp.MustCompile(`\n\s*\n`)
	whitespacePattern = regexp.MustCompile(`[ \t\f\v]+`)
)

// SupportedMimeTypes lists what Local can read.
func SupportedMimeTypes() []string {
	return []string{MimePDF, MimeDOCX, MimeHTML, MimePlain, MimeMarkdown}
}

// BaseMimeType drops parameters such as charset.
func BaseMimeType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

func Supported(mimeType string) bool {
	base := BaseMimeType(mimeType)
	for _, m := range SupportedMimeTypes() {
		if m == base {
			return true
		}
	}
	return false
}

// Local extracts text in-process without a remote OCR service.
type Local struct {
	html *md.Converter
}

func NewLocal() *Local {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Local{html: converter}
}

// Supports reports whether mimeType is one Extract can read.
func (l *Local) Supports(mimeType string) bool {
	return Supported(mimeType)
}

// Extract returns the text layout of raw. The DocumentID of the result is left
// for the caller to fill in.
func (l *Local) Extract(ctx context.Context, raw []byte, mimeType string) (*model.ExtractedText, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		paragraphs []model.Paragraph
		tables     []model.Table
		err        error
	)
	switch BaseMimeType(mimeType) {
	case MimePDF:
		paragraphs, err = extractPDF(raw)
	case MimeDOCX:
		paragraphs, tables, err = extractDOCX(raw)
	case MimeHTML:
		paragraphs, err = l.extractHTML(raw)
	case MimePlain, MimeMarkdown:
		paragraphs = splitParagraphs(string(raw), 1)
	case MimeMSWord:
		return nil, ErrLegacyWord
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	if err != nil {
		return nil, err
	}
	if len(paragraphs) == 0 {
		return nil, ErrNoText
	}
	return model.NewExtractedText("", paragraphs, tables), nil
}

func (l *Local) extractHTML(raw []byte) ([]model.Paragraph, error) {
	markdown, err := l.html.ConvertString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("convert html failed: %w", err)
	}
	return splitParagraphs(markdown, 1), nil
}

// splitParagraphs cuts text on blank lines and normalizes inner whitespace.
func splitParagraphs(text string, page int) []model.Paragraph {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []model.Paragraph
	for _, block := range blankLinePattern.Split(text, -1) {
		lines := strings.Split(block, "\n")
		for i := range lines {
			lines[i] = strings.TrimSpace(whitespacePattern.ReplaceAllString(lines[i], " "))
		}
		joined := strings.TrimSpace(strings.Join(lines, " "))
		if joined == "" {
			continue
		}
		out = append(out, model.Paragraph{Text: joined, Page: page})
	}
	return out
}
