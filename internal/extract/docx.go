package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"clausewise/internal/model"
)

const docxBody = "word/document.xml"

// extractDOCX walks the WordprocessingML body. Paragraphs inside tables are
// collected as table cells instead of body paragraphs.
func extractDOCX(raw []byte) ([]model.Paragraph, []model.Table, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, nil, fmt.Errorf("open docx failed: %w", err)
	}
	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBody {
			body = f
			break
		}
	}
	if body == nil {
		return nil, nil, fmt.Errorf("open docx failed: missing %s", docxBody)
	}
	rc, err := body.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open docx body failed: %w", err)
	}
	defer rc.Close()

	var (
		paragraphs []model.Paragraph
		tables     []model.Table
		page       = 1
		tableDepth int
		inText     bool
		para       strings.Builder
		cell       strings.Builder
		row        []string
		rows       [][]string
	)

	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("parse docx body failed: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					rows = nil
				}
			case "tr":
				if tableDepth == 1 {
					row = nil
				}
			case "tc":
				if tableDepth == 1 {
					cell.Reset()
				}
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "tab":
				para.WriteString(" ")
			case "br":
				if attrValue(el, "type") == "page" {
					page++
				} else {
					para.WriteString(" ")
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.Join(strings.Fields(para.String()), " ")
				if text == "" {
					continue
				}
				if tableDepth > 0 {
					if cell.Len() > 0 {
						cell.WriteString(" ")
					}
					cell.WriteString(text)
					continue
				}
				paragraphs = append(paragraphs, model.Paragraph{Text: text, Page: page})
			case "tc":
				if tableDepth == 1 {
					row = append(row, cell.String())
				}
			case "tr":
				if tableDepth == 1 {
					rows = append(rows, row)
				}
			case "tbl":
				if tableDepth == 1 && len(rows) > 0 {
					tables = append(tables, model.Table{Page: page, Rows: rows})
				}
				tableDepth--
			}
		case xml.CharData:
			if inText {
				para.Write(el)
			}
		}
	}
	return paragraphs, tables, nil
}

func attrValue(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
