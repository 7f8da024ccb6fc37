package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainText(t *testing.T) {
	raw := "1. Rent is due on the first day.\r\n\r\n2. The deposit of $1,000\n   is held by the landlord.\n\n\n\n"
	out, err := NewLocal().Extract(context.Background(), []byte(raw), "text/plain; charset=utf-8")
	require.NoError(t, err)

	paras := out.ParagraphList()
	require.Len(t, paras, 2)
	assert.Equal(t, "1. Rent is due on the first day.", paras[0].Text)
	assert.Equal(t, "2. The deposit of $1,000 is held by the landlord.", paras[1].Text)
	assert.Equal(t, 0, paras[0].Index)
	assert.Equal(t, 1, paras[1].Index)
	assert.Equal(t, 1, paras[1].Page)
	assert.Equal(t, 1, out.PageCount)
}

func TestExtractHTML(t *testing.T) {
	raw := `<html><body><h1>Terms</h1><p>We may <b>suspend</b> your account.</p><p>Fees are final.</p></body></html>`
	out, err := NewLocal().Extract(context.Background(), []byte(raw), MimeHTML)
	require.NoError(t, err)

	paras := out.ParagraphList()
	require.Len(t, paras, 3)
	assert.Equal(t, "# Terms", paras[0].Text)
	assert.Contains(t, paras[1].Text, "suspend")
}

func TestExtractDOCX(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>The tenant shall pay rent monthly.</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Late fees </w:t></w:r><w:r><w:t>apply.</w:t></w:r></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Fee</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Amount</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>Cleaning</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>$200</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
<w:p><w:r><w:br w:type="page"/></w:r></w:p>
<w:p><w:r><w:t>Signed by both parties.</w:t></w:r></w:p>
</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	out, err := NewLocal().Extract(context.Background(), buf.Bytes(), MimeDOCX)
	require.NoError(t, err)

	paras := out.ParagraphList()
	require.Len(t, paras, 3)
	assert.Equal(t, "The tenant shall pay rent monthly.", paras[0].Text)
	assert.Equal(t, "Late fees apply.", paras[1].Text)
	assert.Equal(t, "Signed by both parties.", paras[2].Text)
	assert.Equal(t, 2, paras[2].Page)

	tables := out.TableList()
	require.Len(t, tables, 1)
	assert.Equal(t, [][]string{{"Fee", "Amount"}, {"Cleaning", "$200"}}, tables[0].Rows)
}

func TestExtractErrors(t *testing.T) {
	l := NewLocal()

	_, err := l.Extract(context.Background(), []byte("x"), "image/png")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = l.Extract(context.Background(), []byte("x"), MimeMSWord)
	assert.ErrorIs(t, err, ErrLegacyWord)
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.False(t, l.Supports(MimeMSWord))

	_, err = l.Extract(context.Background(), []byte("  \n\n "), MimePlain)
	assert.ErrorIs(t, err, ErrNoText)

	_, err = l.Extract(context.Background(), []byte("not a zip"), MimeDOCX)
	assert.Error(t, err)

	_, err = l.Extract(context.Background(), []byte("%PDF-garbage"), MimePDF)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Extract(ctx, []byte("text"), MimePlain)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("text/html; charset=utf-8"))
	assert.True(t, Supported(MimePDF))
	assert.False(t, Supported("image/png"))
}
