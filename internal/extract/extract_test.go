package extract

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtractor() *Extractor {
	l, _ := test.NewNullLogger()
	return New(l)
}

func TestExtractRejects(t *testing.T) {
	e := newExtractor()

	_, err := e.Extract("cv.png", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = e.Extract("cv.pdf", nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = e.Extract("cv.txt", make([]byte, MaxFileSize+1))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = e.Extract("cv.txt", []byte("   \n\t "))
	assert.ErrorIs(t, err, ErrNoText)
}

func TestExtractText(t *testing.T) {
	out, err := newExtractor().Extract("CV.TXT", []byte("Jane Doe\r\n\r\n\r\n\r\nGo   developer\t\tBerlin\n"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\n\nGo developer Berlin", out)
}

func TestExtractBrokenPDFFallsBack(t *testing.T) {
	data := []byte("%PDF-1.4\n\x00\x01garbage\x02(Senior Go Engineer)\x03 Tj\n")
	out, err := newExtractor().Extract("cv.pdf", data)
	require.NoError(t, err)
	assert.Contains(t, out, "Senior Go Engineer")
}

func TestPrintableText(t *testing.T) {
	out := PrintableText([]byte("\x00\x01Kubernetes\x02\x03ab\x04 1234 \x05Postgres tuning"))
	assert.Equal(t, "Kubernetes\nPostgres tuning", out)
}

func TestXMLToText(t *testing.T) {
	xml := `<w:body><w:p><w:r><w:t>Jane &amp; Co</w:t></w:r></w:p><w:p><w:r><w:t>Go</w:t><w:tab/><w:t>Redis</w:t></w:r></w:p></w:body>`
	assert.Equal(t, "Jane & Co\nGo Redis", xmlToText(xml))
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "application/pdf", MimeType("a.PDF"))
	assert.True(t, strings.HasPrefix(MimeType("a.docx"), "application/vnd.openxml"))
	assert.Empty(t, MimeType("a.exe"))
}
