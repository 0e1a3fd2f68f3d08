package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// SetLicense registers a metered unidoc key. Without one unipdf may refuse
// to extract and PDFs go through the printable-text fallback.
func SetLicense(key string) error {
	if key == "" {
		return nil
	}
	return license.SetMeteredKey(key)
}

func PDFText(data []byte) (string, error) {
	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("page count: %w", err)
	}
	if numPages == 0 {
		return "", fmt.Errorf("pdf has no pages")
	}

	var b strings.Builder
	var lastErr error
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			lastErr = err
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			lastErr = err
			continue
		}
		text, err := ex.ExtractText()
		if err != nil {
			lastErr = err
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			b.WriteString(text)
			b.WriteString("\n\n")
		}
	}

	if b.Len() == 0 {
		if lastErr != nil {
			return "", fmt.Errorf("extract pdf text: %w", lastErr)
		}
		return "", ErrNoText
	}
	return b.String(), nil
}
