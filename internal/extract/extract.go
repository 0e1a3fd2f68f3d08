// Package extract turns uploaded résumé files into plain text.
package extract

import (
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const MaxFileSize = 10 << 20

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("file is empty")
	ErrTooLarge        = errors.New("file exceeds 10 MB")
	ErrNoText          = errors.New("no readable text in file")
)

var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

// MimeType reports the content type for a supported file name, or "".
func MimeType(name string) string {
	return mimeTypes[strings.ToLower(filepath.Ext(name))]
}

type Extractor struct {
	log *logrus.Logger
}

func New(log *logrus.Logger) *Extractor {
	if log == nil {
		log = logrus.New()
	}
	return &Extractor{log: log}
}

// Extract dispatches on the file extension. PDFs and DOCX files that the
// structured readers cannot handle fall back to scraping printable runs.
func (e *Extractor) Extract(name string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := mimeTypes[ext]; !ok {
		return "", ErrUnsupportedType
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if len(data) > MaxFileSize {
		return "", ErrTooLarge
	}

	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = PDFText(data)
	case ".docx":
		text, err = DOCXText(data)
	case ".txt":
		if !utf8.Valid(data) {
			return "", ErrNoText
		}
		text = string(data)
	}

	if err != nil || strings.TrimSpace(text) == "" {
		e.log.WithError(err).WithField("file", name).Warn("structured extraction failed, scraping printable text")
		text = PrintableText(data)
	}

	text = normalize(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

var (
	printableRun = regexp.MustCompile(`[\x20-\x7E]{4,}`)
	spaceRun     = regexp.MustCompile(`[ \t]+`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

// PrintableText keeps runs of at least four printable ASCII characters.
func PrintableText(data []byte) string {
	runs := printableRun.FindAll(data, -1)
	parts := make([]string, 0, len(runs))
	for _, r := range runs {
		s := strings.TrimSpace(string(r))
		if hasLetters(s) {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func hasLetters(s string) bool {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n >= 3
}

func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\x00", "")
	s = spaceRun.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
