package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"
)

type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ResumeObjectName keeps archived résumés grouped by day and session.
func ResumeObjectName(token, fileName string, at time.Time) string {
	base := unsafeName.ReplaceAllString(path.Base(strings.ReplaceAll(fileName, "\\", "/")), "_")
	if base == "" || base == "." || base == "_" {
		base = "resume"
	}
	return fmt.Sprintf("resumes/%s/%s/%s", at.UTC().Format("2006/01/02"), token, base)
}
