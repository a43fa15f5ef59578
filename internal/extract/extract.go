// Package extract pulls plain text out of uploaded résumé files.
package extract

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

// Supported MIME types.
const (
	MIMEPDF   = "application/pdf"
	MIMEDOCX  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEPlain = "text/plain"
)

// Extract returns the text of data. The type is sniffed from the content;
// declared is used only when sniffing is inconclusive (generic zip or binary).
func Extract(data []byte, declared string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", domain.ErrExtractionFailed)
	}

	kind := Detect(data, declared)

	var (
		text string
		err  error
	)
	switch kind {
	case MIMEPDF:
		text, err = extractPDF(data)
	case MIMEDOCX:
		text, err = extractDOCX(data)
	case MIMEPlain:
		text, err = extractPlain(data)
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedType, kind)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrExtractionFailed, kind, err)
	}

	text = normalize(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s: no text found", domain.ErrExtractionFailed, kind)
	}
	return text, nil
}

// Detect resolves the effective type of data, returning one of the
// supported constants or the sniffed MIME string.
func Detect(data []byte, declared string) string {
	m := mimetype.Detect(data)
	switch {
	case m.Is(MIMEPDF):
		return MIMEPDF
	case m.Is(MIMEDOCX):
		return MIMEDOCX
	case isText(m):
		return MIMEPlain
	}

	base, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(declared)), ";")
	if m.Is("application/zip") || m.Is("application/octet-stream") {
		switch base {
		case MIMEDOCX, MIMEPDF:
			return base
		}
	}
	return m.String()
}

// isText reports whether m is text/plain or one of its subtypes (csv, json, ...).
func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(MIMEPlain) {
			return true
		}
	}
	return false
}

func extractPlain(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text is not valid UTF-8")
	}
	return string(data), nil
}

// normalize collapses runs of blank lines and trims trailing spaces.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, l := range lines {
		l = strings.TrimRight(l, " \t")
		if strings.TrimSpace(l) == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
