package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct{ name, content string }{
		{"[Content_Types].xml", `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{"word/document.xml", body},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatalf("zip create: %v", err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

const docxBodyXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">Senior </w:t></w:r><w:r><w:t>Go Engineer</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>Skills:</w:t><w:tab/><w:t>Postgres</w:t></w:r></w:p>
</w:body>
</w:document>`

func TestExtract_PlainText(t *testing.T) {
	text, err := Extract([]byte("\xef\xbb\xbfJane Doe\r\n\r\n\r\nGo engineer   \n"), "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Jane Doe\n\nGo engineer" {
		t.Errorf("text = %q", text)
	}
}

func TestExtract_DOCX(t *testing.T) {
	text, err := Extract(buildDOCX(t, docxBodyXML), MIMEDOCX)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Jane Doe\nSenior Go Engineer\n\nSkills:\tPostgres"
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

func TestExtract_DOCXWithoutBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("other.txt")
	_, _ = w.Write([]byte("hello"))
	_ = zw.Close()

	_, err := Extract(buf.Bytes(), MIMEDOCX)
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtract_MalformedPDF(t *testing.T) {
	_, err := Extract([]byte("%PDF-1.4\n1 0 obj garbage\n%%EOF"), MIMEPDF)
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}

func TestExtract_Unsupported(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	_, err := Extract(png, "image/png")
	if !errors.Is(err, domain.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestExtract_Empty(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("   \n\n  ")} {
		if _, err := Extract(data, "text/plain"); !errors.Is(err, domain.ErrExtractionFailed) {
			t.Errorf("expected ErrExtractionFailed for %q, got %v", data, err)
		}
	}
}

func TestDetect_DeclaredTypeIgnoredForKnownContent(t *testing.T) {
	if got := Detect([]byte("plain words"), MIMEPDF); got != MIMEPlain {
		t.Errorf("Detect = %q, want %q", got, MIMEPlain)
	}
	if got := Detect([]byte("%PDF-1.7\n"), "text/plain"); got != MIMEPDF {
		t.Errorf("Detect = %q, want %q", got, MIMEPDF)
	}
}
