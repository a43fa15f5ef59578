package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Format is the layout of a corpus file.
type Format string

// Supported formats.
const (
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// ParseFormat validates a format name. Empty selects JSONL.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSONL, nil
	case FormatJSONL, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q: want jsonl or csv", s)
	}
}

// malformedError is a record that cannot be decoded. The run counts it and
// moves on; any other decoder error ends the run.
type malformedError struct {
	err error
}

func (e *malformedError) Error() string { return e.err.Error() }

func (e *malformedError) Unwrap() error { return e.err }

// decoder yields entries until io.EOF. line is the position of the last
// entry returned, for logging.
type decoder interface {
	next() (Entry, error)
	line() int
}

func newDecoder(format Format, r io.Reader) (decoder, error) {
	switch format {
	case FormatCSV:
		return newCSVDecoder(r)
	default:
		return newJSONLDecoder(r), nil
	}
}

type jsonlDecoder struct {
	scanner *bufio.Scanner
	lineNum int
}

func newJSONLDecoder(r io.Reader) *jsonlDecoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &jsonlDecoder{scanner: sc}
}

func (d *jsonlDecoder) next() (Entry, error) {
	for d.scanner.Scan() {
		d.lineNum++
		raw := d.scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return Entry{}, &malformedError{err: err}
		}
		return e, nil
	}
	if err := d.scanner.Err(); err != nil {
		return Entry{}, fmt.Errorf("read input: %w", err)
	}
	return Entry{}, io.EOF
}

func (d *jsonlDecoder) line() int { return d.lineNum }

// csvDecoder maps columns by header name, so column order is free and
// unknown columns are ignored.
type csvDecoder struct {
	reader  *csv.Reader
	columns map[string]int
	lineNum int
}

func newCSVDecoder(r io.Reader) (*csvDecoder, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv input is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	if _, ok := columns["company_name"]; !ok {
		return nil, errors.New("csv header has no company_name column")
	}
	return &csvDecoder{reader: cr, columns: columns, lineNum: 1}, nil
}

func (d *csvDecoder) next() (Entry, error) {
	row, err := d.reader.Read()
	if err != nil {
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			d.lineNum = pe.Line
			return Entry{}, &malformedError{err: err}
		}
		if errors.Is(err, io.EOF) {
			return Entry{}, io.EOF
		}
		return Entry{}, fmt.Errorf("read input: %w", err)
	}
	d.lineNum, _ = d.reader.FieldPos(0)

	get := func(name string) string {
		if i, ok := d.columns[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}
	return Entry{
		CompanyName:   get("company_name"),
		FoundedYear:   ParseYear(get("founded_year")),
		Location:      get("location"),
		Industry:      get("industry"),
		LatestFunding: get("latest_funding"),
		Website:       get("website"),
		LinkedIn:      get("linkedin"),
		Description:   get("description"),
		EmbeddingText: get("embedding_text"),
	}, nil
}

func (d *csvDecoder) line() int { return d.lineNum }
