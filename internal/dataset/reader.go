package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFile loads every observation from a JSON array file. The FDA
// export is UTF-8 with a byte order mark; the mark is stripped if
// present. onRecord, if non-nil, is invoked after each decoded record
// with the running total.
func ReadFile(path string, onRecord func(count int)) ([]RawObservation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	records, err := Read(f, onRecord)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return records, nil
}

// Read decodes a JSON array of observations from r, streaming record
// by record so the full document is never held as one buffer.
func Read(r io.Reader, onRecord func(count int)) ([]RawObservation, error) {
	br := bufio.NewReader(r)
	if err := stripBOM(br); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("expected JSON array, got %v", tok)
	}

	var records []RawObservation
	for dec.More() {
		var rec RawObservation
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
		if onRecord != nil {
			onRecord(len(records))
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	return records, nil
}

func stripBOM(br *bufio.Reader) error {
	head, err := br.Peek(len(utf8BOM))
	if err != nil && err != io.EOF {
		return fmt.Errorf("peek: %w", err)
	}
	if bytes.Equal(head, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return fmt.Errorf("discard bom: %w", err)
		}
	}
	return nil
}
