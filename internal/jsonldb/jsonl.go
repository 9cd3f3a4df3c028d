// Package jsonldb reads and writes records as JSON Lines, one object per line.
//
// It is the import and export format of the command line tool.
package jsonldb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/maruel/tabledb/internal/table"
)

// maxLine bounds a single encoded record.
const maxLine = 16 << 20

// Decode calls fn for every non-empty line of r, in order. line is 1-based.
//
// Numbers are decoded as json.Number so that integers keep their exact text
// until the table coerces them.
func Decode(r io.Reader, fn func(line int, rec map[string]any) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLine)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		d := json.NewDecoder(bytes.NewReader(b))
		d.UseNumber()
		var rec map[string]any
		if err := d.Decode(&rec); err != nil {
			return fmt.Errorf("failed to unmarshal line %d: %w", line, err)
		}
		if rec == nil {
			return fmt.Errorf("line %d: expected an object", line)
		}
		if err := fn(line, rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read records: %w", err)
	}
	return nil
}

// ReadFile returns all records of a JSON Lines file.
func ReadFile(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	var out []map[string]any
	err = Decode(f, func(_ int, rec map[string]any) error {
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Encode writes every record as one line and returns how many were written.
func Encode(w io.Writer, recs iter.Seq[table.Record]) (int, error) {
	writer := bufio.NewWriter(w)
	n := 0
	for r := range recs {
		data, err := json.Marshal(r)
		if err != nil {
			return n, fmt.Errorf("failed to marshal row: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return n, fmt.Errorf("failed to write row: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return n, fmt.Errorf("failed to write newline: %w", err)
		}
		n++
	}
	if err := writer.Flush(); err != nil {
		return n, fmt.Errorf("failed to flush writer: %w", err)
	}
	return n, nil
}

// WriteFile replaces path with the records.
func WriteFile(path string, recs iter.Seq[table.Record]) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301
		return 0, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path) //nolint:gosec // G304: path is chosen by the user
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := Encode(f, recs)
	if err2 := f.Close(); err == nil && err2 != nil {
		err = fmt.Errorf("failed to close %s: %w", path, err2)
	}
	return n, err
}
