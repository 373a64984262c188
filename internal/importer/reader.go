package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInputFormat marks a file that cannot be read at all (wrong delimiter,
// no header, not delimited text). It aborts the import before any row is
// processed.
var ErrInputFormat = errors.New("unreadable import file")

// ReadRecords reads a semicolon-delimited export file into raw records.
// Trailing delimiters and quoted currency-formatted cells are tolerated;
// ragged rows are padded or truncated to the header width.
func ReadRecords(r io.Reader) ([]RawRecord, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInputFormat, err)
	}

	// A trailing delimiter leaves an empty last column name; drop it.
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: header has %d columns", ErrInputFormat, len(header))
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var records []RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInputFormat, err)
		}

		// Skip fully empty lines
		empty := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}

		record := make(RawRecord, len(header))
		for i, name := range header {
			if i < len(row) {
				record[name] = row[i]
			}
		}
		records = append(records, record)
	}

	return records, nil
}
