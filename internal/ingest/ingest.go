// Package ingest reads call intake manifests. A manifest lists recordings to
// register for analysis: one row per call carrying the customer's contact
// details and the path to the audio file.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Record is one manifest row after header mapping and validation.
type Record struct {
	CustomerName  string
	Phone         string
	Email         string
	AudioFilePath string
}

// Validate reports the first missing required field.
func (r Record) Validate() error {
	switch {
	case r.CustomerName == "":
		return eris.New("customer name is required")
	case r.Phone == "":
		return eris.New("phone is required")
	case r.AudioFilePath == "":
		return eris.New("audio file path is required")
	}
	return nil
}

// headerAliases maps accepted (lowercased) header names to canonical columns.
var headerAliases = map[string]string{
	"name":            "name",
	"customer":        "name",
	"customer_name":   "name",
	"full_name":       "name",
	"phone":           "phone",
	"phone_number":    "phone",
	"telephone":       "phone",
	"email":           "email",
	"email_address":   "email",
	"audio":           "audio",
	"audio_file":      "audio",
	"audio_path":      "audio",
	"audio_file_path": "audio",
	"recording":       "audio",
	"recording_path":  "audio",
}

// ReadManifest loads an intake manifest, dispatching on the file extension.
// The first row must be a header naming at least the name, phone, and audio
// columns; the email column is optional.
func ReadManifest(ctx context.Context, path string) ([]Record, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "ingest: open manifest %s", path)
		}
		defer f.Close()

		rowCh, errCh := StreamCSV(ctx, f, CSVOptions{})
		var rows [][]string
		for row := range rowCh {
			rows = append(rows, row)
		}
		if err := <-errCh; err != nil {
			return nil, err
		}
		return buildRecords(rows)
	case ".xlsx":
		rows, err := ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, err
		}
		return buildRecords(rows)
	default:
		return nil, eris.Errorf("ingest: unsupported manifest format %q (want .csv or .xlsx)", ext)
	}
}

// buildRecords maps header-addressed rows onto Records. Blank rows are
// skipped; a row missing a required field fails the whole manifest so a
// partial import never happens silently.
func buildRecords(rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return nil, eris.New("ingest: empty manifest")
	}
	cols, err := resolveHeader(rows[0])
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		rec := Record{
			CustomerName:  field(row, cols["name"]),
			Phone:         field(row, cols["phone"]),
			Email:         field(row, cols["email"]),
			AudioFilePath: field(row, cols["audio"]),
		}
		if err := rec.Validate(); err != nil {
			// Row numbers are 1-based and count the header.
			return nil, eris.Wrapf(err, "ingest: row %d", i+2)
		}
		records = append(records, rec)
	}
	return records, nil
}

func resolveHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		canon, ok := headerAliases[strings.ToLower(strings.TrimSpace(h))]
		if !ok {
			continue
		}
		if _, dup := cols[canon]; !dup {
			cols[canon] = i
		}
	}
	for _, required := range []string{"name", "phone", "audio"} {
		if _, ok := cols[required]; !ok {
			return nil, eris.Errorf("ingest: manifest header is missing a %s column", required)
		}
	}
	if _, ok := cols["email"]; !ok {
		cols["email"] = -1
	}
	return cols, nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func blankRow(row []string) bool {
	for _, f := range row {
		if f != "" {
			return false
		}
	}
	return true
}
