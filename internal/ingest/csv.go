// Package ingest reads external tabular formats into Dataset snapshots.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/autoprep/internal/model"
	"github.com/Veraticus/autoprep/internal/profile"
)

// Ingestion errors.
var (
	ErrNoHeader     = errors.New("input has no header row")
	ErrEmptyHeader  = errors.New("header contains an empty column name")
	ErrDuplicateCol = errors.New("header contains a duplicate column name")
)

// missingLexicon holds the raw values treated as nulls, compared
// case-insensitively after trimming.
var missingLexicon = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
}

// ReadCSV reads a CSV stream into a dataset named name. The first row is the
// header and is required. Short rows are padded with nulls and long rows are
// truncated to the header width; both are counted and logged rather than
// treated as errors, since real exports are frequently ragged. Column types
// are inferred from the observed values.
func ReadCSV(r io.Reader, name string) (model.Dataset, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1 // ragged rows handled below
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.Dataset{}, ErrNoHeader
		}
		return model.Dataset{}, fmt.Errorf("failed to read header: %w", err)
	}

	seen := make(map[string]bool, len(header))
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
		if header[i] == "" {
			return model.Dataset{}, fmt.Errorf("%w: column %d", ErrEmptyHeader, i)
		}
		if seen[header[i]] {
			return model.Dataset{}, fmt.Errorf("%w: %q", ErrDuplicateCol, header[i])
		}
		seen[header[i]] = true
	}

	cells := make([][]model.Cell, len(header))
	var padded, truncated int

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.Dataset{}, fmt.Errorf("failed to read record: %w", err)
		}

		if len(record) > len(header) {
			truncated++
			record = record[:len(header)]
		} else if len(record) < len(header) {
			padded++
		}

		for i := range header {
			if i < len(record) {
				cells[i] = append(cells[i], toCell(record[i]))
			} else {
				cells[i] = append(cells[i], model.NullCell())
			}
		}
	}

	if padded > 0 || truncated > 0 {
		slog.Warn("Ragged rows in CSV input",
			"dataset", name,
			"padded", padded,
			"truncated", truncated)
	}

	dataset := model.Dataset{Name: name, Columns: make([]model.Column, len(header))}
	for i, colName := range header {
		dataset.Columns[i] = model.Column{
			Name:  colName,
			Type:  profile.InferColumnType(cells[i]),
			Cells: cells[i],
		}
	}

	slog.Info("Ingested CSV dataset",
		"dataset", name,
		"rows", dataset.RowCount(),
		"columns", dataset.ColumnCount())

	return dataset, nil
}

// toCell maps a raw CSV field to a cell, normalizing the missing-value
// lexicon to nulls.
func toCell(raw string) model.Cell {
	if missingLexicon[strings.ToLower(strings.TrimSpace(raw))] {
		return model.NullCell()
	}
	return model.Cell{Value: raw}
}

// stripBOM removes a UTF-8 byte order mark from the start of the stream.
// Spreadsheet exports routinely carry one.
func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, err := io.ReadFull(r, buf)
	if err != nil {
		// Short input: hand back whatever was read.
		return strings.NewReader(string(buf[:n]))
	}
	if buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
		return r
	}
	return io.MultiReader(strings.NewReader(string(buf[:n])), r)
}
