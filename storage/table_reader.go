package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"adreport-forensics/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadTableFile opens a .csv or .tsv report export and loads it as a Table.
func ReadTableFile(path string) (*models.Table, error) {
	comma := ','
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
	case ".tsv":
		comma = '\t'
	default:
		return nil, &models.MalformedInputError{Source: path, Reason: "expected a .csv or .tsv file"}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report %q: %w", path, err)
	}
	defer f.Close()

	return readDelimited(f, filepath.Base(path), comma)
}

// ReadTable loads a comma-separated report from r. Every cell is kept as
// text; numeric coercion happens in the cleaner. A header without data rows
// is an empty table, not an error.
func ReadTable(r io.Reader, source string) (*models.Table, error) {
	return readDelimited(r, source, ',')
}

// readDelimited takes the header from the raw first row, so repeated column
// names reach the column mapper unchanged, and lets gota parse the body.
func readDelimited(r io.Reader, source string, comma rune) (*models.Table, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	data, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("read report %q: %w", source, err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = comma
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &models.MalformedInputError{Source: source, Reason: "no header row"}
	}
	if err != nil {
		return nil, &models.MalformedInputError{Source: source, Reason: "unreadable header", Err: err}
	}
	if _, err := cr.Read(); errors.Is(err, io.EOF) {
		return models.NewTable(source, header, nil), nil
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.WithDelimiter(comma),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, &models.MalformedInputError{Source: source, Reason: "unreadable csv", Err: df.Err}
	}
	if df.Ncol() != len(header) {
		return nil, &models.MalformedInputError{
			Source: source,
			Reason: fmt.Sprintf("header has %d columns, body has %d", len(header), df.Ncol()),
		}
	}

	// Records repeats gota's own (de-duplicated) names as its first row.
	return models.NewTable(source, header, df.Records()[1:]), nil
}
