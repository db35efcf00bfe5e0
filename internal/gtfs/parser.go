package gtfs

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
)

// ParseZip extracts and parses routes, stops and trips from a GTFS zip.
// StopTimes are NOT loaded into memory here; they are streamed during import.
func ParseZip(path string, logger *slog.Logger) (*Feed, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	feed := &Feed{}
	seen := make(map[string]bool)

	for _, f := range r.File {
		switch f.Name {
		case "routes.txt":
			feed.Routes, err = parseCSVFile[Route](f)
		case "stops.txt":
			feed.Stops, err = parseCSVFile[Stop](f)
		case "trips.txt":
			feed.Trips, err = parseCSVFile[Trip](f)
		default:
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", f.Name, err)
		}
		seen[f.Name] = true
	}

	for _, name := range []string{"routes.txt", "stops.txt", "trips.txt"} {
		if !seen[name] {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, name)
		}
	}

	logger.Info("GTFS feed parsed",
		"routes", len(feed.Routes),
		"stops", len(feed.Stops),
		"trips", len(feed.Trips),
	)

	return feed, nil
}

// ErrMissingFile is returned when a required GTFS file is absent from the zip.
var ErrMissingFile = errors.New("gtfs: required file missing")

// parseCSVFile reads a single CSV file from the zip and decodes it into a slice of T.
func parseCSVFile[T any](f *zip.File) ([]T, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	// Strip BOM from first field if present
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\xef\xbb\xbf")
	}

	// Build column-to-field index
	fieldMap := buildFieldMap[T](header)

	var results []T
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		item := decodeRecord[T](record, fieldMap)
		results = append(results, item)
	}

	return results, nil
}

// CSVStreamer yields one record at a time from a CSV file in a zip.
// Used for stop_times.txt to avoid loading it into memory.
type CSVStreamer struct {
	rc       io.ReadCloser
	reader   *csv.Reader
	fieldMap []fieldMapping
}

type fieldMapping struct {
	csvIndex   int
	fieldIndex int
}

// OpenCSVStream opens a CSV file from the zip for streaming.
func OpenCSVStream[T any](f *zip.File) (*CSVStreamer, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	reader := csv.NewReader(rc)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\xef\xbb\xbf")
	}

	return &CSVStreamer{
		rc:       rc,
		reader:   reader,
		fieldMap: buildFieldMap[T](header),
	}, nil
}

// Next reads the next record. Returns io.EOF when done.
func (s *CSVStreamer) Next(out any) error {
	record, err := s.reader.Read()
	if err != nil {
		return err
	}
	v := reflect.ValueOf(out).Elem()
	for _, fm := range s.fieldMap {
		if fm.csvIndex < len(record) {
			v.Field(fm.fieldIndex).SetString(record[fm.csvIndex])
		}
	}
	return nil
}

// Close releases the underlying reader.
func (s *CSVStreamer) Close() error {
	return s.rc.Close()
}

// buildFieldMap creates a mapping from CSV column positions to struct field positions.
func buildFieldMap[T any](header []string) []fieldMapping {
	var t T
	typ := reflect.TypeOf(t)

	// Build a map of csv tag -> field index
	tagToField := make(map[string]int)
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("csv")
		if tag != "" {
			tagToField[tag] = i
		}
	}

	var mappings []fieldMapping
	for csvIdx, colName := range header {
		colName = strings.TrimSpace(colName)
		if fieldIdx, ok := tagToField[colName]; ok {
			mappings = append(mappings, fieldMapping{csvIndex: csvIdx, fieldIndex: fieldIdx})
		}
	}
	return mappings
}

// decodeRecord fills a struct T from a CSV record using the field mapping.
func decodeRecord[T any](record []string, fieldMap []fieldMapping) T {
	var t T
	v := reflect.ValueOf(&t).Elem()
	for _, fm := range fieldMap {
		if fm.csvIndex < len(record) {
			v.Field(fm.fieldIndex).SetString(record[fm.csvIndex])
		}
	}
	return t
}
