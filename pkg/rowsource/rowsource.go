package rowsource

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/core-tools/edr-gen-go/pkg/errors"
)

// Source yields command rows in file order. Next returns io.EOF once the
// source is exhausted; any other error means the row was unreadable.
type Source interface {
	Next() ([]string, error)
	Close() error
}

// CSVSource reads delimiter-separated rows from a file. Rows may have
// different field counts, since different verbs take different argument
// lists; no header row is expected.
type CSVSource struct {
	file   *os.File
	reader *csv.Reader
}

// NewCSVSource opens the command file for reading with the given field
// delimiter
func NewCSVSource(path string, delimiter rune) (*CSVSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError("unable to open input file", err).WithContext("path", path)
	}

	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	return &CSVSource{
		file:   file,
		reader: reader,
	}, nil
}

func (s *CSVSource) Next() ([]string, error) {
	fields, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.NewInputFormatError("unable to read row", err)
	}
	return fields, nil
}

func (s *CSVSource) Close() error {
	return s.file.Close()
}
