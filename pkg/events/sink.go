package events

import (
	"encoding/csv"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/core-tools/edr-gen-go/pkg/errors"
	"github.com/core-tools/edr-gen-go/pkg/logging"
)

// Sink accepts audit records and persists them durably before returning.
// A non-nil error from either method means the record was lost; callers
// treat that as loss of audit integrity.
type Sink interface {
	LogEvent(event Event) error
	LogError(genErr *errors.GenerationError) error
	Close() error
}

// CSVSink writes events as delimiter-separated rows. Rows are flexible:
// events carry the full column set, error records only three columns.
type CSVSink struct {
	file   *os.File
	writer *csv.Writer
	logger logging.Logger

	// identity of the generator process itself, filled into events that
	// carry no process information of their own
	username string
	procName string
	procCmd  string
	procID   string
}

// NewCSVSink opens (or truncates) the output file and captures the
// generator's own process identity for event defaulting
func NewCSVSink(path string, logger logging.Logger) (*CSVSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.NewIOError("unable to open output file", err).WithContext("path", path)
	}

	sink := &CSVSink{
		file:   file,
		writer: csv.NewWriter(file),
		logger: logger,
		procID: strconv.Itoa(os.Getpid()),
	}

	if u, err := user.Current(); err == nil {
		sink.username = u.Username
	} else {
		logger.Warnf("Unable to resolve current username: %v", err)
	}
	if exe, err := os.Executable(); err == nil {
		sink.procName = filepath.Base(exe)
	} else {
		logger.Warnf("Unable to resolve own executable name: %v", err)
	}
	sink.procCmd = strings.Join(os.Args, " ")

	return sink, nil
}

// LogEvent persists one event record. Events without process fields are
// attributed to the generator process itself.
func (s *CSVSink) LogEvent(event Event) error {
	event.Username = s.username
	if event.ProcName == "" {
		event.ProcName = s.procName
	}
	if event.ProcCmd == "" {
		event.ProcCmd = s.procCmd
	}
	if event.ProcID == "" {
		event.ProcID = s.procID
	}

	return s.write(event.Fields())
}

// LogError persists one error record
func (s *CSVSink) LogError(genErr *errors.GenerationError) error {
	record := ErrorEvent{
		Kind:      EventKindError,
		Timestamp: NewTimestamp(),
		Message:   string(genErr.Kind) + ": " + genErr.Message,
	}
	return s.write(record.Fields())
}

func (s *CSVSink) write(fields []string) error {
	if err := s.writer.Write(fields); err != nil {
		return errors.NewLoggingError("unable to write record", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return errors.NewLoggingError("unable to flush record", err)
	}
	return nil
}

func (s *CSVSink) Close() error {
	s.writer.Flush()
	flushErr := s.writer.Error()
	closeErr := s.file.Close()
	if flushErr != nil {
		return errors.NewLoggingError("unable to flush output file", flushErr)
	}
	if closeErr != nil {
		return errors.NewLoggingError("unable to close output file", closeErr)
	}
	return nil
}
