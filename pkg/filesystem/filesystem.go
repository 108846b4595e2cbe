package filesystem

import (
	"os"

	"github.com/core-tools/edr-gen-go/pkg/errors"
	"github.com/core-tools/edr-gen-go/pkg/events"
)

// NewFile creates a file at path. Creating a path that already exists is
// a failure, so repeated runs of the same command list stay observable.
func NewFile(path string) (events.Event, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return events.Event{}, errors.NewIOError("unable to create file", err).WithContext("path", path)
	}
	if err := file.Close(); err != nil {
		return events.Event{}, errors.NewIOError("unable to close created file", err).WithContext("path", path)
	}
	return fileEvent(events.ActivityFileCreate, path), nil
}

// ModFile appends a single NUL byte to an existing file. The file must
// already exist; modification never creates it.
func ModFile(path string) (events.Event, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return events.Event{}, errors.NewIOError("unable to open file for modification", err).WithContext("path", path)
	}
	_, writeErr := file.Write([]byte{0})
	closeErr := file.Close()
	if writeErr != nil {
		return events.Event{}, errors.NewIOError("unable to modify file", writeErr).WithContext("path", path)
	}
	if closeErr != nil {
		return events.Event{}, errors.NewIOError("unable to close modified file", closeErr).WithContext("path", path)
	}
	return fileEvent(events.ActivityFileModify, path), nil
}

// DeleteFile removes the file at path
func DeleteFile(path string) (events.Event, error) {
	if err := os.Remove(path); err != nil {
		return events.Event{}, errors.NewIOError("unable to delete file", err).WithContext("path", path)
	}
	return fileEvent(events.ActivityFileDelete, path), nil
}

func fileEvent(activity, path string) events.Event {
	return events.Event{
		Kind:      events.EventKindFile,
		Timestamp: events.NewTimestamp(),
		Activity:  activity,
		FilePath:  path,
	}
}
