package events

import (
	"time"
)

// Event kinds as they appear in the sink-facing kind column
const (
	EventKindProcess = "Process Activity"
	EventKindFile    = "File Activity"
	EventKindNetwork = "Network Activity"
	EventKindError   = "Error"
)

// Activity labels describing the executed action
const (
	ActivityProcessStart = "process started"
	ActivityFileCreate   = "file created"
	ActivityFileModify   = "file modified"
	ActivityFileDelete   = "file deleted"
	ActivityNetConnect   = "network connection established"
)

// Event is one flat audit record describing a single executed action.
// Every event kind shares this shape; fields that do not apply to a kind
// are left as empty strings so the sink never branches on kind.
type Event struct {
	Kind       string
	Timestamp  string
	Username   string
	ProcName   string
	ProcCmd    string
	ProcID     string
	Activity   string
	FilePath   string
	SourceAddr string
	SourcePort string
	DestAddr   string
	DestPort   string
	BytesSent  string
	Protocol   string
}

// ErrorEvent is the audit record for a failed action
type ErrorEvent struct {
	Kind      string
	Timestamp string
	Message   string
}

// Fields returns the sink-facing column values in schema order
func (e Event) Fields() []string {
	return []string{
		e.Kind,
		e.Timestamp,
		e.Username,
		e.ProcName,
		e.ProcCmd,
		e.ProcID,
		e.Activity,
		e.FilePath,
		e.SourceAddr,
		e.SourcePort,
		e.DestAddr,
		e.DestPort,
		e.BytesSent,
		e.Protocol,
	}
}

// Fields returns the sink-facing column values in schema order
func (e ErrorEvent) Fields() []string {
	return []string{
		e.Kind,
		e.Timestamp,
		e.Message,
	}
}

// NewTimestamp returns the current time in the sink-facing timestamp format
func NewTimestamp() string {
	return time.Now().Format(time.RFC3339)
}
