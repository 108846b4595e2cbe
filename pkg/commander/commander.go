package commander

import (
	"io"
	"strconv"
	"time"

	"github.com/core-tools/edr-gen-go/pkg/errors"
	"github.com/core-tools/edr-gen-go/pkg/events"
	"github.com/core-tools/edr-gen-go/pkg/filesystem"
	"github.com/core-tools/edr-gen-go/pkg/logging"
	"github.com/core-tools/edr-gen-go/pkg/network"
	"github.com/core-tools/edr-gen-go/pkg/process"
	"github.com/core-tools/edr-gen-go/pkg/rowsource"
)

// Options configures a Commander
type Options struct {
	// GraceWindow is passed through to the process lifecycle manager
	GraceWindow time.Duration
}

// Commander reads command rows one at a time, validates them, routes each
// to the matching actor, and converts outcomes into audit records or
// counted errors. It owns the process lifecycle manager exclusively; the
// row source and the sink are injected collaborators.
//
// The owner must call Close once the session is over; otherwise any still
// tracked child processes are leaked.
type Commander struct {
	source    rowsource.Source
	sink      events.Sink
	manager   *process.Manager // nil when process spawning is unavailable
	logger    logging.Logger
	numErrors int
	sinkErr   error
	exhausted bool
}

// NewCommander builds a Commander over the given row source and sink. A
// failure to initialize the process lifecycle manager is not fatal: the
// commander degrades per-verb, rejecting process commands with a
// user_permissions error while every other verb keeps working.
func NewCommander(source rowsource.Source, sink events.Sink, options Options, logger logging.Logger) *Commander {
	manager, err := process.NewManager(options.GraceWindow, logging.NewLoggerFrom("process-manager , ", logger))
	if err != nil {
		logger.Warnf("Process lifecycle manager unavailable, process commands will be rejected: %v", err)
		manager = nil
	}

	return &Commander{
		source:  source,
		sink:    sink,
		manager: manager,
		logger:  logger,
	}
}

// ReadNext pulls the next row and performs exactly one dispatch cycle.
// It returns false once the source is exhausted or the sink has failed;
// both are terminal.
func (c *Commander) ReadNext() bool {
	if c.exhausted || c.sinkErr != nil {
		return false
	}

	fields, err := c.source.Next()
	if err == io.EOF {
		c.exhausted = true
		return false
	}
	if err != nil {
		c.reportError(errors.NewInputFormatError("unreadable record", err))
		return true
	}

	command, parseErrs := ParseCommand(fields)
	for _, parseErr := range parseErrs {
		c.reportError(parseErr)
	}
	if command != nil {
		c.dispatch(command)
	}
	return true
}

// NumErrors returns the cumulative error count for the session
func (c *Commander) NumErrors() int {
	return c.numErrors
}

// Err reports a terminal sink failure, if one occurred. Loss of the audit
// record defeats the purpose of the run, so the caller is expected to
// abort when this is non-nil.
func (c *Commander) Err() error {
	return c.sinkErr
}

// Close tears down the process lifecycle manager, terminating every still
// tracked child. Safe to call more than once.
func (c *Commander) Close() error {
	if c.manager == nil {
		return nil
	}
	count, err := c.manager.StopAll()
	c.logger.Infof("Roster teardown, killed: %d, premature: %d, failures: %d",
		len(count.Killed), len(count.Premature), len(count.Failures))
	return err
}

func (c *Commander) dispatch(command *Command) {
	switch command.Kind {
	case CommandProcess:
		c.runProcess(command)

	case CommandPause:
		time.Sleep(time.Duration(command.DelayMillis) * time.Millisecond)

	case CommandNewFile:
		c.report(filesystem.NewFile(command.Path))

	case CommandModFile:
		c.report(filesystem.ModFile(command.Path))

	case CommandDeleteFile:
		c.report(filesystem.DeleteFile(command.Path))

	case CommandConnect:
		c.report(network.ConnectAndSend(command.Host, command.Port, command.Payload))

	case CommandConnectSelf:
		// the listener half runs detached; only the connect outcome is
		// reported here
		event, _, err := network.LoopbackSelfTest(command.Payload)
		c.report(event, err)
	}
}

func (c *Commander) runProcess(command *Command) {
	if c.manager == nil {
		c.reportError(errors.NewPermissionsError("child processes are not allowed to be spawned", nil))
		return
	}

	record, err := c.manager.Spawn(command.Path, command.Args)
	if err != nil {
		c.report(events.Event{}, err)
		return
	}

	c.logEvent(events.Event{
		Kind:      events.EventKindProcess,
		Timestamp: events.NewTimestamp(),
		ProcName:  record.Name,
		ProcCmd:   record.Cmd,
		ProcID:    strconv.Itoa(record.ID),
		Activity:  events.ActivityProcessStart,
	})
}

// report routes an actor outcome: a success becomes an audit event, a
// failure becomes a logged and counted error
func (c *Commander) report(event events.Event, err error) {
	if err != nil {
		genErr, ok := err.(*errors.GenerationError)
		if !ok {
			genErr = errors.NewGenerationError(errors.KindOf(err), err.Error(), err)
		}
		c.reportError(genErr)
		return
	}
	c.logEvent(event)
}

func (c *Commander) logEvent(event events.Event) {
	if err := c.sink.LogEvent(event); err != nil {
		c.failSink(err)
	}
}

func (c *Commander) reportError(genErr *errors.GenerationError) {
	c.logger.Errorf("%v", genErr)
	c.numErrors++
	if err := c.sink.LogError(genErr); err != nil {
		c.failSink(err)
	}
}

func (c *Commander) failSink(err error) {
	if c.sinkErr == nil {
		c.sinkErr = err
		c.logger.Errorf("Audit sink unavailable, aborting session: %v", err)
	}
}
