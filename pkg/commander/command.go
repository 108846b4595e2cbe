package commander

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/core-tools/edr-gen-go/pkg/errors"
)

// CommandKind enumerates the action variants a row can parse into. All
// routing past ParseCommand is by variant, never by verb string.
type CommandKind int

const (
	CommandProcess CommandKind = iota
	CommandPause
	CommandNewFile
	CommandModFile
	CommandDeleteFile
	CommandConnect
	CommandConnectSelf
)

// Command is one fully validated action. Only the fields relevant to its
// kind are populated.
type Command struct {
	Kind        CommandKind
	Path        string // executable or file path
	Args        string // space-joined process argument string
	DelayMillis uint64
	Host        string
	Port        uint16
	Payload     []byte
}

type verbRule struct {
	kind    CommandKind
	minArgs int
	usage   string
}

// verbTable maps each verb to its variant and required argument count
// beyond the verb field
var verbTable = map[string]verbRule{
	"process":      {CommandProcess, 2, "(process,<path>,<arguments...>)"},
	"pause":        {CommandPause, 1, "(pause,<msec>)"},
	"new_file":     {CommandNewFile, 1, "(new_file,<path>)"},
	"mod_file":     {CommandModFile, 1, "(mod_file,<path>)"},
	"delete_file":  {CommandDeleteFile, 1, "(delete_file,<path>)"},
	"connect":      {CommandConnect, 3, "(connect,<destination_host>,<destination_port>,<message>)"},
	"connect_self": {CommandConnectSelf, 1, "(connect_self,<message>)"},
}

func formatError(fields []string, usage string) *errors.GenerationError {
	return errors.NewInputFormatError(
		fmt.Sprintf("record %q is not formatted correctly for %s", fields, usage), nil)
}

// ParseCommand validates one row and builds its command variant. A nil
// command means nothing is to be executed; every returned error is one
// countable row-level failure. Validation always completes before any
// side effect, so a malformed row never partially executes.
func ParseCommand(fields []string) (*Command, []*errors.GenerationError) {
	if len(fields) == 0 {
		return nil, []*errors.GenerationError{
			errors.NewInputFormatError("empty record is not a valid instruction", nil),
		}
	}

	verb := fields[0]
	rule, ok := verbTable[verb]
	if !ok {
		return nil, []*errors.GenerationError{
			errors.NewInputFormatError(fmt.Sprintf("%s is not a valid instruction", verb), nil),
		}
	}

	args := fields[1:]

	// The pause verb reports a missing argument but still goes on to
	// attempt the numeric parse of the absent field, reporting that
	// failure as well. Other verbs stop at the arity check.
	if rule.kind == CommandPause {
		var parseErrs []*errors.GenerationError
		if len(args) < rule.minArgs {
			parseErrs = append(parseErrs, formatError(fields, rule.usage))
		}
		var delayField string
		if len(args) > 0 {
			delayField = args[0]
		}
		delay, err := strconv.ParseUint(delayField, 10, 64)
		if err != nil {
			parseErrs = append(parseErrs, formatError(fields, rule.usage))
			return nil, parseErrs
		}
		return &Command{Kind: CommandPause, DelayMillis: delay}, parseErrs
	}

	if len(args) < rule.minArgs {
		return nil, []*errors.GenerationError{formatError(fields, rule.usage)}
	}

	switch rule.kind {
	case CommandProcess:
		return &Command{
			Kind: CommandProcess,
			Path: args[0],
			Args: strings.Join(args[1:], " "),
		}, nil

	case CommandNewFile, CommandModFile, CommandDeleteFile:
		return &Command{Kind: rule.kind, Path: args[0]}, nil

	case CommandConnect:
		port, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			return nil, []*errors.GenerationError{formatError(fields, rule.usage)}
		}
		return &Command{
			Kind:    CommandConnect,
			Host:    args[0],
			Port:    uint16(port),
			Payload: []byte(args[2]),
		}, nil

	case CommandConnectSelf:
		return &Command{Kind: CommandConnectSelf, Payload: []byte(args[0])}, nil
	}

	return nil, []*errors.GenerationError{
		errors.NewInputFormatError(fmt.Sprintf("%s is not a valid instruction", verb), nil),
	}
}
