package process

import (
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/core-tools/edr-gen-go/pkg/errors"
	"github.com/core-tools/edr-gen-go/pkg/logging"
	"github.com/core-tools/edr-gen-go/pkg/processstate"
)

// DefaultGraceWindow is the delay between sending the kill signal and
// re-checking whether the target process is gone
const DefaultGraceWindow = 100 * time.Millisecond

// ProcessRecord describes one tracked child process. A record exists in
// the roster only if the spawn succeeded and the process was confirmed
// present in the process table at spawn time.
type ProcessRecord struct {
	ID        int
	Name      string
	Cmd       string
	StartTime int64
}

// KillCount classifies every tracked process after a StopAll call into
// exactly one of three buckets
type KillCount struct {
	Killed    []int
	Premature []int
	Failures  []int
}

// Manager spawns child processes and performs verified termination of the
// whole roster. It is not safe for concurrent use; all commands run on a
// single control thread.
//
// The owner must call StopAll before releasing the manager, otherwise the
// tracked children are leaked. A best-effort StopAll at process exit is an
// acceptable safety net but its errors are only reported, never retried.
type Manager struct {
	roster      []ProcessRecord
	table       *snapshot
	graceWindow time.Duration
	logger      logging.Logger
}

// NewManager verifies that the process table is readable and prepares an
// empty roster. A failure here means the environment cannot support
// process commands at all.
func NewManager(graceWindow time.Duration, logger logging.Logger) (*Manager, error) {
	table, err := takeSnapshot()
	if err != nil {
		return nil, err
	}
	if graceWindow <= 0 {
		graceWindow = DefaultGraceWindow
	}
	return &Manager{
		table:       table,
		graceWindow: graceWindow,
		logger:      logger,
	}, nil
}

// Spawn starts the executable at path with the given argument string,
// tokenized using shell-word splitting rules. The new process is added to
// the roster only after it is confirmed enumerable in the process table;
// a child that dies before that confirmation is a process error, not a
// silent success.
func (m *Manager) Spawn(path string, argString string) (ProcessRecord, error) {
	args, err := shlex.Split(argString)
	if err != nil {
		return ProcessRecord{}, errors.NewInputFormatError("unable to tokenize process arguments", err).
			WithContext("arguments", argString)
	}

	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return ProcessRecord{}, errors.NewProcessError("unable to start process", err).WithContext("path", path)
	}
	pid := cmd.Process.Pid

	// reap the child when it exits, so it leaves the process table
	// instead of lingering as a zombie
	go cmd.Wait()

	name, startTime, err := queryProcess(pid)
	if err != nil {
		return ProcessRecord{}, errors.NewProcessError("process died before it could be enumerated", err).
			WithContext("path", path).
			WithContext("pid", pid)
	}

	record := ProcessRecord{
		ID:        pid,
		Name:      name,
		Cmd:       strings.TrimSpace(path + " " + argString),
		StartTime: startTime,
	}
	m.roster = append(m.roster, record)

	m.logger.Debugf("Spawned process, pid: %d, name: %s", pid, name)
	return record, nil
}

// Roster returns a copy of the currently tracked processes
func (m *Manager) Roster() []ProcessRecord {
	roster := make([]ProcessRecord, len(m.roster))
	copy(roster, m.roster)
	return roster
}

// StopAll performs verified, best-effort termination of the entire roster.
// The process table is snapshotted once up front; a tracked process absent
// from that snapshot exited on its own and counts as premature. For the
// rest, a kill signal is sent, the grace window elapses, and a second
// probe decides between killed and failures. Every tracked process lands
// in exactly one bucket.
//
// Only the aggregate "nothing terminated and something resisted" condition
// is escalated to a call-level error; the populated KillCount is returned
// either way. The roster is empty after the call.
func (m *Manager) StopAll() (KillCount, error) {
	count := KillCount{}

	table, err := takeSnapshot()
	if err != nil {
		return count, err
	}
	m.table = table

	for _, record := range m.roster {
		if !m.table.contains(record.ID) {
			count.Premature = append(count.Premature, record.ID)
			continue
		}
		if err := killProcess(record.ID); err != nil {
			// gone between the snapshot and the signal
			count.Premature = append(count.Premature, record.ID)
			continue
		}

		time.Sleep(m.graceWindow)

		if m.probeAfterKill(record.ID) {
			m.logger.Warnf("Process resisted termination, pid: %d, name: %s", record.ID, record.Name)
			count.Failures = append(count.Failures, record.ID)
		} else {
			count.Killed = append(count.Killed, record.ID)
		}
	}
	m.roster = nil

	if len(count.Killed) == 0 && len(count.Premature) == 0 && len(count.Failures) > 0 {
		return count, errors.NewProcessError("all child processes failed to terminate", nil).
			WithContext("failures", count.Failures)
	}
	return count, nil
}

// probeAfterKill reports whether the process still exists after the grace
// window. The preferred probe is a fresh process table snapshot; if the
// table cannot be re-read, the per-pid liveness probe decides instead.
func (m *Manager) probeAfterKill(pid int) bool {
	table, err := takeSnapshot()
	if err != nil {
		running, probeErr := processstate.IsProcessRunning(pid)
		if probeErr != nil {
			return false
		}
		return running
	}
	m.table = table
	return m.table.contains(pid)
}

func killProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
