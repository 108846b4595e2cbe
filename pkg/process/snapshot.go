package process

import (
	gopsprocess "github.com/shirou/gopsutil/v3/process"

	"github.com/core-tools/edr-gen-go/pkg/errors"
)

// snapshot is a point-in-time view of the OS process table. It is owned
// exclusively by the Manager and refreshed only at well-defined points:
// manager construction, spawn confirmation, and the start and mid-point
// of StopAll.
type snapshot struct {
	pids map[int32]struct{}
}

func takeSnapshot() (*snapshot, error) {
	pids, err := gopsprocess.Pids()
	if err != nil {
		return nil, errors.NewProcessError("unable to read the process table", err)
	}

	table := &snapshot{
		pids: make(map[int32]struct{}, len(pids)),
	}
	for _, pid := range pids {
		table.pids[pid] = struct{}{}
	}
	return table, nil
}

func (s *snapshot) contains(pid int) bool {
	_, ok := s.pids[int32(pid)]
	return ok
}

// queryProcess resolves the executable name and start time of a live
// process, confirming along the way that the pid is enumerable at all
func queryProcess(pid int) (name string, startTime int64, err error) {
	proc, err := gopsprocess.NewProcess(int32(pid))
	if err != nil {
		return "", 0, err
	}
	name, err = proc.Name()
	if err != nil {
		return "", 0, err
	}
	createTime, err := proc.CreateTime()
	if err != nil {
		return "", 0, err
	}
	// gopsutil reports milliseconds since epoch
	return name, createTime / 1000, nil
}
