package status

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats describes the server process itself.
type ProcessStats struct {
	PID        int32   `json:"pid"`
	CPUPercent float64 `json:"cpuPercent"`
	RSSBytes   uint64  `json:"rssBytes"`
	Threads    int32   `json:"threads"`
	Goroutines int     `json:"goroutines"`
	UptimeSec  float64 `json:"uptimeSec"`
}

type processSampler struct {
	proc    *process.Process
	started time.Time
}

func newProcessSampler() *processSampler {
	s := &processSampler{started: time.Now()}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn().Err(err).Msg("Process stats unavailable")
		return s
	}
	s.proc = p
	return s
}

// sample reads the current stats. Fields the platform cannot report are
// left zero.
func (s *processSampler) sample() *ProcessStats {
	st := &ProcessStats{
		PID:        int32(os.Getpid()),
		Goroutines: runtime.NumGoroutine(),
		UptimeSec:  time.Since(s.started).Seconds(),
	}
	if s.proc == nil {
		return st
	}
	if cpu, err := s.proc.CPUPercent(); err == nil {
		st.CPUPercent = cpu
	}
	if mem, err := s.proc.MemoryInfo(); err == nil && mem != nil {
		st.RSSBytes = mem.RSS
	}
	if n, err := s.proc.NumThreads(); err == nil {
		st.Threads = n
	}
	return st
}
