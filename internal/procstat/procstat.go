// Package procstat samples CPU and memory usage of the login subprocess.
// The numbers feed the operator log and the observe state; they have no
// bearing on the run's outcome.
package procstat

import (
	"context"
	"log"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Sample is one CPU/RSS observation of the subprocess.
type Sample struct {
	CPUPercent float64
	RSSBytes   uint64
}

// Sampler reads usage for a single PID.
type Sampler struct {
	proc *process.Process
}

func NewSampler(pid int) (*Sampler, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, err
	}
	return &Sampler{proc: p}, nil
}

// Sample returns the current CPU percentage (since the previous call) and
// resident set size. Once the process exits, Sample returns an error and
// the caller should stop.
func (s *Sampler) Sample() (Sample, error) {
	cpu, err := s.proc.Percent(0)
	if err != nil {
		return Sample{}, err
	}
	mem, err := s.proc.MemoryInfo()
	if err != nil {
		return Sample{}, err
	}
	return Sample{CPUPercent: cpu, RSSBytes: mem.RSS}, nil
}

// Watch samples pid every interval and reports each sample to report until
// ctx is cancelled or the process goes away. Intended to run on its own
// goroutine for the lifetime of the subprocess.
func Watch(ctx context.Context, pid int, interval time.Duration, report func(Sample)) {
	sampler, err := NewSampler(pid)
	if err != nil {
		log.Printf("[procstat] cannot attach to pid %d: %v", pid, err)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample, err := sampler.Sample()
			if err != nil {
				// Process exited between ticks.
				return
			}
			report(sample)
		}
	}
}
