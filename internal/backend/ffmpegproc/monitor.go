package ffmpegproc

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessStats is a snapshot of one ffmpeg subprocess's resource usage.
type ProcessStats struct {
	PID         int32
	CPUPercent  float64
	MemoryRSS   uint64
	MemoryVMS   uint64
	StartedAt   time.Time
	LastUpdated time.Time
}

// ProcessMonitor polls gopsutil for one ffmpeg subprocess's CPU/memory usage
// on an interval, the same shape as an ffmpeg subprocess's own process monitor but backed
// by gopsutil/v4/process rather than hand-rolled /proc parsing.
type ProcessMonitor struct {
	proc      *process.Process
	interval  time.Duration
	startedAt time.Time

	mu    sync.RWMutex
	stats ProcessStats

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcessMonitor binds a monitor to pid. The process need not exist yet;
// sampling errors are swallowed until Stop, matching ffmpeg subprocess exit
// races.
func NewProcessMonitor(pid int32, interval time.Duration) (*ProcessMonitor, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ProcessMonitor{
		proc:      proc,
		interval:  interval,
		startedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start begins polling in the background.
func (m *ProcessMonitor) Start() {
	m.wg.Add(1)
	go m.loop()
}

// Stop halts polling and waits for the loop goroutine to exit.
func (m *ProcessMonitor) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Stats returns the most recent sample.
func (m *ProcessMonitor) Stats() ProcessStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func (m *ProcessMonitor) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.sample()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.sample()
		}
	}
}

func (m *ProcessMonitor) sample() {
	now := time.Now()

	cpuPct, _ := m.proc.CPUPercent()
	memInfo, memErr := m.proc.MemoryInfo()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.PID = m.proc.Pid
	m.stats.CPUPercent = cpuPct
	m.stats.StartedAt = m.startedAt
	m.stats.LastUpdated = now
	if memErr == nil && memInfo != nil {
		m.stats.MemoryRSS = memInfo.RSS
		m.stats.MemoryVMS = memInfo.VMS
	}
}
