package ffmpegproc

import (
	"context"
	"fmt"
	"io"

	"github.com/streamforge/codecengine/pkg/ffmpeg"
)

// process owns one running ffmpeg subprocess and its stdin/stdout pipes.
type process struct {
	cmd     *ffmpeg.Command
	stdin   io.WriteCloser
	stdout  io.ReadCloser
	cancel  context.CancelFunc
	monitor *ProcessMonitor
}

// startProcess builds and starts cmd with stdin/stdout both wired as pipes.
// A gopsutil-backed ProcessMonitor is attached once the PID is known; a
// monitor construction failure (e.g. the process already exited) is not
// fatal to the caller, it just leaves Stats unavailable.
func startProcess(cmd *ffmpeg.Command) (*process, error) {
	ctx, cancel := context.WithCancel(context.Background())
	stdin, stdout, err := cmd.StartDuplex(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	p := &process{cmd: cmd, stdin: stdin, stdout: stdout, cancel: cancel}
	if pid := cmd.PID(); pid > 0 {
		if mon, err := NewProcessMonitor(int32(pid), 0); err == nil {
			p.monitor = mon
			p.monitor.Start()
		}
	}
	return p, nil
}

func (p *process) close() error {
	if p.monitor != nil {
		p.monitor.Stop()
	}
	p.stdin.Close()
	err := p.cmd.Kill()
	p.cancel()
	return err
}
