package dvs

import (
	"bufio"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/durin-robotics/durin/internal/monitoring"
)

// Streamer delivers the camera's event stream to a destination. StartStream
// begins delivery to host:port by an implementation-defined transport;
// StopStream halts it and is idempotent. A Streamer that cannot produce
// media treats StartStream as a logged no-op rather than failing the
// control plane.
type Streamer interface {
	StartStream(host string, port int) error
	StopStream()
}

// NopStreamer is a Streamer that records calls and does nothing. It serves
// both as a test double and as the implementation behind a control server
// running without camera hardware.
type NopStreamer struct {
	mu     sync.Mutex
	starts []string
	stops  int
}

func (n *NopStreamer) StartStream(host string, port int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.starts = append(n.starts, fmt.Sprintf("%s:%d", host, port))
	return nil
}

func (n *NopStreamer) StopStream() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stops++
}

// Calls reports the recorded start targets and stop count.
func (n *NopStreamer) Calls() (starts []string, stops int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.starts...), n.stops
}

const stopGrace = time.Second

// AEStreamer drives the external aestream capture process, pointing the
// camera's event stream at a UDP destination. The binary must be on PATH at
// construction; a camera that goes missing later only degrades StartStream
// to a warning.
type AEStreamer struct {
	binary string
	device string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewAEStreamer locates the aestream binary. device selects the capture
// input (for example "inivation"); an empty device lets aestream pick.
func NewAEStreamer(device string) (*AEStreamer, error) {
	path, err := exec.LookPath("aestream")
	if err != nil {
		return nil, fmt.Errorf("no aestream binary found on PATH: %w", err)
	}
	if device == "" {
		device = "inivation"
	}
	return &AEStreamer{binary: path, device: device}, nil
}

// StartStream spawns aestream towards host:port, stopping any previous
// capture first. A spawn failure is logged and swallowed: the control plane
// stays up and streaming is simply absent.
func (a *AEStreamer) StartStream(host string, port int) error {
	a.StopStream()

	a.mu.Lock()
	defer a.mu.Unlock()

	cmd := exec.Command(a.binary, "input", a.device, "output", "udp", host, fmt.Sprint(port))
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		monitoring.Logf("aestream: cannot pipe output: %v", err)
		return nil
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		monitoring.Logf("aestream: failed to start: %v", err)
		return nil
	}
	a.cmd = cmd

	// Relay capture-process output into our log until it exits.
	go func() {
		scan := bufio.NewScanner(stdout)
		for scan.Scan() {
			monitoring.Logf("aestream: %s", scan.Text())
		}
	}()

	monitoring.Logf("aestream: streaming events to %s:%d", host, port)
	return nil
}

// StopStream terminates the capture process, escalating from SIGTERM to
// SIGKILL after a grace period. Calling it with no process running is a
// no-op.
func (a *AEStreamer) StopStream() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cmd == nil {
		return
	}
	cmd := a.cmd
	a.cmd = nil

	if cmd.Process != nil {
		cmd.Process.Signal(syscall.SIGTERM)
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(stopGrace):
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		<-done
	}
	monitoring.Logf("aestream: capture stopped")
}
