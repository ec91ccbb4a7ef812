package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/reatured/handvis/internal/mathx"
	"github.com/reatured/handvis/internal/retarget"
)

// Frame is one batch of joint commands sent to an external adapter.
type Frame struct {
	Model       string             `json:"model"`
	Joints      map[string]float64 `json:"joints"`
	TimestampMs int64              `json:"timestampMs"`
}

// Response is what an external adapter writes back on stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Process drives an external adapter executable. Commands accumulate
// through SetJointValue; Flush ships the batch as one JSON frame on the
// process's stdin and reads a Response from stdout, bounded by the
// configured timeout.
type Process struct {
	ext       *External
	timeoutMs int
	limits    map[string]*retarget.Limit
	now       func() time.Time

	mu      sync.Mutex
	pending map[string]float64
}

// NewProcess wraps a discovered external adapter. The adapter must
// carry an inline model; without one the joint graph cannot be
// resolved.
func NewProcess(ext *External, timeoutMs int) (*Process, error) {
	if ext.Model == nil {
		return nil, fmt.Errorf("adapter %q has no model spec", ext.Manifest.Name)
	}
	p := &Process{
		ext:       ext,
		timeoutMs: timeoutMs,
		limits:    make(map[string]*retarget.Limit, len(ext.Model.Joints)),
		now:       time.Now,
		pending:   make(map[string]float64),
	}
	for i := range ext.Model.Joints {
		j := &ext.Model.Joints[i]
		if j.Type == retarget.JointFixed {
			continue
		}
		p.limits[j.Name] = j.Limit
	}
	return p, nil
}

func (p *Process) Name() string { return p.ext.Manifest.Name }

// Joints returns the external model's joint graph.
func (p *Process) Joints() []retarget.JointSpec { return p.ext.Model.Joints }

// SetJointValue queues a command, clamped to the joint's limit. Unknown
// and fixed joints are ignored.
func (p *Process) SetJointValue(joint string, radians float64) {
	lim, ok := p.limits[joint]
	if !ok {
		return
	}
	if lim != nil {
		radians = mathx.Clamp(radians, lim.Lower, lim.Upper)
	}
	p.mu.Lock()
	p.pending[joint] = radians
	p.mu.Unlock()
}

// Flush sends the queued commands to the adapter process and waits for
// its response. The queue is cleared whether or not the process
// succeeds; a stale frame is worse than a dropped one.
func (p *Process) Flush() error {
	p.mu.Lock()
	frame := Frame{
		Model:       p.ext.Model.Name,
		Joints:      p.pending,
		TimestampMs: p.now().UnixMilli(),
	}
	p.pending = make(map[string]float64)
	p.mu.Unlock()

	if len(frame.Joints) == 0 {
		return nil
	}

	resp, err := p.execute(&frame)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("adapter %q rejected frame: %s", p.ext.Manifest.Name, resp.Error)
	}
	return nil
}

func (p *Process) execute(frame *Frame) (*Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(p.timeoutMs)*time.Millisecond)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.ext.Executable)
	cmd.Dir = p.ext.Path

	frameJSON, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frame: %w", err)
	}
	cmd.Stdin = bytes.NewReader(frameJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("adapter execution timeout after %dms", p.timeoutMs)
	}
	if err != nil {
		if stderrStr := stderr.String(); stderrStr != "" {
			return nil, fmt.Errorf("adapter execution failed: %w, stderr: %s", err, stderrStr)
		}
		return nil, fmt.Errorf("adapter execution failed: %w", err)
	}

	var response Response
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("failed to parse adapter response: %w, stdout: %s", err, stdout.String())
	}
	return &response, nil
}

var _ Adapter = (*Process)(nil)
