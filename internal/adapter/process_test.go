package adapter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func externalFixture(t *testing.T, script string) *External {
	t.Helper()
	tmpDir := t.TempDir()
	scriptPath := writeScript(t, tmpDir, "run.sh", script)
	return &External{
		Manifest: Manifest{
			Name:       "test-adapter",
			Version:    "1.0.0",
			Executable: "run.sh",
		},
		Path:       tmpDir,
		Executable: scriptPath,
		Model:      testModel(),
	}
}

func TestProcess_FlushSendsClampedFrame(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	// Echo stdin into a file so the test can inspect the frame, then
	// report success.
	script := `#!/bin/sh
cat > received.json
echo '{"success":true}'
`
	ext := externalFixture(t, script)

	p, err := NewProcess(ext, 5000)
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}

	p.SetJointValue("index_pip", 5.0) // above the 1.75 limit
	p.SetJointValue("ghost", 1.0)     // not in the model
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(ext.Path, "received.json"))
	if err != nil {
		t.Fatalf("adapter did not receive a frame: %v", err)
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("failed to parse received frame: %v", err)
	}
	if frame.Model != "test-hand" {
		t.Errorf("frame model = %q, want test-hand", frame.Model)
	}
	if got := frame.Joints["index_pip"]; got != 1.75 {
		t.Errorf("index_pip = %v, want clamped 1.75", got)
	}
	if _, ok := frame.Joints["ghost"]; ok {
		t.Error("unknown joint leaked into the frame")
	}
	if frame.TimestampMs == 0 {
		t.Error("frame timestamp missing")
	}
}

func TestProcess_FlushClearsQueue(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	script := `#!/bin/sh
cat > /dev/null
touch ran
echo '{"success":true}'
`
	ext := externalFixture(t, script)
	p, err := NewProcess(ext, 5000)
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}

	p.SetJointValue("index_pip", 0.5)
	if err := p.Flush(); err != nil {
		t.Fatalf("first Flush() failed: %v", err)
	}
	if err := os.Remove(filepath.Join(ext.Path, "ran")); err != nil {
		t.Fatalf("first flush did not run the adapter: %v", err)
	}

	// An empty queue must not spawn the process again.
	if err := p.Flush(); err != nil {
		t.Fatalf("second Flush() failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ext.Path, "ran")); !os.IsNotExist(err) {
		t.Error("empty flush should not execute the adapter")
	}
}

func TestProcess_FlushRejectedFrame(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	script := `#!/bin/sh
cat > /dev/null
echo '{"success":false,"error":"servo fault"}'
`
	p, err := NewProcess(externalFixture(t, script), 5000)
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}

	p.SetJointValue("index_pip", 0.5)
	err = p.Flush()
	if err == nil {
		t.Fatal("expected error for rejected frame")
	}
	if !strings.Contains(err.Error(), "servo fault") {
		t.Errorf("error %q should carry the adapter's message", err)
	}
}

func TestProcess_FlushTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	script := `#!/bin/sh
sleep 5
echo '{"success":true}'
`
	p, err := NewProcess(externalFixture(t, script), 100)
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}

	p.SetJointValue("index_pip", 0.5)
	err = p.Flush()
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("error %q should mention the timeout", err)
	}
}

func TestProcess_FlushBadOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	script := `#!/bin/sh
cat > /dev/null
echo 'not json'
`
	p, err := NewProcess(externalFixture(t, script), 5000)
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}

	p.SetJointValue("index_pip", 0.5)
	if err := p.Flush(); err == nil {
		t.Fatal("expected parse error for non-JSON output")
	}
}

func TestNewProcess_RequiresModel(t *testing.T) {
	ext := &External{Manifest: Manifest{Name: "modelless"}}
	if _, err := NewProcess(ext, 5000); err == nil {
		t.Fatal("expected error for adapter without a model spec")
	}
}
