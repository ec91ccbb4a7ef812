// Package main provides a sample external adapter that appends each
// joint frame to a log file. It is the reference for writing adapters
// that bridge to real robot middleware.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Frame is the input from the adapter executor.
type Frame struct {
	Model       string             `json:"model"`
	Joints      map[string]float64 `json:"joints"`
	TimestampMs int64              `json:"timestampMs"`
}

// Response is the output to the adapter executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func main() {
	var frame Frame
	if err := json.NewDecoder(os.Stdin).Decode(&frame); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode frame: %v", err))
		return
	}

	if err := appendFrame(&frame); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to log frame: %v", err))
		return
	}

	writeSuccessResponse(len(frame.Joints))
}

// appendFrame writes one line per frame with joints in stable order.
func appendFrame(frame *Frame) error {
	f, err := os.OpenFile("joints.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	names := make([]string, 0, len(frame.Joints))
	for name := range frame.Joints {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(f, "%d %s", frame.TimestampMs, frame.Model)
	for _, name := range names {
		fmt.Fprintf(f, " %s=%.4f", name, frame.Joints[name])
	}
	fmt.Fprintln(f)
	return nil
}

func writeSuccessResponse(joints int) {
	data, _ := json.Marshal(map[string]int{"joints": joints})
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

func writeErrorResponse(msg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: msg})
}
