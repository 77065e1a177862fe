// Package report renders a finished session as a YAML document.
package report

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"ssh-helper/internal/orchestrator"
)

// Report is the top-level structure serialized to the report file.
type Report struct {
	Session  string `yaml:"session"`
	Scripts  string `yaml:"scripts,omitempty"`
	Started  string `yaml:"started"`
	Finished string `yaml:"finished"`
	Failed   int    `yaml:"failed_hosts"`
	Hosts    []Host `yaml:"hosts"`
}

// Host groups the outcomes of one target.
type Host struct {
	Target     string    `yaml:"target"`
	Port       int       `yaml:"port"`
	State      string    `yaml:"state"`
	Error      string    `yaml:"error,omitempty"`
	LogFile    string    `yaml:"log_file,omitempty"`
	Operations []Outcome `yaml:"operations"`
}

// Outcome records a single operation.
type Outcome struct {
	Op       string `yaml:"op"`
	Name     string `yaml:"name,omitempty"`
	ExitCode int    `yaml:"exit_code"`
	OK       bool   `yaml:"ok"`
	Error    string `yaml:"error,omitempty"`
	Log      string `yaml:"log,omitempty"`
}

// FromSummary converts a run summary. scriptsFile is informational.
func FromSummary(sum *orchestrator.Summary, scriptsFile string) *Report {
	r := &Report{
		Session:  sum.SessionID,
		Scripts:  scriptsFile,
		Started:  sum.Started.Format(time.RFC3339),
		Finished: sum.Finished.Format(time.RFC3339),
		Failed:   sum.Failed(),
		Hosts:    []Host{},
	}
	for _, h := range sum.Hosts {
		rh := Host{
			Target:     h.Host.String(),
			Port:       h.Host.Port,
			State:      h.State.String(),
			LogFile:    h.LogFile,
			Operations: []Outcome{},
		}
		if h.Err != nil {
			rh.Error = h.Err.Error()
		}
		for _, o := range h.Outcomes {
			rh.Operations = append(rh.Operations, Outcome{
				Op:       o.Op,
				Name:     o.Name,
				ExitCode: o.ExitCode,
				OK:       o.OK(),
				Error:    o.Err,
				Log:      o.Log,
			})
		}
		r.Hosts = append(r.Hosts, rh)
	}
	return r
}

// Write serializes r with two-space indentation.
func Write(w io.Writer, r *Report) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		_ = enc.Close()
		return err
	}
	_ = enc.Close()
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(buf.Bytes()); err != nil {
		return err
	}
	return bw.Flush()
}

// WriteFile writes r to path.
func WriteFile(path string, r *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
