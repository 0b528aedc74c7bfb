// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package recording

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Keys of the Response map of a NetworkCallRecord which are not
// headers.
const (
	StatusCodeKey = "StatusCode"
	BodyKey       = "Body"
)

// A NetworkCallRecord is one recorded request and its response.
//
// Response maps response header names to values, plus the StatusCode
// and Body keys.
type NetworkCallRecord struct {
	Method   string            `yaml:"method"`
	URI      string            `yaml:"uri"`
	Headers  map[string]string `yaml:"headers"`
	Response map[string]string `yaml:"response"`
}

// RecordedData is an ordered list of network calls. It is safe for
// concurrent use by multiple goroutines. The zero value is empty and
// ready to use.
type RecordedData struct {
	mu      sync.Mutex
	records []NetworkCallRecord
}

type document struct {
	NetworkCallRecords []NetworkCallRecord `yaml:"networkCallRecords"`
}

// AddNetworkCall appends r.
func (d *RecordedData) AddNetworkCall(r NetworkCallRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, r)
}

// NetworkCalls returns a copy of the recorded calls, in order.
func (d *RecordedData) NetworkCalls() []NetworkCallRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]NetworkCallRecord(nil), d.records...)
}

// Len returns the number of recorded calls.
func (d *RecordedData) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

func (d *RecordedData) at(i int) (NetworkCallRecord, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.records) {
		return NetworkCallRecord{}, false
	}
	return d.records[i], true
}

// Save writes the recorded calls to w as YAML.
func (d *RecordedData) Save(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{NetworkCallRecords: d.NetworkCalls()}); err != nil {
		return fmt.Errorf("httpipe/recording: failed to encode recording: %w", err)
	}

	return enc.Close()
}

// SaveFile writes the recorded calls to the named file, creating its
// directory if needed.
func (d *RecordedData) SaveFile(name string) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("httpipe/recording: failed to create directory: %w", err)
	}

	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("httpipe/recording: failed to create recording: %w", err)
	}
	if err = d.Save(f); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// Load reads recorded calls written by Save.
func Load(r io.Reader) (*RecordedData, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("httpipe/recording: failed to decode recording: %w", err)
	}

	return &RecordedData{records: doc.NetworkCallRecords}, nil
}

// LoadFile reads recorded calls from the named file.
func LoadFile(name string) (*RecordedData, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("httpipe/recording: failed to open recording: %w", err)
	}
	defer f.Close()

	return Load(f)
}
