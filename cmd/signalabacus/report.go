//
// Copyright (C) 2015-2021 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"git.sr.ht/~vejnar/SignalAbacus/lib/classify"
	"git.sr.ht/~vejnar/SignalAbacus/lib/esam"
	"git.sr.ht/~vejnar/SignalAbacus/lib/signal"
)

// InputReport accounts for one accumulated input.
type InputReport struct {
	Path       string         `json:"path"`
	Alignments esam.ReadStats `json:"alignments"`
	Signal     signal.Stats   `json:"signal"`
	// Chromosome names of alignments missing from the chromosome table
	UnknownChroms []string `json:"unknown_chromosomes,omitempty"`
}

type Report struct {
	RunID        string                 `json:"run_id"`
	Command      string                 `json:"command"`
	Version      string                 `json:"version"`
	Elapsed      float64                `json:"elapsed_min"`
	Inputs       []InputReport          `json:"inputs,omitempty"`
	Counts       map[string]int         `json:"counts,omitempty"`
	Distribution *classify.Distribution `json:"distribution,omitempty"`
	Outputs      []string               `json:"outputs,omitempty"`
}

func NewReport(command, version string) *Report {
	return &Report{RunID: uuid.New().String(), Command: command, Version: version}
}

func (r *Report) AddAccumulation(path string, acc Accumulation) {
	r.Inputs = append(r.Inputs, InputReport{Path: path, Alignments: acc.Reads, Signal: acc.Stats, UnknownChroms: acc.Unknown})
}

func (r *Report) SetCount(name string, n int) {
	if r.Counts == nil {
		r.Counts = make(map[string]int)
	}
	r.Counts[name] = n
}

func (r *Report) AddOutput(path string) {
	r.Outputs = append(r.Outputs, path)
}

func writeJSON(w io.Writer, v interface{}) error {
	report, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(report))
	return err
}

// WriteReport writes r as JSON to pathReport (stdout with -).
func WriteReport(pathReport string, r *Report) error {
	if pathReport == "-" {
		return writeJSON(os.Stdout, r)
	}
	f, err := os.Create(pathReport)
	if err != nil {
		return err
	}
	if err := writeJSON(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
