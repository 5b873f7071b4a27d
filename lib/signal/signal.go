//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package signal

import (
	"fmt"

	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
)

// Track is a read-only per-base signal over the chromosomes of a table.
type Track interface {
	NumChroms() int
	ChromLength(chrID int) int
	// WindowSum returns the sum of the per-base values of [start, end).
	WindowSum(chrID, start, end int) float64
}

type Strand int

const (
	StrandBoth Strand = iota
	StrandForward
	StrandReverse
)

func ParseStrand(s string) (Strand, error) {
	switch s {
	case "", "both", ".":
		return StrandBoth, nil
	case "+", "+1", "1", "forward":
		return StrandForward, nil
	case "-", "-1", "reverse":
		return StrandReverse, nil
	}
	return StrandBoth, fmt.Errorf("unknown strand %q: %w", s, genome.ErrConfiguration)
}

// Signal is the accumulated signal. It is read-only.
type Signal struct {
	Table     *genome.ChromTable
	Arrays    []SignalArray
	Fragments uint64
}

// View returns the signal of one or both strands as a Track.
func (s *Signal) View(strand Strand) Track {
	return view{s: s, strand: strand}
}

// Count returns the counter at pos.
func (s *Signal) Count(chrID, pos int, strand Strand) uint32 {
	arr := &s.Arrays[chrID]
	switch strand {
	case StrandForward:
		return arr.Forward[pos]
	case StrandReverse:
		return arr.Reverse[pos]
	}
	return arr.Forward[pos] + arr.Reverse[pos]
}

type view struct {
	s      *Signal
	strand Strand
}

func (v view) NumChroms() int {
	return len(v.s.Arrays)
}

func (v view) ChromLength(chrID int) int {
	return v.s.Arrays[chrID].Length
}

func (v view) WindowSum(chrID, start, end int) float64 {
	arr := &v.s.Arrays[chrID]
	start = max(start, 0)
	end = min(end, arr.Length)
	var sum uint64
	if start >= end {
		return 0
	}
	if v.strand != StrandReverse {
		for _, n := range arr.Forward[start:end] {
			sum += uint64(n)
		}
	}
	if v.strand != StrandForward {
		for _, n := range arr.Reverse[start:end] {
			sum += uint64(n)
		}
	}
	return float64(sum)
}
