//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package profile

import (
	"fmt"
	"math"
	"sort"

	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
	"git.sr.ht/~vejnar/SignalAbacus/lib/signal"
)

const (
	DefaultWindowSize = 100
	Mega              = 1e6
	Pseudocount       = 0.1
)

// Record is one run of equal values. Coordinates are 0-based, half-open.
type Record struct {
	ChromID    int
	Start, End int
	Value      float64
}

// Normalization scales raw per-base window means. The zero value leaves
// values unchanged.
type Normalization struct {
	// Reads per million when TotalReads > 0
	TotalReads uint64
	// Extra multiplicative factor (spike-in) when > 0
	SpikeIn float64
	// log10(v + Pseudocount) on non-zero values
	Log    bool
	Negate bool
}

// Factor returns the multiplicative part of the normalization.
func (n Normalization) Factor() float64 {
	f := 1.
	if n.TotalReads > 0 {
		f = Mega / float64(n.TotalReads)
	}
	if n.SpikeIn > 0 {
		f *= n.SpikeIn
	}
	return f
}

// Apply normalizes v. Zero stays zero.
func (n Normalization) Apply(v float64) float64 {
	if v == 0 {
		return 0
	}
	v *= n.Factor()
	if n.Log {
		v = math.Log10(v + Pseudocount)
	}
	if n.Negate {
		v = -v
	}
	return v
}

// Round2 rounds v to 2 decimals.
func Round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		// No negative zero
		return 0
	}
	return r
}

// Compact windows track and merges consecutive windows of equal rounded
// value. Zero runs are only kept between two non-zero runs of the same
// chromosome.
func Compact(track signal.Track, windowSize int, norm Normalization) ([]Record, error) {
	return compact(track, windowSize, func(chrID, start, end int) float64 {
		return norm.Apply(track.WindowSum(chrID, start, end) / float64(end-start))
	})
}

// Combine compacts the sum of two tracks, each normalized with its own
// Normalization. Both tracks must share the same chromosomes.
func Combine(a, b signal.Track, windowSize int, normA, normB Normalization) ([]Record, error) {
	if a.NumChroms() != b.NumChroms() {
		return nil, fmt.Errorf("tracks with %d and %d chromosomes: %w", a.NumChroms(), b.NumChroms(), genome.ErrConfiguration)
	}
	for i := 0; i < a.NumChroms(); i++ {
		if a.ChromLength(i) != b.ChromLength(i) {
			return nil, fmt.Errorf("chromosome %d with lengths %d and %d: %w", i, a.ChromLength(i), b.ChromLength(i), genome.ErrConfiguration)
		}
	}
	return compact(a, windowSize, func(chrID, start, end int) float64 {
		l := float64(end - start)
		return normA.Apply(a.WindowSum(chrID, start, end)/l) + normB.Apply(b.WindowSum(chrID, start, end)/l)
	})
}

func compact(track signal.Track, windowSize int, value func(chrID, start, end int) float64) (records []Record, err error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size %d: %w", windowSize, genome.ErrConfiguration)
	}
	for chrID := 0; chrID < track.NumChroms(); chrID++ {
		length := track.ChromLength(chrID)
		var run, gap Record
		var open, seen bool
		flush := func() {
			if !open {
				return
			}
			if run.Value != 0 {
				if seen && gap.End > gap.Start {
					records = append(records, gap)
				}
				records = append(records, run)
				seen = true
				gap = Record{}
			} else {
				gap = run
			}
		}
		for start := 0; start < length; start += windowSize {
			end := min(start+windowSize, length)
			v := Round2(value(chrID, start, end))
			if open && v == run.Value {
				run.End = end
				continue
			}
			flush()
			run = Record{ChromID: chrID, Start: start, End: end, Value: v}
			open = true
		}
		// A trailing zero run is only stored in gap and never emitted
		flush()
	}
	return
}

// RecordTrack is a Track over compacted records. Uncovered bases are zero.
type RecordTrack struct {
	Table   *genome.ChromTable
	records [][]Record
}

// NewRecordTrack groups records per chromosome. Records of each chromosome
// must be sorted and non-overlapping.
func NewRecordTrack(table *genome.ChromTable, records []Record) (*RecordTrack, error) {
	t := &RecordTrack{Table: table, records: make([][]Record, table.Len())}
	for _, r := range records {
		if r.ChromID < 0 || r.ChromID >= table.Len() {
			return nil, fmt.Errorf("record chromosome ID %d: %w", r.ChromID, genome.ErrUnknownChromosome)
		}
		rs := t.records[r.ChromID]
		if len(rs) > 0 && rs[len(rs)-1].End > r.Start {
			return nil, fmt.Errorf("unsorted or overlapping record %s:%d-%d", table.Name(r.ChromID), r.Start, r.End)
		}
		t.records[r.ChromID] = append(rs, r)
	}
	return t, nil
}

func (t *RecordTrack) NumChroms() int {
	return t.Table.Len()
}

func (t *RecordTrack) ChromLength(chrID int) int {
	return t.Table.Length(chrID)
}

func (t *RecordTrack) WindowSum(chrID, start, end int) (sum float64) {
	rs := t.records[chrID]
	// First record ending after start
	i := sort.Search(len(rs), func(i int) bool { return rs[i].End > start })
	for ; i < len(rs) && rs[i].Start < end; i++ {
		sum += rs[i].Value * float64(min(end, rs[i].End)-max(start, rs[i].Start))
	}
	return
}

func min(a, b int) int {
	if a > b {
		return b
	}
	return a
}

func max(a, b int) int {
	if a < b {
		return b
	}
	return a
}
