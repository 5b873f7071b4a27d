//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package signal

import (
	"errors"
	"fmt"

	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
)

var ErrFinalized = errors.New("accumulator finalized")

// SignalArray holds per-base counters of one chromosome. Both sub-arrays
// have Length plus padding elements.
type SignalArray struct {
	Length  int
	Forward []uint32
	Reverse []uint32
}

// Accumulator fills SignalArrays from reads. It is owned by a single goroutine.
type Accumulator struct {
	cfg    Config
	table  *genome.ChromTable
	arrays []SignalArray
	pad    int
	mates  map[string]Read
	stats  Stats
	closed bool
}

// NewAccumulator allocates the signal arrays of every chromosome of table.
func NewAccumulator(table *genome.ChromTable, cfg Config) (*Accumulator, error) {
	if cfg.FragmentLength < 0 {
		return nil, fmt.Errorf("negative fragment length %d: %w", cfg.FragmentLength, genome.ErrConfiguration)
	}
	a := &Accumulator{cfg: cfg, table: table, pad: cfg.FragmentLength}
	// Memory check
	var need int64
	for _, l := range table.Lengths {
		need += int64(l+a.pad) * 2 * 4
	}
	if cfg.MaxMemory > 0 && need > cfg.MaxMemory {
		return nil, fmt.Errorf("signal arrays need %d bytes, limit is %d: %w", need, cfg.MaxMemory, genome.ErrOutOfMemory)
	}
	a.arrays = make([]SignalArray, table.Len())
	for i, l := range table.Lengths {
		a.arrays[i] = SignalArray{Length: l, Forward: make([]uint32, l+a.pad), Reverse: make([]uint32, l+a.pad)}
	}
	if cfg.Paired {
		a.mates = make(map[string]Read)
	}
	return a, nil
}

// DepositRead adds one read to the signal. Reads on an unknown chromosome or
// out of the chromosome bounds are dropped and counted: the returned error
// wraps genome.ErrUnknownChromosome or genome.ErrOutOfRange and is not fatal.
// Other reads dropped (unmapped, unpaired) are counted without error.
func (a *Accumulator) DepositRead(r Read) error {
	if a.closed {
		return ErrFinalized
	}
	a.stats.Reads++
	if r.Unmapped {
		a.stats.Unmapped++
		return nil
	}
	chrID, err := a.table.Resolve(r.Chrom)
	if err != nil {
		a.stats.UnknownChrom++
		return err
	}
	length := a.arrays[chrID].Length

	if a.cfg.Paired {
		if !r.Paired || !r.ProperPair || r.MateUnmapped {
			a.stats.Unpaired++
			return nil
		}
		mate, ok := a.mates[r.Name]
		if !ok {
			a.mates[r.Name] = r
			return nil
		}
		delete(a.mates, r.Name)
		if mate.Chrom != r.Chrom {
			a.stats.Unpaired += 2
			return nil
		}
		start, end := min(r.Start, mate.Start), max(r.End, mate.End)
		strand := r.Strand
		if mate.Read1 {
			strand = mate.Strand
		}
		if start < 0 || start >= length {
			a.stats.OutOfRange += 2
			return fmt.Errorf("fragment %s:%d-%d: %w", r.Chrom, start, end, genome.ErrOutOfRange)
		}
		a.deposit(chrID, start, end, strand)
		return nil
	}

	p := r.FivePrime()
	if p < 0 || p >= length {
		a.stats.OutOfRange++
		return fmt.Errorf("read %s at %s:%d: %w", r.Name, r.Chrom, p, genome.ErrOutOfRange)
	}
	start, end := a.span(r, p)
	a.deposit(chrID, start, end, r.Strand)
	return nil
}

// DepositBatch deposits every read of b. Non-fatal per-read errors are passed
// to onSkip when not nil.
func (a *Accumulator) DepositBatch(b *Batch, onSkip func(Read, error)) error {
	for i := 0; i <= b.LastIdx; i++ {
		if err := a.DepositRead(b.Reads[i]); err != nil {
			if errors.Is(err, genome.ErrUnknownChromosome) || errors.Is(err, genome.ErrOutOfRange) {
				if onSkip != nil {
					onSkip(b.Reads[i], err)
				}
				continue
			}
			return err
		}
	}
	return nil
}

// span returns the half-open interval covered by a single-end read whose 5'
// end is at p.
func (a *Accumulator) span(r Read, p int) (start, end int) {
	l := a.cfg.FragmentLength
	switch a.cfg.Mode {
	case ModeExtend:
		if r.Strand == -1 {
			return p + 1 - max(l, 1), p + 1
		}
		return p, p + max(l, 1)
	case ModeAll:
		return r.Start, r.End
	case ModeFirst:
		return p, p + 1
	default:
		if l < 2 {
			return p, p + 1
		}
		return p - l/2, p + l - l/2
	}
}

// deposit increments every base of [start, end) clipped to the array.
func (a *Accumulator) deposit(chrID, start, end int, strand int8) {
	arr := &a.arrays[chrID]
	if a.cfg.InvertStrand {
		strand = -strand
	}
	counts := arr.Forward
	if strand == -1 {
		counts = arr.Reverse
		a.stats.Reverse++
	} else {
		a.stats.Forward++
	}
	a.stats.Fragments++
	start = max(start, 0)
	end = min(end, len(counts))
	for i := start; i < end; i++ {
		counts[i]++
	}
}

// Stats returns the accounting so far.
func (a *Accumulator) Stats() Stats {
	return a.stats
}

// Finalize closes the accumulator and returns the read-only signal. Mates
// still waiting for their pair are counted as unpaired.
func (a *Accumulator) Finalize() (*Signal, Stats) {
	if !a.closed {
		a.stats.Unpaired += uint64(len(a.mates))
		a.mates = nil
		a.closed = true
	}
	return &Signal{Table: a.table, Arrays: a.arrays, Fragments: a.stats.Fragments}, a.stats
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
