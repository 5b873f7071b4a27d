//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package classify

import (
	"fmt"

	"git.sr.ht/~vejnar/SignalAbacus/lib/feature"
	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
)

const (
	DefaultUpstream   = 2500
	DefaultDownstream = 2500
	DefaultProximal   = 500
)

// Coarse labels, ordered from least to most specific.
type Coarse int

const (
	Intergenic Coarse = iota
	Intragenic
	Promoter
)

func (c Coarse) String() string {
	switch c {
	case Promoter:
		return "PROMOTER"
	case Intragenic:
		return "INTRAGENIC"
	}
	return "INTERGENIC"
}

type Fine int

const (
	FineNone Fine = iota
	Proximal
	Distal
	UTR5
	CDS
	UTR3
	Intron
)

func (f Fine) String() string {
	switch f {
	case Proximal:
		return "PROXIMAL"
	case Distal:
		return "DISTAL"
	case UTR5:
		return "5UTR"
	case CDS:
		return "CDS"
	case UTR3:
		return "3UTR"
	case Intron:
		return "INTRON"
	}
	return ""
}

// exonic priority: CDS > 5UTR > 3UTR
func (f Fine) rank() int {
	switch f {
	case CDS:
		return 3
	case UTR5:
		return 2
	case UTR3:
		return 1
	}
	return 0
}

type Config struct {
	Upstream   int
	Downstream int
	// Maximum distance between TSS and a PROXIMAL peak
	Proximal int
	// Gene matching windows around TSS or TES (0 to disable)
	TSSRange int
	TESRange int
}

func DefaultConfig() Config {
	return Config{Upstream: DefaultUpstream, Downstream: DefaultDownstream, Proximal: DefaultProximal}
}

func (cfg Config) validate() error {
	for _, v := range []struct {
		name  string
		value int
	}{{"upstream", cfg.Upstream}, {"downstream", cfg.Downstream}, {"proximal", cfg.Proximal}, {"TSS range", cfg.TSSRange}, {"TES range", cfg.TESRange}} {
		if v.value < 0 {
			return fmt.Errorf("negative %s %d: %w", v.name, v.value, genome.ErrConfiguration)
		}
	}
	return nil
}

// Classifier labels peaks against a fixed set of transcripts. It is not
// modified after creation.
type Classifier struct {
	cfg         Config
	transcripts []feature.Transcript
	trees       feature.TranscriptTrees
}

// NewClassifier indexes transcripts. Transcript chromosome IDs must be lower
// than nChroms.
func NewClassifier(transcripts []feature.Transcript, nChroms int, cfg Config) (*Classifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	for i, t := range transcripts {
		if t.ChromID < 0 || t.ChromID >= nChroms {
			return nil, fmt.Errorf("transcript %d (%s) chromosome ID %d: %w", i, t.Name, t.ChromID, genome.ErrUnknownChromosome)
		}
	}
	// Trees cover every window used below
	ext := max(max(cfg.Upstream, cfg.Downstream), max(cfg.TSSRange, cfg.TESRange))
	trees, err := feature.BuildTranscriptTrees(transcripts, nChroms, ext, ext)
	if err != nil {
		return nil, err
	}
	return &Classifier{cfg: cfg, transcripts: transcripts, trees: trees}, nil
}

func (cl *Classifier) Transcripts() []feature.Transcript {
	return cl.transcripts
}

// coarse returns the label of peak relative to one transcript.
func (cl *Classifier) coarse(peak feature.Interval, t feature.Transcript) Coarse {
	if peak.ChromID != t.ChromID {
		return Intergenic
	}
	if ps, pe := t.Promoter(cl.cfg.Upstream, cl.cfg.Downstream); peak.Start < pe && ps < peak.End {
		return Promoter
	}
	if peak.Start < t.End && t.Start < peak.End {
		return Intragenic
	}
	return Intergenic
}

// ClassifyCoarse returns the most specific label of peak across all
// transcripts, and the index of the transcript giving it (-1 if
// INTERGENIC). Ties go to the lowest transcript index.
func (cl *Classifier) ClassifyCoarse(peak feature.Interval) (best Coarse, index int) {
	index = -1
	for _, it := range cl.trees.Overlapping(peak.ChromID, peak.Start, peak.End) {
		if c := cl.coarse(peak, cl.transcripts[it]); c > best {
			best, index = c, it
			if best == Promoter {
				break
			}
		}
	}
	return
}

// ClassifyDetailed refines the label of peak relative to transcript t.
func (cl *Classifier) ClassifyDetailed(peak feature.Interval, t feature.Transcript) Fine {
	switch cl.coarse(peak, t) {
	case Promoter:
		if tssDistance(peak, t.TSS()) <= cl.cfg.Proximal {
			return Proximal
		}
		return Distal
	case Intragenic:
		return exonic(peak, t)
	}
	return FineNone
}

// tssDistance returns the distance between tss and the start of peak.
func tssDistance(peak feature.Interval, tss int) int {
	if tss < peak.Start {
		return peak.Start - tss
	}
	return tss - peak.Start
}

// exonic scans the sorted exons of t overlapping peak.
func exonic(peak feature.Interval, t feature.Transcript) Fine {
	best := Intron
	for _, exon := range t.Exons {
		if exon[0] >= peak.End {
			break
		}
		if exon[1] <= peak.Start {
			continue
		}
		if !t.Coding() {
			return CDS
		}
		ovStart, ovEnd := max(exon[0], peak.Start), min(exon[1], peak.End)
		if ovStart < t.CDSEnd && t.CDSStart < ovEnd {
			return CDS
		}
		var f Fine
		if ovStart < t.CDSStart {
			f = UTR5
			if t.Strand == -1 {
				f = UTR3
			}
		} else {
			f = UTR3
			if t.Strand == -1 {
				f = UTR5
			}
		}
		if f.rank() > best.rank() {
			best = f
		}
	}
	return best
}

// Assignment is the classification of one peak.
type Assignment struct {
	Peak   feature.Peak
	Coarse Coarse
	Fine   Fine
	// Index of the transcript (-1 if INTERGENIC)
	Transcript int
}

// Classify labels every peak. Each peak receives exactly one coarse label
// and, unless INTERGENIC, exactly one fine label.
func (cl *Classifier) Classify(peaks []feature.Peak) []Assignment {
	assignments := make([]Assignment, len(peaks))
	for i, p := range peaks {
		c, it := cl.ClassifyCoarse(p.Interval)
		a := Assignment{Peak: p, Coarse: c, Transcript: it}
		if it >= 0 {
			a.Fine = cl.ClassifyDetailed(p.Interval, cl.transcripts[it])
		}
		assignments[i] = a
	}
	return assignments
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
