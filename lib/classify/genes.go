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
	"io"

	"git.sr.ht/~vejnar/SignalAbacus/lib/feature"
	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
)

// GeneMatch links a peak to a transcript whose window it overlaps.
type GeneMatch struct {
	Peak       int
	Transcript int
}

// GeneWindow returns the matching window of t: TSS +/- TSSRange if set, else
// TES +/- TESRange if set, else the transcript extended by Upstream and
// Downstream.
func (cl *Classifier) GeneWindow(t feature.Transcript) (start, end int) {
	switch {
	case cl.cfg.TSSRange > 0:
		return t.Around(t.TSS(), cl.cfg.TSSRange, cl.cfg.TSSRange)
	case cl.cfg.TESRange > 0:
		return t.Around(t.TES(), cl.cfg.TESRange, cl.cfg.TESRange)
	}
	return t.Window(cl.cfg.Upstream, cl.cfg.Downstream)
}

// MatchGenes returns, in peak then transcript order, every (peak,
// transcript) pair where the peak overlaps the transcript window.
func (cl *Classifier) MatchGenes(peaks []feature.Peak) (matches []GeneMatch) {
	for ip, p := range peaks {
		for _, it := range cl.trees.Overlapping(p.ChromID, p.Start, p.End) {
			t := cl.transcripts[it]
			if start, end := cl.GeneWindow(t); p.Start < end && start < p.End {
				matches = append(matches, GeneMatch{Peak: ip, Transcript: it})
			}
		}
	}
	return
}

// WriteGeneMatches writes one tabulated line per match: chrom, start, end,
// score, transcript, gene, strand, TSS and TES. Positions are 1-based unless
// bed is set.
func WriteGeneMatches(w io.Writer, matches []GeneMatch, peaks []feature.Peak, transcripts []feature.Transcript, table *genome.ChromTable, bed bool) error {
	offset := 1
	if bed {
		offset = 0
	}
	for _, m := range matches {
		p, t := peaks[m.Peak], transcripts[m.Transcript]
		strand := "+"
		if t.Strand == -1 {
			strand = "-"
		}
		if _, err := fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%s\t%s\t%s\t%d\t%d\n", table.Name(p.ChromID), p.Start+offset, p.End, p.Score, t.Name, t.Gene, strand, t.TSS()+offset, t.TES()+offset); err != nil {
			return err
		}
	}
	return nil
}
