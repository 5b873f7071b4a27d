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

// Distribution counts peaks per label.
type Distribution struct {
	Total  int            `json:"total"`
	Coarse map[string]int `json:"coarse"`
	Fine   map[string]int `json:"fine"`
}

// Summarize counts assignments per coarse and fine label. Every label is
// present, with a zero count if unused.
func Summarize(assignments []Assignment) Distribution {
	d := Distribution{Coarse: make(map[string]int), Fine: make(map[string]int)}
	for _, c := range []Coarse{Promoter, Intragenic, Intergenic} {
		d.Coarse[c.String()] = 0
	}
	for _, f := range []Fine{Proximal, Distal, UTR5, CDS, UTR3, Intron} {
		d.Fine[f.String()] = 0
	}
	for _, a := range assignments {
		d.Total++
		d.Coarse[a.Coarse.String()]++
		if a.Fine != FineNone {
			d.Fine[a.Fine.String()]++
		}
	}
	return d
}

// Percent returns the share of peaks of a coarse label.
func (d Distribution) Percent(c Coarse) float64 {
	if d.Total == 0 {
		return 0
	}
	return 100 * float64(d.Coarse[c.String()]) / float64(d.Total)
}

// WriteAssignments writes one tabulated line per assignment: chrom, start,
// end, score, coarse label, fine label, transcript and gene names. Starts are
// 1-based unless bed is set. Missing values are written as ".".
func WriteAssignments(w io.Writer, assignments []Assignment, table *genome.ChromTable, transcripts []feature.Transcript, bed bool) error {
	offset := 1
	if bed {
		offset = 0
	}
	for _, a := range assignments {
		fine, tname, gene := ".", ".", "."
		if a.Fine != FineNone {
			fine = a.Fine.String()
		}
		if a.Transcript >= 0 {
			tname, gene = transcripts[a.Transcript].Name, transcripts[a.Transcript].Gene
		}
		p := a.Peak
		if _, err := fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%s\t%s\t%s\t%s\n", table.Name(p.ChromID), p.Start+offset, p.End, p.Score, a.Coarse, fine, tname, gene); err != nil {
			return err
		}
	}
	return nil
}
