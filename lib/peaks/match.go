//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package peaks

import (
	"fmt"
	"io"

	"git.sr.ht/~vejnar/SignalAbacus/lib/feature"
	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
)

// Match is a pair of overlapping peaks.
type Match struct {
	A, B feature.Peak
}

type Result struct {
	Both  []Match
	AOnly []feature.Peak
	BOnly []feature.Peak
}

// MatchSets pairs each unused peak of a with the first unused overlapping
// peak of b. Both sets must be sorted with feature.SortPeaks. Matched peaks
// are marked Used in a and b, so a second call finds no new match.
func MatchSets(a, b []feature.Peak) (res Result) {
	var lo int
	for i := range a {
		pa := &a[i]
		// First B peak on the chromosome of pa
		for lo < len(b) && b[lo].ChromID < pa.ChromID {
			lo++
		}
		if pa.Used {
			continue
		}
		for j := lo; j < len(b); j++ {
			pb := &b[j]
			if pb.ChromID != pa.ChromID || pb.Start >= pa.End {
				break
			}
			if pb.Used || pb.End <= pa.Start {
				continue
			}
			pa.Used, pb.Used = true, true
			res.Both = append(res.Both, Match{A: *pa, B: *pb})
			break
		}
	}
	for _, p := range a {
		if !p.Used {
			res.AOnly = append(res.AOnly, p)
		}
	}
	for _, p := range b {
		if !p.Used {
			res.BOnly = append(res.BOnly, p)
		}
	}
	return
}

// WriteMatches writes both peaks of each match on one tabulated line.
func WriteMatches(w io.Writer, matches []Match, table *genome.ChromTable, bed bool) error {
	offset := 1
	if bed {
		offset = 0
	}
	for _, m := range matches {
		_, err := fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\t%d\t%d\t%.2f\n", table.Name(m.A.ChromID), m.A.Start+offset, m.A.End, m.A.Score, m.B.Start+offset, m.B.End, m.B.Score)
		if err != nil {
			return err
		}
	}
	return nil
}
