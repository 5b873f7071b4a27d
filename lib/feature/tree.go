//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package feature

import (
	"fmt"
	"sort"

	"github.com/biogo/store/interval"
)

// span is a transcript window in a tree. Half-open.
type span struct {
	start, end int
	// Index of the transcript in its input slice
	index int
}

func (s span) Overlap(b interval.IntRange) bool {
	return s.end > b.Start && s.start < b.End
}

func (s span) ID() uintptr {
	return uintptr(s.index)
}

func (s span) Range() interval.IntRange {
	return interval.IntRange{Start: s.start, End: s.end}
}

func (s span) String() string {
	return fmt.Sprintf("[%d,%d)#%d", s.start, s.end, s.index)
}

// TranscriptTrees holds one interval tree per chromosome ID.
type TranscriptTrees []*interval.IntTree

// BuildTranscriptTrees builds a tree of transcripts: each transcript window
// (span extended by upstream bases before the TSS and downstream bases after
// the TES) is added to the tree of its chromosome.
func BuildTranscriptTrees(transcripts []Transcript, nChroms, upstream, downstream int) (trees TranscriptTrees, err error) {
	trees = make(TranscriptTrees, nChroms)
	for i := range trees {
		trees[i] = &interval.IntTree{}
	}
	for it, t := range transcripts {
		start, end := t.Window(upstream, downstream)
		if err = trees[t.ChromID].Insert(span{start: start, end: end, index: it}, true); err != nil {
			return
		}
	}
	for _, tree := range trees {
		tree.AdjustRanges()
	}
	return
}

// Overlapping returns the sorted indexes of the transcripts whose window
// overlaps [start, end) on chrID.
func (trees TranscriptTrees) Overlapping(chrID, start, end int) (indexes []int) {
	if chrID < 0 || chrID >= len(trees) || end <= start {
		return
	}
	for _, iv := range trees[chrID].Get(span{start: start, end: end, index: -1}) {
		indexes = append(indexes, iv.(span).index)
	}
	sort.Ints(indexes)
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
