//
// Copyright (C) 2015-2021 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package feature

import (
	"sort"
)

// Interval is a 0-based, half-open genomic interval.
type Interval struct {
	ChromID    int
	Start, End int
	// +1, -1 or 0 if unknown
	Strand int8
	Score  float64
	Name   string
}

// Length returns the length of interval
func (iv Interval) Length() int {
	return iv.End - iv.Start
}

// Overlaps reports whether both intervals share at least one base.
func (iv Interval) Overlaps(b Interval) bool {
	return iv.ChromID == b.ChromID && iv.Start < b.End && b.Start < iv.End
}

// Peak is an Interval that can be matched once.
type Peak struct {
	Interval
	Used bool
}

type Transcript struct {
	ChromID int
	Strand  int8
	// Transcript span
	Start, End int
	// Equal when non-coding
	CDSStart, CDSEnd int
	Name             string
	Gene             string
	// Sorted, non-overlapping [start, end) pairs
	Exons [][]int
}

// TSS returns the position of the transcription start site.
func (t Transcript) TSS() int {
	if t.Strand == -1 {
		return t.End - 1
	}
	return t.Start
}

// TES returns the position of the transcription end site.
func (t Transcript) TES() int {
	if t.Strand == -1 {
		return t.Start
	}
	return t.End - 1
}

func (t Transcript) Coding() bool {
	return t.CDSStart < t.CDSEnd
}

// Around returns the interval from upstream bases before pos to downstream
// bases after pos (pos included), following the transcript strand.
func (t Transcript) Around(pos, upstream, downstream int) (start, end int) {
	if t.Strand == -1 {
		start, end = pos-downstream, pos+upstream+1
	} else {
		start, end = pos-upstream, pos+downstream+1
	}
	if start < 0 {
		start = 0
	}
	return
}

// Promoter returns the promoter interval of the transcript.
func (t Transcript) Promoter(upstream, downstream int) (start, end int) {
	return t.Around(t.TSS(), upstream, downstream)
}

// Window returns the transcript span extended by upstream bases before the
// TSS and downstream bases after the TES.
func (t Transcript) Window(upstream, downstream int) (start, end int) {
	if t.Strand == -1 {
		start, end = t.Start-downstream, t.End+upstream
	} else {
		start, end = t.Start-upstream, t.End+downstream
	}
	if start < 0 {
		start = 0
	}
	return
}

// IntervalsLength returns the length covered by all intervals (0-based [start,end))
func IntervalsLength(intervals [][]int) (length int) {
	for _, iv := range intervals {
		length += iv[1] - iv[0]
	}
	return
}

// Sorting functions: By Position
// Use it with: sort.Sort(feature.ByPosition(peaks))
type ByPosition []Peak

func (p ByPosition) Len() int      { return len(p) }
func (p ByPosition) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p ByPosition) Less(i, j int) bool {
	if p[i].ChromID != p[j].ChromID {
		return p[i].ChromID < p[j].ChromID
	}
	if p[i].Start != p[j].Start {
		return p[i].Start < p[j].Start
	}
	return p[i].End < p[j].End
}

// Sorting functions: By Score (decreasing)
type ByScore []Peak

func (p ByScore) Len() int           { return len(p) }
func (p ByScore) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
func (p ByScore) Less(i, j int) bool { return p[i].Score > p[j].Score }

// SortPeaks sorts peaks by chromosome ID then start. Equal peaks keep their
// input order.
func SortPeaks(peaks []Peak) {
	sort.Stable(ByPosition(peaks))
}

// SortExons sorts [start, end) pairs by start.
func SortExons(exons [][]int) {
	sort.Slice(exons, func(i, j int) bool { return exons[i][0] < exons[j][0] })
}
