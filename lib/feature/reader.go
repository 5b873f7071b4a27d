//
// Copyright (C) 2015-2021 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package feature

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
)

// OpenPeaks parses a tabulated peak file: chrom, start, end, then optional
// name, score and strand. A 4th column parsing as a number is the score.
// Coordinates are 1-based inclusive unless bed is true (0-based, half-open).
// Peaks on chromosomes missing from table are skipped and counted.
func OpenPeaks(ppath string, table *genome.ChromTable, bed bool) (peaks []Peak, skipped int, err error) {
	f, err := genome.OpenText(ppath)
	if err != nil {
		return
	}
	defer f.Close()
	return ReadPeaks(f, table, bed)
}

func ReadPeaks(r io.Reader, table *genome.ChromTable, bed bool) (peaks []Peak, skipped int, err error) {
	var nLine int
	tscanner := bufio.NewScanner(r)
	for tscanner.Scan() {
		nLine++
		line := tscanner.Text()
		if skipLine(line) {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			err = fmt.Errorf("line %d: expected chrom, start and end", nLine)
			return
		}
		chrID, rerr := table.Resolve(fields[0])
		if rerr != nil {
			skipped++
			continue
		}
		p := Peak{Interval: Interval{ChromID: chrID}}
		if p.Start, err = strconv.Atoi(fields[1]); err != nil {
			err = fmt.Errorf("line %d: %v", nLine, err)
			return
		}
		if p.End, err = strconv.Atoi(fields[2]); err != nil {
			err = fmt.Errorf("line %d: %v", nLine, err)
			return
		}
		if !bed {
			p.Start--
		}
		if p.Start < 0 || p.End <= p.Start {
			err = fmt.Errorf("line %d: invalid interval %d-%d", nLine, p.Start, p.End)
			return
		}
		extra := fields[3:]
		if len(extra) > 0 {
			if score, serr := strconv.ParseFloat(extra[0], 64); serr == nil {
				p.Score = score
				extra = extra[1:]
			} else {
				p.Name = extra[0]
				extra = extra[1:]
				if len(extra) > 0 {
					if score, serr := strconv.ParseFloat(extra[0], 64); serr == nil {
						p.Score = score
					}
					extra = extra[1:]
				}
			}
		}
		if len(extra) > 0 {
			p.Strand = parseStrand(extra[0])
		}
		peaks = append(peaks, p)
	}
	err = tscanner.Err()
	return
}

// WritePeaks writes peaks as 1-based inclusive (or BED) tabulated lines.
func WritePeaks(w io.Writer, peaks []Peak, table *genome.ChromTable, bed bool) error {
	for _, p := range peaks {
		start := p.Start
		if !bed {
			start++
		}
		var err error
		if p.Name != "" {
			_, err = fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%.2f\n", table.Name(p.ChromID), start, p.End, p.Name, p.Score)
		} else {
			_, err = fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\n", table.Name(p.ChromID), start, p.End, p.Score)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// OpenRefGene parses a UCSC refGene (genePred) table, with or without the
// leading bin column. Transcripts on chromosomes missing from table are
// skipped and counted.
func OpenRefGene(tpath string, table *genome.ChromTable) (transcripts []Transcript, skipped int, err error) {
	f, err := genome.OpenText(tpath)
	if err != nil {
		return
	}
	defer f.Close()
	return ReadRefGene(f, table)
}

func ReadRefGene(r io.Reader, table *genome.ChromTable) (transcripts []Transcript, skipped int, err error) {
	var nLine int
	tscanner := bufio.NewScanner(r)
	tscanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for tscanner.Scan() {
		nLine++
		line := tscanner.Text()
		if skipLine(line) {
			continue
		}
		fields := strings.Split(line, "\t")
		// Bin column
		if len(fields) > 3 && !isStrand(fields[2]) && isStrand(fields[3]) {
			fields = fields[1:]
		}
		if len(fields) < 10 || !isStrand(fields[2]) {
			err = fmt.Errorf("line %d: not a refGene line", nLine)
			return
		}
		chrID, rerr := table.Resolve(fields[1])
		if rerr != nil {
			skipped++
			continue
		}
		t := Transcript{ChromID: chrID, Name: fields[0], Gene: fields[0], Strand: parseStrand(fields[2])}
		var ints [4]int
		for i := range ints {
			if ints[i], err = strconv.Atoi(fields[3+i]); err != nil {
				err = fmt.Errorf("line %d: %v", nLine, err)
				return
			}
		}
		t.Start, t.End, t.CDSStart, t.CDSEnd = ints[0], ints[1], ints[2], ints[3]
		if t.End <= t.Start {
			err = fmt.Errorf("line %d: invalid transcript %s", nLine, t.Name)
			return
		}
		var starts, ends []int
		if starts, err = parseCommaList(fields[8]); err != nil {
			err = fmt.Errorf("line %d: %v", nLine, err)
			return
		}
		if ends, err = parseCommaList(fields[9]); err != nil {
			err = fmt.Errorf("line %d: %v", nLine, err)
			return
		}
		if len(starts) != len(ends) {
			err = fmt.Errorf("line %d: %d exon starts and %d exon ends", nLine, len(starts), len(ends))
			return
		}
		for i := range starts {
			t.Exons = append(t.Exons, []int{starts[i], ends[i]})
		}
		// Gene name (name2)
		if len(fields) > 11 && fields[11] != "" {
			t.Gene = fields[11]
		}
		SortExons(t.Exons)
		transcripts = append(transcripts, t)
	}
	err = tscanner.Err()
	return
}

func skipLine(line string) bool {
	return len(line) == 0 || line[0] == '#' || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser")
}

func isStrand(s string) bool {
	return s == "+" || s == "-"
}

func parseStrand(s string) int8 {
	switch s {
	case "+":
		return 1
	case "-":
		return -1
	}
	return 0
}

func parseCommaList(s string) (values []int, err error) {
	for _, f := range strings.Split(strings.TrimSuffix(s, ","), ",") {
		if f == "" {
			continue
		}
		var v int
		if v, err = strconv.Atoi(f); err != nil {
			return
		}
		values = append(values, v)
	}
	return
}
