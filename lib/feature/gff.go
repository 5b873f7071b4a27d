//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package feature

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/biogo/biogo/io/featio/gff"
	"github.com/biogo/biogo/seq"

	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
)

// OpenGFF loads transcripts from a GFF file. Transcripts are built from
// "mRNA" and "transcript" features; their "exon" and "CDS" children are
// attached through the Parent attribute.
func OpenGFF(gpath string, table *genome.ChromTable) (transcripts []Transcript, skipped int, err error) {
	f, err := genome.OpenText(gpath)
	if err != nil {
		return
	}
	defer f.Close()
	return ReadGFF(f, table)
}

func ReadGFF(r io.Reader, table *genome.ChromTable) (transcripts []Transcript, skipped int, err error) {
	type child struct {
		parents    []string
		start, end int
		cds        bool
	}
	ids := make(map[string]int)
	var children []child

	in := gff.NewReader(newAttributeReader(r))
	for {
		ft, rerr := in.Read()
		if rerr != nil {
			if rerr != io.EOF {
				err = fmt.Errorf("failed to read GFF feature: %v", rerr)
				return
			}
			break
		}
		gf, ok := ft.(*gff.Feature)
		if !ok {
			continue
		}
		switch gf.Feature {
		case "mRNA", "transcript":
			chrID, cerr := table.Resolve(gf.SeqName)
			if cerr != nil {
				skipped++
				continue
			}
			id := attribute(gf, "ID")
			if id == "" {
				err = fmt.Errorf("%s at %s:%d without ID", gf.Feature, gf.SeqName, gf.FeatStart)
				return
			}
			t := Transcript{ChromID: chrID, Strand: gffStrand(gf.FeatStrand), Start: gf.FeatStart, End: gf.FeatEnd, Name: id, Gene: id}
			if name := attribute(gf, "Name"); name != "" {
				t.Name = name
			}
			if gene := attribute(gf, "gene_name"); gene != "" {
				t.Gene = gene
			} else if parent := attribute(gf, "Parent"); parent != "" {
				t.Gene = strings.TrimPrefix(parent, "gene:")
			}
			ids[id] = len(transcripts)
			transcripts = append(transcripts, t)
		case "exon", "CDS":
			parents := attribute(gf, "Parent")
			if parents == "" {
				continue
			}
			children = append(children, child{parents: strings.Split(parents, ","), start: gf.FeatStart, end: gf.FeatEnd, cds: gf.Feature == "CDS"})
		}
	}

	// Attach children
	for _, c := range children {
		for _, p := range c.parents {
			it, ok := ids[p]
			if !ok {
				continue
			}
			t := &transcripts[it]
			if c.cds {
				if t.CDSStart == t.CDSEnd {
					t.CDSStart, t.CDSEnd = c.start, c.end
				} else {
					t.CDSStart, t.CDSEnd = min(t.CDSStart, c.start), max(t.CDSEnd, c.end)
				}
			} else {
				t.Exons = append(t.Exons, []int{c.start, c.end})
			}
		}
	}
	for it := range transcripts {
		t := &transcripts[it]
		if len(t.Exons) == 0 {
			t.Exons = [][]int{{t.Start, t.End}}
		}
		SortExons(t.Exons)
		// Non-coding
		if t.CDSStart == t.CDSEnd {
			t.CDSStart, t.CDSEnd = t.End, t.End
		}
	}
	return
}

// attribute returns the value of tag without quotes.
func attribute(gf *gff.Feature, tag string) string {
	return strings.Trim(gf.FeatAttributes.Get(tag), `"`)
}

// attributeReader feeds GFF3 to gff.Reader, which only parses the GFF2
// "tag value" attribute form. Attributes with a tag outside [A-Za-z_] are
// dropped. Comment and directive lines are skipped, and reading stops at
// ##FASTA.
type attributeReader struct {
	r   *bufio.Reader
	buf []byte
	eof bool
}

func newAttributeReader(r io.Reader) *attributeReader {
	return &attributeReader{r: bufio.NewReader(r)}
}

func (ar *attributeReader) Read(p []byte) (int, error) {
	for len(ar.buf) == 0 {
		if ar.eof {
			return 0, io.EOF
		}
		line, err := ar.r.ReadBytes('\n')
		if err == io.EOF {
			ar.eof = true
		} else if err != nil {
			return 0, err
		}
		line = bytes.TrimRight(line, "\r\n")
		if bytes.HasPrefix(line, []byte("##FASTA")) {
			ar.eof = true
			continue
		}
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		ar.buf = append(rewriteAttributes(line), '\n')
	}
	n := copy(p, ar.buf)
	ar.buf = ar.buf[n:]
	return n, nil
}

// rewriteAttributes rewrites the ninth column of line.
func rewriteAttributes(line []byte) []byte {
	fields := bytes.Split(line, []byte{'\t'})
	if len(fields) < 9 {
		return line
	}
	var attrs [][]byte
	for _, a := range bytes.Split(fields[8], []byte{';'}) {
		a = bytes.TrimSpace(a)
		if i := bytes.IndexByte(a, '='); i > 0 && validTag(a[:i]) {
			attrs = append(attrs, bytes.Join([][]byte{a[:i], bytes.TrimSpace(a[i+1:])}, []byte{' '}))
		} else if f := bytes.Fields(a); len(f) > 0 && validTag(f[0]) {
			attrs = append(attrs, a)
		}
	}
	fields[8] = bytes.Join(attrs, []byte("; "))
	return bytes.Join(fields, []byte{'\t'})
}

func validTag(tag []byte) bool {
	if len(tag) == 0 {
		return false
	}
	for _, b := range tag {
		if !(b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b == '_') {
			return false
		}
	}
	return true
}

func gffStrand(s seq.Strand) int8 {
	switch s {
	case seq.Plus:
		return 1
	case seq.Minus:
		return -1
	}
	return 0
}
