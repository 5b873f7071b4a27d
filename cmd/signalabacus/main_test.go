//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/klauspost/compress/gzip"

	"git.sr.ht/~vejnar/SignalAbacus/lib/esam"
	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
	"git.sr.ht/~vejnar/SignalAbacus/lib/signal"
)

const testSAM = "@SQ\tSN:chr1\tLN:1000\n" +
	"@SQ\tSN:chrX\tLN:1000\n" +
	"r1\t0\tchr1\t101\t60\t10M\t*\t0\t0\tACGTACGTAC\t*\n" +
	"r2\t16\tchr1\t201\t60\t10M\t*\t0\t0\tACGTACGTAC\t*\n" +
	"r3\t0\tchrX\t101\t60\t10M\t*\t0\t0\tACGTACGTAC\t*\n" +
	"r4\t1024\tchr1\t101\t60\t10M\t*\t0\t0\tACGTACGTAC\t*\n"

func writeFile(c *qt.C, name, content string) string {
	path := filepath.Join(c.TempDir(), name)
	c.Assert(os.WriteFile(path, []byte(content), 0644), qt.IsNil)
	return path
}

func TestAddCommas(t *testing.T) {
	c := qt.New(t)
	c.Assert(AddCommas("12"), qt.Equals, "12")
	c.Assert(AddCommas("1234"), qt.Equals, "1,234")
	c.Assert(AddCommas("1234567"), qt.Equals, "1,234,567")
}

func TestSplitAlignments(t *testing.T) {
	c := qt.New(t)
	pathSAMs, err := splitAlignments("a.sam,b.BAM")
	c.Assert(err, qt.IsNil)
	c.Assert(pathSAMs, qt.DeepEquals, []esam.PathSAM{{Path: "a.sam"}, {Path: "b.BAM", Binary: true}})
	pathSAMs, err = splitAlignments("track.bedgraph.gz")
	c.Assert(err, qt.IsNil)
	c.Assert(pathSAMs, qt.IsNil)
	_, err = splitAlignments("a.bam,track.bedgraph")
	c.Assert(err, qt.ErrorIs, genome.ErrConfiguration)
}

func TestLoadChromTable(t *testing.T) {
	c := qt.New(t)
	pathSAM := esam.NewPathSAM(writeFile(c, "test.sam", testSAM))
	table, err := LoadChromTable("", []esam.PathSAM{pathSAM}, nil, "", 0)
	c.Assert(err, qt.IsNil)
	c.Assert(table.Len(), qt.Equals, 2)
	c.Assert(table.Name(1), qt.Equals, "chrX")

	pathMapping := writeFile(c, "mapping.tab", "X\tchrX\n")
	table, err = LoadChromTable(writeFile(c, "sizes.tab", "chr1\t1000\nchrX\t500\n"), nil, nil, pathMapping, 0)
	c.Assert(err, qt.IsNil)
	id, err := table.Resolve("X")
	c.Assert(err, qt.IsNil)
	c.Assert(table.Length(id), qt.Equals, 500)

	_, err = LoadChromTable("", nil, nil, "", 0)
	c.Assert(err, qt.ErrorIs, genome.ErrConfiguration)
}

func TestAccumulate(t *testing.T) {
	c := qt.New(t)
	pathSAM := esam.NewPathSAM(writeFile(c, "test.sam", testSAM))
	// chrX is not in the table
	table, err := genome.BuildChromTable([]genome.SizeRecord{{Name: "chr1", Length: 1000}}, 0)
	c.Assert(err, qt.IsNil)
	cfg := signal.Config{FragmentLength: 100}

	acc, err := Accumulate(context.Background(), []esam.PathSAM{pathSAM}, nil, table, cfg, esam.Filter{}, 1, time.Now())
	c.Assert(err, qt.IsNil)
	c.Assert(acc.Reads, qt.Equals, esam.ReadStats{Alignments: 4, Filtered: 1})
	c.Assert(acc.Stats.Reads, qt.Equals, uint64(3))
	c.Assert(acc.Stats.Fragments, qt.Equals, uint64(2))
	c.Assert(acc.Stats.UnknownChrom, qt.Equals, uint64(1))
	c.Assert(acc.Unknown, qt.DeepEquals, []string{"chrX"})
	// Forward [50,150), reverse 5' at 209: [159,259)
	c.Assert(acc.Signal.Count(0, 50, signal.StrandForward), qt.Equals, uint32(1))
	c.Assert(acc.Signal.Count(0, 150, signal.StrandForward), qt.Equals, uint32(0))
	c.Assert(acc.Signal.Count(0, 159, signal.StrandReverse), qt.Equals, uint32(1))
	c.Assert(acc.Signal.View(signal.StrandBoth).WindowSum(0, 0, 1000), qt.Equals, 200.)

	// Same file twice
	acc, err = Accumulate(context.Background(), []esam.PathSAM{pathSAM, pathSAM}, nil, table, cfg, esam.Filter{}, 1, time.Now())
	c.Assert(err, qt.IsNil)
	c.Assert(acc.Stats.Fragments, qt.Equals, uint64(4))

	_, err = Accumulate(context.Background(), []esam.PathSAM{esam.NewPathSAM(filepath.Join(c.TempDir(), "missing.sam"))}, nil, table, cfg, esam.Filter{}, 1, time.Now())
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestWriteOutput(t *testing.T) {
	c := qt.New(t)
	report := NewReport("test", version)
	path := filepath.Join(c.TempDir(), "out.txt.gz")
	err := writeOutput(path, report, func(w io.Writer) error {
		_, err := io.WriteString(w, "chr1\t1\t10\n")
		return err
	})
	c.Assert(err, qt.IsNil)
	c.Assert(report.Outputs, qt.DeepEquals, []string{path})

	f, err := os.Open(path)
	c.Assert(err, qt.IsNil)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	c.Assert(err, qt.IsNil)
	content, err := io.ReadAll(zr)
	c.Assert(err, qt.IsNil)
	c.Assert(string(content), qt.Equals, "chr1\t1\t10\n")
}

func TestReport(t *testing.T) {
	c := qt.New(t)
	r := NewReport("peaks", "1.0")
	c.Assert(r.RunID, qt.HasLen, 36)
	r.SetCount("peaks", 3)
	r.AddAccumulation("a.bam", Accumulation{Stats: signal.Stats{Reads: 5, Fragments: 4, Unmapped: 1}})

	var buf bytes.Buffer
	c.Assert(writeJSON(&buf, r), qt.IsNil)
	var decoded map[string]interface{}
	c.Assert(json.Unmarshal(buf.Bytes(), &decoded), qt.IsNil)
	c.Assert(decoded["command"], qt.Equals, "peaks")
	c.Assert(decoded["counts"], qt.DeepEquals, map[string]interface{}{"peaks": 3.})
	c.Assert(buf.String(), qt.Contains, `"fragments": 4`)

	path := filepath.Join(c.TempDir(), "report.json")
	c.Assert(WriteReport(path, r), qt.IsNil)
	content, err := os.ReadFile(path)
	c.Assert(err, qt.IsNil)
	c.Assert(string(content), qt.Equals, buf.String())
}

func TestInputConfig(t *testing.T) {
	c := qt.New(t)
	in := &inputFlags{mode: "extend", fragmentLength: 150, minMapQ: 30, maxMemory: 2}
	cfg, flt, err := in.config()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Mode, qt.Equals, signal.ModeExtend)
	c.Assert(cfg.MaxMemory, qt.Equals, int64(2*1024*1024))
	c.Assert(flt.MinMappingQuality, qt.Equals, byte(30))

	in.minMapQ = 255
	_, flt, err = in.config()
	c.Assert(err, qt.IsNil)
	c.Assert(flt.MinMappingQuality, qt.Equals, byte(255))
	for _, q := range []int{256, -1} {
		in.minMapQ = q
		_, _, err = in.config()
		c.Assert(err, qt.ErrorIs, genome.ErrConfiguration)
	}
}

func TestRunProfilesFailedCommand(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	c.Patch(cpuProfile, dir)
	c.Patch(rebinPathBedGraph, "reads.bam")

	err := run(rebinCmd.FullCommand(), time.Now())
	c.Assert(err, qt.ErrorIs, genome.ErrConfiguration)
	info, err := os.Stat(filepath.Join(dir, "cpu.pprof"))
	c.Assert(err, qt.IsNil)
	c.Assert(info.Size() > 0, qt.IsTrue)
}
