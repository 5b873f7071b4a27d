//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package genome

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/klauspost/compress/gzip"
)

func TestBuildChromTable(t *testing.T) {
	c := qt.New(t)
	ct, err := BuildChromTable([]SizeRecord{
		{"chr2", 2000},
		{"chr1", 1000},
		{"chrBad", 0},
		{"chr2", 5},
		{"chrM", 16569},
	}, 0)
	c.Assert(err, qt.IsNil)
	c.Assert(ct.Len(), qt.Equals, 3)
	c.Assert(ct.Skipped, qt.Equals, 2)
	c.Assert(ct.Name(0), qt.Equals, "chr2")
	c.Assert(ct.Length(0), qt.Equals, 2000)
	c.Assert(ct.Name(2), qt.Equals, "chrM")
	c.Assert(ct.TotalLength(), qt.Equals, 19569)

	id, err := ct.Resolve("chr1")
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, 1)
	_, err = ct.Resolve("chrBad")
	c.Assert(err, qt.ErrorIs, ErrUnknownChromosome)
}

func TestBuildChromTableErrors(t *testing.T) {
	c := qt.New(t)
	_, err := BuildChromTable(nil, 0)
	c.Assert(err, qt.ErrorIs, ErrConfiguration)
	_, err = BuildChromTable([]SizeRecord{{"a", 1}, {"b", 1}, {"c", 1}}, 2)
	c.Assert(err, qt.ErrorIs, ErrCapacityExceeded)
}

func TestResolveAlias(t *testing.T) {
	c := qt.New(t)
	ct, err := BuildChromTable([]SizeRecord{{"chr1", 100}}, 0)
	c.Assert(err, qt.IsNil)
	ct.Aliases = map[string]string{"1": "chr1"}
	id, err := ct.Resolve("1")
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, 0)
}

func TestReadChromSizes(t *testing.T) {
	c := qt.New(t)
	records, err := ReadChromSizes(strings.NewReader("# genome\nchr1\t1000\n\nchr2 500\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.DeepEquals, []SizeRecord{{"chr1", 1000}, {"chr2", 500}})

	_, err = ReadChromSizes(strings.NewReader("chr1\tabc\n"))
	c.Assert(err, qt.ErrorMatches, "line 1: .*")
}

func TestOpenChromSizesGzip(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "sizes.txt.gz")
	f, err := os.Create(path)
	c.Assert(err, qt.IsNil)
	zw := gzip.NewWriter(f)
	zw.Write([]byte("chrX\t300\n"))
	c.Assert(zw.Close(), qt.IsNil)
	c.Assert(f.Close(), qt.IsNil)

	records, err := OpenChromSizes(path)
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.DeepEquals, []SizeRecord{{"chrX", 300}})
}

func TestOpenMapping(t *testing.T) {
	c := qt.New(t)
	path := filepath.Join(c.TempDir(), "alias.tsv")
	c.Assert(os.WriteFile(path, []byte("1\tchr1\nMT\tchrM\nbroken\n"), 0666), qt.IsNil)
	m, err := OpenMapping(path)
	c.Assert(err, qt.IsNil)
	c.Assert(m, qt.DeepEquals, map[string]string{"1": "chr1", "MT": "chrM"})
	c.Assert(MapName("MT", m), qt.Equals, "chrM")
	c.Assert(MapName("chr2", m), qt.Equals, "chr2")
}
