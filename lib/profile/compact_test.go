//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package profile

import (
	"math"
	"testing"

	qt "github.com/frankban/quicktest"

	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
	"git.sr.ht/~vejnar/SignalAbacus/lib/signal"
)

// baseTrack is a Track over per-base values.
type baseTrack [][]float64

func (t baseTrack) NumChroms() int            { return len(t) }
func (t baseTrack) ChromLength(chrID int) int { return len(t[chrID]) }
func (t baseTrack) WindowSum(chrID, start, end int) (sum float64) {
	for _, v := range t[chrID][start:end] {
		sum += v
	}
	return
}

func fill(length int, runs ...[3]int) []float64 {
	values := make([]float64, length)
	for _, r := range runs {
		for i := r[0]; i < r[1]; i++ {
			values[i] = float64(r[2])
		}
	}
	return values
}

func TestCompactExample(t *testing.T) {
	c := qt.New(t)
	track := baseTrack{fill(1000, [3]int{0, 300, 5})}
	records, err := Compact(track, 100, Normalization{})
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.DeepEquals, []Record{{ChromID: 0, Start: 0, End: 300, Value: 5}})
}

func TestCompactGaps(t *testing.T) {
	c := qt.New(t)
	track := baseTrack{
		fill(1050, [3]int{200, 400, 2}, [3]int{600, 700, 3}, [3]int{700, 800, 1}),
		fill(500),
		fill(250, [3]int{200, 250, 4}),
	}
	records, err := Compact(track, 100, Normalization{})
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.DeepEquals, []Record{
		{ChromID: 0, Start: 200, End: 400, Value: 2},
		{ChromID: 0, Start: 400, End: 600, Value: 0},
		{ChromID: 0, Start: 600, End: 700, Value: 3},
		{ChromID: 0, Start: 700, End: 800, Value: 1},
		{ChromID: 2, Start: 200, End: 250, Value: 4},
	})
}

func TestCompactPreservesSum(t *testing.T) {
	c := qt.New(t)
	values := make([]float64, 1234)
	for i := range values {
		values[i] = float64((i * 7) % 13)
	}
	track := baseTrack{values}
	for _, ws := range []int{1, 10, 100, 333} {
		records, err := Compact(track, ws, Normalization{})
		c.Assert(err, qt.IsNil)
		var got float64
		for _, r := range records {
			got += r.Value * float64(r.End-r.Start)
		}
		want := track.WindowSum(0, 0, len(values))
		// Rounding error is at most 0.005 per base
		c.Assert(math.Abs(got-want) <= 0.005*float64(len(values)), qt.IsTrue, qt.Commentf("window %d: %f vs %f", ws, got, want))
	}
}

func TestCompactIdempotent(t *testing.T) {
	c := qt.New(t)
	table, err := genome.BuildChromTable([]genome.SizeRecord{{Name: "chr1", Length: 1050}, {Name: "chr2", Length: 300}}, 0)
	c.Assert(err, qt.IsNil)
	values := make([]float64, 1050)
	for i := range values {
		values[i] = float64(i%17) / 3
	}
	track := baseTrack{values, fill(300, [3]int{100, 150, 1})}
	first, err := Compact(track, 100, Normalization{TotalReads: 3000000})
	c.Assert(err, qt.IsNil)

	rt, err := NewRecordTrack(table, first)
	c.Assert(err, qt.IsNil)
	second, err := Compact(rt, 100, Normalization{})
	c.Assert(err, qt.IsNil)
	c.Assert(second, qt.DeepEquals, first)
}

func TestCompactConfiguration(t *testing.T) {
	c := qt.New(t)
	_, err := Compact(baseTrack{fill(10)}, 0, Normalization{})
	c.Assert(err, qt.ErrorIs, genome.ErrConfiguration)
}

func TestNormalization(t *testing.T) {
	c := qt.New(t)
	c.Assert(Normalization{}.Apply(3), qt.Equals, 3.)
	c.Assert(Normalization{TotalReads: 2000000}.Apply(3), qt.Equals, 1.5)
	c.Assert(Normalization{TotalReads: 2000000, SpikeIn: 4}.Apply(3), qt.Equals, 6.)
	c.Assert(math.Abs(Normalization{Log: true}.Apply(9.9)-1) < 1e-9, qt.IsTrue)
	c.Assert(Normalization{Negate: true}.Apply(2), qt.Equals, -2.)
	c.Assert(Normalization{Log: true, Negate: true}.Apply(0), qt.Equals, 0.)
	c.Assert(Round2(1.006), qt.Equals, 1.01)
	c.Assert(math.Signbit(Round2(-0.001)), qt.IsFalse)
}

func TestCombine(t *testing.T) {
	c := qt.New(t)
	a := baseTrack{fill(300, [3]int{0, 100, 2})}
	b := baseTrack{fill(300, [3]int{0, 200, 4})}
	records, err := Combine(a, b, 100, Normalization{TotalReads: 1000000}, Normalization{TotalReads: 2000000})
	c.Assert(err, qt.IsNil)
	c.Assert(records, qt.DeepEquals, []Record{
		{ChromID: 0, Start: 0, End: 100, Value: 4},
		{ChromID: 0, Start: 100, End: 200, Value: 2},
	})

	_, err = Combine(a, baseTrack{fill(200)}, 100, Normalization{}, Normalization{})
	c.Assert(err, qt.ErrorIs, genome.ErrConfiguration)
}

func TestCompactSignal(t *testing.T) {
	c := qt.New(t)
	table, err := genome.BuildChromTable([]genome.SizeRecord{{Name: "chr1", Length: 1000}}, 0)
	c.Assert(err, qt.IsNil)
	acc, err := signal.NewAccumulator(table, signal.Config{FragmentLength: 100})
	c.Assert(err, qt.IsNil)
	for i := 0; i < 4; i++ {
		c.Assert(acc.DepositRead(signal.Read{Chrom: "chr1", Start: 250, End: 300, Strand: 1}), qt.IsNil)
	}
	sig, _ := acc.Finalize()
	records, err := Compact(sig.View(signal.StrandBoth), 100, Normalization{})
	c.Assert(err, qt.IsNil)
	// Fragments cover [200, 300)
	c.Assert(records, qt.DeepEquals, []Record{{ChromID: 0, Start: 200, End: 300, Value: 4}})
}

func TestRecordTrack(t *testing.T) {
	c := qt.New(t)
	table, err := genome.BuildChromTable([]genome.SizeRecord{{Name: "chr1", Length: 1000}}, 0)
	c.Assert(err, qt.IsNil)
	rt, err := NewRecordTrack(table, []Record{{0, 100, 200, 1.5}, {0, 300, 400, 2}})
	c.Assert(err, qt.IsNil)
	c.Assert(rt.WindowSum(0, 150, 350), qt.Equals, 175.)
	c.Assert(rt.WindowSum(0, 0, 100), qt.Equals, 0.)

	_, err = NewRecordTrack(table, []Record{{0, 300, 400, 2}, {0, 100, 200, 1.5}})
	c.Assert(err, qt.Not(qt.IsNil))
	_, err = NewRecordTrack(table, []Record{{3, 300, 400, 2}})
	c.Assert(err, qt.ErrorIs, genome.ErrUnknownChromosome)
}
