//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package signal

// Batch carries decoded reads from a reader goroutine to the accumulator.
// Batches are reused: Reset keeps the allocated storage.
type Batch struct {
	Reads   []Read
	LastIdx int
}

func NewBatch(size int) *Batch {
	b := Batch{}
	b.LastIdx = -1
	b.Reads = make([]Read, size)
	return &b
}

func (b *Batch) Write(r Read) {
	b.LastIdx++
	if len(b.Reads) <= b.LastIdx {
		b.Grow(2)
	}
	b.Reads[b.LastIdx] = r
}

func (b *Batch) Grow(factor int) {
	n := make([]Read, max(len(b.Reads)*factor, 1))
	copy(n, b.Reads)
	b.Reads = n
}

func (b *Batch) Len() int {
	return b.LastIdx + 1
}

// Full reports whether the next Write would grow the batch.
func (b *Batch) Full() bool {
	return b.LastIdx+1 >= len(b.Reads)
}

func (b *Batch) Reset() {
	b.LastIdx = -1
}
