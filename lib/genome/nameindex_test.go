//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package genome

import (
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestNameIndexStable(t *testing.T) {
	c := qt.New(t)
	ni := NewNameIndex(0, 0)
	seen := make(map[int]string)
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("chr%d", i)
		id, err := ni.LookupOrInsert(name)
		c.Assert(err, qt.IsNil)
		c.Assert(id, qt.Equals, i)
		_, dup := seen[id]
		c.Assert(dup, qt.IsFalse)
		seen[id] = name
	}
	for id, name := range seen {
		again, err := ni.LookupOrInsert(name)
		c.Assert(err, qt.IsNil)
		c.Assert(again, qt.Equals, id)
		c.Assert(ni.Name(id), qt.Equals, name)
	}
	c.Assert(ni.Len(), qt.Equals, 50)
}

func TestNameIndexLookup(t *testing.T) {
	c := qt.New(t)
	ni := NewNameIndex(0, 0)
	_, ok := ni.Lookup("chrX")
	c.Assert(ok, qt.IsFalse)
	c.Assert(ni.Len(), qt.Equals, 0)
	ni.LookupOrInsert("chrX")
	id, ok := ni.Lookup("chrX")
	c.Assert(ok, qt.IsTrue)
	c.Assert(id, qt.Equals, 0)
}

func TestNameIndexCapacity(t *testing.T) {
	c := qt.New(t)
	ni := NewNameIndex(2, 5)
	_, err := ni.LookupOrInsert("chr1")
	c.Assert(err, qt.IsNil)
	_, err = ni.LookupOrInsert("chr2")
	c.Assert(err, qt.IsNil)
	_, err = ni.LookupOrInsert("chr3")
	c.Assert(err, qt.ErrorIs, ErrCapacityExceeded)
	// Known names still resolve once full
	id, err := ni.LookupOrInsert("chr2")
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, 1)

	ni = NewNameIndex(0, 5)
	_, err = ni.LookupOrInsert("chrUn_long")
	c.Assert(err, qt.ErrorIs, ErrCapacityExceeded)
}
