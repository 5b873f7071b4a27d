//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package genome

import "fmt"

const (
	DefaultMaxNames      = 100000
	DefaultMaxNameLength = 1024
)

// NameIndex assigns stable integer IDs to names (chromosomes, genes) in
// first-seen order. IDs are never reused or removed.
type NameIndex struct {
	ids           map[string]int
	names         []string
	maxNames      int
	maxNameLength int
}

// NewNameIndex returns an empty index. A zero maxNames or maxNameLength
// disables the corresponding limit.
func NewNameIndex(maxNames, maxNameLength int) *NameIndex {
	return &NameIndex{ids: make(map[string]int), maxNames: maxNames, maxNameLength: maxNameLength}
}

// LookupOrInsert returns the ID of name, registering it if unseen.
func (ni *NameIndex) LookupOrInsert(name string) (int, error) {
	if id, ok := ni.ids[name]; ok {
		return id, nil
	}
	if ni.maxNameLength > 0 && len(name) > ni.maxNameLength {
		return -1, fmt.Errorf("name %.20q... longer than %d: %w", name, ni.maxNameLength, ErrCapacityExceeded)
	}
	if ni.maxNames > 0 && len(ni.names) >= ni.maxNames {
		return -1, fmt.Errorf("more than %d names: %w", ni.maxNames, ErrCapacityExceeded)
	}
	id := len(ni.names)
	ni.ids[name] = id
	ni.names = append(ni.names, name)
	return id, nil
}

// Lookup returns the ID of name without inserting it.
func (ni *NameIndex) Lookup(name string) (int, bool) {
	id, ok := ni.ids[name]
	return id, ok
}

// Name returns the name registered under id.
func (ni *NameIndex) Name(id int) string {
	return ni.names[id]
}

func (ni *NameIndex) Len() int {
	return len(ni.names)
}
