//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package genome

import "fmt"

// SizeRecord is one (name, length) pair of a chromosome-size input.
type SizeRecord struct {
	Name   string
	Length int
}

// ChromTable stores chromosome lengths indexed by NameIndex ID.
type ChromTable struct {
	Index   *NameIndex
	Lengths []int
	Aliases map[string]string
	// Records ignored while building (non-positive length or duplicate name)
	Skipped int
}

// BuildChromTable registers every size record in input order. Invalid and
// duplicated records are skipped and counted. Exceeding maxChroms is fatal.
func BuildChromTable(records []SizeRecord, maxChroms int) (*ChromTable, error) {
	ct := &ChromTable{Index: NewNameIndex(maxChroms, DefaultMaxNameLength)}
	for _, r := range records {
		if r.Length <= 0 || r.Name == "" {
			ct.Skipped++
			continue
		}
		if _, ok := ct.Index.Lookup(r.Name); ok {
			ct.Skipped++
			continue
		}
		id, err := ct.Index.LookupOrInsert(r.Name)
		if err != nil {
			return ct, err
		}
		if id != len(ct.Lengths) {
			return ct, fmt.Errorf("non-contiguous chromosome ID %d for %s", id, r.Name)
		}
		ct.Lengths = append(ct.Lengths, r.Length)
	}
	if len(ct.Lengths) == 0 {
		return ct, fmt.Errorf("no valid chromosome size: %w", ErrConfiguration)
	}
	return ct, nil
}

// Resolve returns the ID of a chromosome name, after alias mapping.
func (ct *ChromTable) Resolve(name string) (int, error) {
	if len(ct.Aliases) > 0 {
		name = MapName(name, ct.Aliases)
	}
	if id, ok := ct.Index.Lookup(name); ok {
		return id, nil
	}
	return -1, fmt.Errorf("%s: %w", name, ErrUnknownChromosome)
}

func (ct *ChromTable) Len() int {
	return len(ct.Lengths)
}

func (ct *ChromTable) Length(id int) int {
	return ct.Lengths[id]
}

func (ct *ChromTable) Name(id int) string {
	return ct.Index.Name(id)
}

// TotalLength returns the genome size.
func (ct *ChromTable) TotalLength() (length int) {
	for _, l := range ct.Lengths {
		length += l
	}
	return
}
