//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package signal

import (
	"fmt"
	"strings"
)

const DefaultFragmentLength = 150

// Read is an aligned read as decoded by an external parser.
// Coordinates are 0-based, half-open.
type Read struct {
	Name         string
	Chrom        string
	Start, End   int
	Strand       int8
	Unmapped     bool
	Paired       bool
	ProperPair   bool
	MateUnmapped bool
	Read1        bool
}

// FivePrime returns the position of the read 5' end.
func (r Read) FivePrime() int {
	if r.Strand == -1 {
		return r.End - 1
	}
	return r.Start
}

// DepositMode selects which bases of a read are added to the signal.
type DepositMode int

const (
	// Fragment centered on the read 5' end
	ModeCenter DepositMode = iota
	// Read extended from its 5' end toward its 3' end
	ModeExtend
	// Aligned bases only
	ModeAll
	// 5' end only
	ModeFirst
)

func ParseDepositMode(s string) (DepositMode, error) {
	switch strings.ToLower(s) {
	case "", "center":
		return ModeCenter, nil
	case "extend", "all-extension":
		return ModeExtend, nil
	case "all":
		return ModeAll, nil
	case "first":
		return ModeFirst, nil
	}
	return ModeCenter, fmt.Errorf("unknown deposit mode %q", s)
}

// Config is the accumulation configuration. It is built once and not modified.
type Config struct {
	FragmentLength int
	Paired         bool
	InvertStrand   bool
	Mode           DepositMode
	// Memory budget for the signal arrays in bytes (0 for no limit)
	MaxMemory int64
}

func DefaultConfig() Config {
	return Config{FragmentLength: DefaultFragmentLength}
}

// Stats accounts for every read offered to an Accumulator.
type Stats struct {
	Reads        uint64 `json:"reads"`
	Fragments    uint64 `json:"fragments"`
	Forward      uint64 `json:"forward"`
	Reverse      uint64 `json:"reverse"`
	Unmapped     uint64 `json:"unmapped"`
	UnknownChrom uint64 `json:"unknown_chromosome"`
	OutOfRange   uint64 `json:"out_of_range"`
	Unpaired     uint64 `json:"unpaired"`
}

// Dropped returns the number of reads not included in the signal.
func (s Stats) Dropped() uint64 {
	return s.Unmapped + s.UnknownChrom + s.OutOfRange + s.Unpaired
}
