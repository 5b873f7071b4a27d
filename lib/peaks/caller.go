//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package peaks

import (
	"fmt"

	"git.sr.ht/~vejnar/SignalAbacus/lib/feature"
	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
	"git.sr.ht/~vejnar/SignalAbacus/lib/signal"
)

const (
	DefaultThreshold  = 1.5
	DefaultWindowSize = 100
)

type Config struct {
	// Multiplier of the background level
	Threshold  float64
	WindowSize int
	// Constant background level, used when > 0 instead of the chromosome mean
	Background float64
	// Score peaks with the sum of their window values instead of the maximum
	Sum bool
	// Minimum peak length in bp
	MinLength int
}

func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold, WindowSize: DefaultWindowSize}
}

// FindPeaks merges contiguous windows whose per-base mean is above
// Threshold times the background into peaks. Peaks are returned in
// chromosome ID then coordinate order.
func FindPeaks(track signal.Track, cfg Config) (peaks []feature.Peak, err error) {
	if cfg.Threshold <= 0 {
		return nil, fmt.Errorf("threshold %g: %w", cfg.Threshold, genome.ErrConfiguration)
	}
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("window size %d: %w", cfg.WindowSize, genome.ErrConfiguration)
	}
	for chrID := 0; chrID < track.NumChroms(); chrID++ {
		length := track.ChromLength(chrID)
		if length <= 0 {
			continue
		}
		background := cfg.Background
		if background <= 0 {
			background = track.WindowSum(chrID, 0, length) / float64(length)
		}
		cutoff := cfg.Threshold * background

		var current feature.Peak
		var open bool
		closePeak := func() {
			if open && current.Length() >= cfg.MinLength {
				peaks = append(peaks, current)
			}
			open = false
		}
		for start := 0; start < length; start += cfg.WindowSize {
			end := min(start+cfg.WindowSize, length)
			v := track.WindowSum(chrID, start, end) / float64(end-start)
			if v <= 0 || v < cutoff {
				closePeak()
				continue
			}
			if !open {
				current = feature.Peak{Interval: feature.Interval{ChromID: chrID, Start: start, End: end, Score: v}}
				open = true
				continue
			}
			current.End = end
			if cfg.Sum {
				current.Score += v
			} else if v > current.Score {
				current.Score = v
			}
		}
		closePeak()
	}
	return
}

func min(a, b int) int {
	if a > b {
		return b
	}
	return a
}
