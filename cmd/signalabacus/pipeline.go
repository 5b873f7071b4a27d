//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/fatih/set.v0"

	"git.sr.ht/~vejnar/SignalAbacus/lib/esam"
	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
	"git.sr.ht/~vejnar/SignalAbacus/lib/signal"
)

const (
	cacheLength  = 4
	batchLength  = 1000
	progressStep = 1000000
)

// AddCommas adds commas after every 3 characters.
func AddCommas(s string) string {
	if len(s) <= 3 {
		return s
	} else {
		return AddCommas(s[0:len(s)-3]) + "," + s[len(s)-3:]
	}
}

func Max(x, y int) int {
	if x > y {
		return x
	}
	return y
}

// Accumulation is the result of reading all alignment files.
type Accumulation struct {
	Signal *signal.Signal
	Stats  signal.Stats
	Reads  esam.ReadStats
	// Unknown chromosome names met in alignments
	Unknown []string
}

// Accumulate deposits the alignments of every file of pathSAMs into one
// signal. Each file is decoded by one goroutine while the calling goroutine
// owns the accumulator.
func Accumulate(ctx context.Context, pathSAMs []esam.PathSAM, SAMCmdIn []string, table *genome.ChromTable, cfg signal.Config, flt esam.Filter, nWorker int, timeStart time.Time) (acc Accumulation, err error) {
	accumulator, err := signal.NewAccumulator(table, cfg)
	if err != nil {
		return acc, err
	}
	// Warned once per name
	unknowns := set.New(set.ThreadSafe)
	onSkip := func(r signal.Read, err error) {
		if errors.Is(err, genome.ErrUnknownChromosome) {
			if !unknowns.Has(r.Chrom) {
				unknowns.Add(r.Chrom)
				log.Warnf("Unknown chromosome %s (read %s)", r.Chrom, r.Name)
			}
		} else {
			log.Debugf("Skipped: %v", err)
		}
	}

	for _, pathSAM := range pathSAMs {
		log.Infof("%.1fmin - Reading %s", time.Since(timeStart).Minutes(), pathSAM.Path)
		var readStats esam.ReadStats
		if readStats, err = accumulateFile(ctx, pathSAM, SAMCmdIn, accumulator, flt, nWorker, onSkip, timeStart); err != nil {
			return acc, fmt.Errorf("%s: %w", pathSAM.Path, err)
		}
		acc.Reads.Alignments += readStats.Alignments
		acc.Reads.Filtered += readStats.Filtered
	}

	acc.Signal, acc.Stats = accumulator.Finalize()
	acc.Unknown = set.StringSlice(unknowns)
	sort.Strings(acc.Unknown)
	log.Infof("%.1fmin - %s reads, %s fragments, %s dropped", time.Since(timeStart).Minutes(), AddCommas(strconv.FormatUint(acc.Stats.Reads, 10)), AddCommas(strconv.FormatUint(acc.Stats.Fragments, 10)), AddCommas(strconv.FormatUint(acc.Stats.Dropped(), 10)))
	return acc, nil
}

func accumulateFile(ctx context.Context, pathSAM esam.PathSAM, SAMCmdIn []string, accumulator *signal.Accumulator, flt esam.Filter, nWorker int, onSkip func(signal.Read, error), timeStart time.Time) (readStats esam.ReadStats, err error) {
	f, pp, rr, err := esam.OpenSAM(pathSAM, SAMCmdIn, Max(1, nWorker))
	if f != nil {
		defer f.Close()
	}
	if pp != nil {
		defer pp.Close()
	}
	if err != nil {
		return readStats, err
	}

	// Pool of batches
	pool := make(chan *signal.Batch, cacheLength)
	for i := 0; i < cacheLength; i++ {
		pool <- signal.NewBatch(batchLength)
	}
	batches := make(chan *signal.Batch, cacheLength)

	g, gctx := errgroup.WithContext(ctx)
	// Reader
	g.Go(func() error {
		defer close(batches)
		return esam.ReadBatches(gctx, rr, flt, pool, batches, &readStats)
	})
	// Accumulator
	g.Go(func() error {
		timeLast := time.Now()
		nextProgress := accumulator.Stats().Reads + progressStep
		for b := range batches {
			if err := accumulator.DepositBatch(b, onSkip); err != nil {
				return err
			}
			pool <- b
			if n := accumulator.Stats().Reads; n >= nextProgress {
				log.Debugf("%.1fmin - %s align. - %.2f Ma/hr", time.Since(timeStart).Minutes(), AddCommas(strconv.FormatUint(n, 10)), float64(progressStep)/time.Since(timeLast).Hours()/1e6)
				timeLast = time.Now()
				nextProgress = n + progressStep
			}
		}
		return nil
	})
	err = g.Wait()
	return readStats, err
}

// LoadChromTable reads chromosome sizes from pathSizes or, when empty, from
// the header of the first alignment file. Aliases are read from pathMapping
// when not empty.
func LoadChromTable(pathSizes string, pathSAMs []esam.PathSAM, SAMCmdIn []string, pathMapping string, maxChroms int) (*genome.ChromTable, error) {
	var records []genome.SizeRecord
	if pathSizes != "" {
		var err error
		if records, err = genome.OpenChromSizes(pathSizes); err != nil {
			return nil, err
		}
	} else if len(pathSAMs) > 0 {
		h, err := esam.GetSAMHeader(pathSAMs[0], SAMCmdIn)
		if err != nil {
			return nil, err
		}
		if h == nil {
			return nil, fmt.Errorf("no header in %s: %w", pathSAMs[0].Path, genome.ErrConfiguration)
		}
		records = esam.HeaderSizes(h)
	} else {
		return nil, fmt.Errorf("chromosome sizes required: %w", genome.ErrConfiguration)
	}
	table, err := genome.BuildChromTable(records, maxChroms)
	if err != nil {
		return nil, err
	}
	if table.Skipped > 0 {
		log.Warnf("Skipped %d invalid or duplicated chromosome size(s)", table.Skipped)
	}
	if pathMapping != "" {
		if table.Aliases, err = genome.OpenMapping(pathMapping); err != nil {
			return nil, err
		}
	}
	return table, nil
}
