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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"git.sr.ht/~vejnar/SignalAbacus/lib/classify"
	"git.sr.ht/~vejnar/SignalAbacus/lib/esam"
	"git.sr.ht/~vejnar/SignalAbacus/lib/feature"
	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
	"git.sr.ht/~vejnar/SignalAbacus/lib/peaks"
	"git.sr.ht/~vejnar/SignalAbacus/lib/profile"
	"git.sr.ht/~vejnar/SignalAbacus/lib/signal"
)

func (in *inputFlags) config() (cfg signal.Config, flt esam.Filter, err error) {
	mode, err := signal.ParseDepositMode(in.mode)
	if err != nil {
		return cfg, flt, err
	}
	if in.minMapQ < 0 || in.minMapQ > 255 {
		return cfg, flt, fmt.Errorf("mapping quality %d not in [0,255]: %w", in.minMapQ, genome.ErrConfiguration)
	}
	cfg = signal.Config{
		FragmentLength: in.fragmentLength,
		Paired:         in.paired,
		InvertStrand:   in.invertStrand,
		Mode:           mode,
		MaxMemory:      in.maxMemory * 1024 * 1024,
	}
	flt = esam.Filter{MinMappingQuality: byte(in.minMapQ), KeepDuplicates: in.keepDuplicates, KeepSecondary: in.keepSecondary}
	return cfg, flt, nil
}

func (in *inputFlags) cmd() []string {
	return strings.Fields(in.SAMCmdIn)
}

func (tf *trackFlags) header() *profile.TrackHeader {
	if tf.name == "" {
		return nil
	}
	return &profile.TrackHeader{Name: tf.name, Description: tf.description, Color: tf.color}
}

func (tf *trackFlags) normalization(totalReads uint64) profile.Normalization {
	norm := profile.Normalization{SpikeIn: tf.spikeIn, Log: tf.log, Negate: tf.negate}
	if tf.rpm {
		norm.TotalReads = totalReads
	}
	return norm
}

// splitAlignments returns the alignment files of a comma separated list, or
// nil if the list is a single non-alignment file.
func splitAlignments(raw string) ([]esam.PathSAM, error) {
	var pathSAMs []esam.PathSAM
	paths := strings.Split(raw, ",")
	for _, p := range paths {
		switch strings.ToLower(filepath.Ext(p)) {
		case ".sam", ".bam":
			pathSAMs = append(pathSAMs, esam.NewPathSAM(p))
		}
	}
	if len(pathSAMs) == 0 && len(paths) == 1 {
		return nil, nil
	}
	if len(pathSAMs) != len(paths) {
		return nil, fmt.Errorf("mixed alignment and track inputs %s: %w", raw, genome.ErrConfiguration)
	}
	return pathSAMs, nil
}

// loadTrack returns the track of raw (alignments or bedGraph) and the number
// of fragments it was built from (0 for a bedGraph).
func loadTrack(ctx context.Context, raw string, in *inputFlags, strand signal.Strand, table *genome.ChromTable, report *Report, timeStart time.Time) (signal.Track, uint64, error) {
	pathSAMs, err := splitAlignments(raw)
	if err != nil {
		return nil, 0, err
	}
	if pathSAMs == nil {
		records, skipped, err := profile.OpenBedGraph(raw, table)
		if err != nil {
			return nil, 0, err
		}
		if skipped > 0 {
			log.Warnf("Skipped %d record(s) on unknown chromosome(s) in %s", skipped, raw)
		}
		track, err := profile.NewRecordTrack(table, records)
		return track, 0, err
	}
	cfg, flt, err := in.config()
	if err != nil {
		return nil, 0, err
	}
	acc, err := Accumulate(ctx, pathSAMs, in.cmd(), table, cfg, flt, *nWorker, timeStart)
	if err != nil {
		return nil, 0, err
	}
	report.AddAccumulation(raw, acc)
	return acc.Signal.View(strand), acc.Stats.Fragments, nil
}

// loadTable builds the chromosome table, from the first alignment input when
// no chromosome sizes are given.
func loadTable(in *inputFlags, raws ...string) (*genome.ChromTable, error) {
	var pathSAMs []esam.PathSAM
	for _, raw := range raws {
		p, err := splitAlignments(raw)
		if err != nil {
			return nil, err
		}
		pathSAMs = append(pathSAMs, p...)
	}
	var cmd []string
	if in != nil {
		cmd = in.cmd()
	}
	return LoadChromTable(*pathChromSizes, pathSAMs, cmd, *pathMapping, *maxChroms)
}

func writeTrack(records []profile.Record, table *genome.ChromTable, tf *trackFlags, report *Report, timeStart time.Time) error {
	if err := profile.WriteProfile(records, table, tf.pathOutput, tf.format, tf.header(), *appendOutput); err != nil {
		return err
	}
	log.Infof("%.1fmin - Wrote %d record(s) to %s", time.Since(timeStart).Minutes(), len(records), tf.pathOutput)
	report.AddOutput(tf.pathOutput)
	return nil
}

func runProfile(ctx context.Context, in *inputFlags, tf *trackFlags, rawSAM string, report *Report, timeStart time.Time) error {
	pathSAMs, err := splitAlignments(rawSAM)
	if err != nil {
		return err
	}
	if pathSAMs == nil {
		return fmt.Errorf("no SAM/BAM input in %s: %w", rawSAM, genome.ErrConfiguration)
	}
	strand, err := signal.ParseStrand(tf.strand)
	if err != nil {
		return err
	}
	table, err := loadTable(in, rawSAM)
	if err != nil {
		return err
	}
	track, total, err := loadTrack(ctx, rawSAM, in, strand, table, report, timeStart)
	if err != nil {
		return err
	}
	records, err := profile.Compact(track, tf.window, tf.normalization(total))
	if err != nil {
		return err
	}
	return writeTrack(records, table, tf, report, timeStart)
}

func runCombine(ctx context.Context, in *inputFlags, tf *trackFlags, rawA, rawB string, negateB bool, report *Report, timeStart time.Time) error {
	strand, err := signal.ParseStrand(tf.strand)
	if err != nil {
		return err
	}
	table, err := loadTable(in, rawA, rawB)
	if err != nil {
		return err
	}
	a, totalA, err := loadTrack(ctx, rawA, in, strand, table, report, timeStart)
	if err != nil {
		return err
	}
	b, totalB, err := loadTrack(ctx, rawB, in, strand, table, report, timeStart)
	if err != nil {
		return err
	}
	normB := tf.normalization(totalB)
	if negateB {
		normB.Negate = !normB.Negate
	}
	records, err := profile.Combine(a, b, tf.window, tf.normalization(totalA), normB)
	if err != nil {
		return err
	}
	return writeTrack(records, table, tf, report, timeStart)
}

func runRebin(tf *trackFlags, pathBedGraph string, report *Report) error {
	if pathSAMs, err := splitAlignments(pathBedGraph); err != nil || pathSAMs != nil {
		return fmt.Errorf("%s is not a bedGraph: %w", pathBedGraph, genome.ErrConfiguration)
	}
	table, err := loadTable(nil)
	if err != nil {
		return err
	}
	track, _, err := loadTrack(context.Background(), pathBedGraph, nil, signal.StrandBoth, table, report, time.Now())
	if err != nil {
		return err
	}
	records, err := profile.Compact(track, tf.window, tf.normalization(0))
	if err != nil {
		return err
	}
	return writeTrack(records, table, tf, report, time.Now())
}

func runPeaks(ctx context.Context, in *inputFlags, rawTrack, rawStrand string, cfg peaks.Config, bed bool, pathOutput string, report *Report, timeStart time.Time) error {
	strand, err := signal.ParseStrand(rawStrand)
	if err != nil {
		return err
	}
	table, err := loadTable(in, rawTrack)
	if err != nil {
		return err
	}
	track, _, err := loadTrack(ctx, rawTrack, in, strand, table, report, timeStart)
	if err != nil {
		return err
	}
	found, err := peaks.FindPeaks(track, cfg)
	if err != nil {
		return err
	}
	log.Infof("%.1fmin - Found %d peak(s)", time.Since(timeStart).Minutes(), len(found))
	report.SetCount("peaks", len(found))
	return writeOutput(pathOutput, report, func(w io.Writer) error {
		return feature.WritePeaks(w, found, table, bed)
	})
}

func loadAnnotation(af *annotationFlags) (table *genome.ChromTable, ps []feature.Peak, transcripts []feature.Transcript, err error) {
	if table, err = loadTable(nil); err != nil {
		return
	}
	var skipped int
	if ps, skipped, err = feature.OpenPeaks(af.pathPeaks, table, af.bed); err != nil {
		return
	}
	if skipped > 0 {
		log.Warnf("Skipped %d peak(s) on unknown chromosome(s)", skipped)
	}
	format := af.transcriptFormat
	if format == "" {
		format = "refgene"
		if ext := strings.ToLower(strings.TrimSuffix(af.pathTranscripts, ".gz")); strings.HasSuffix(ext, ".gff") || strings.HasSuffix(ext, ".gff3") {
			format = "gff"
		}
	}
	if format == "gff" {
		transcripts, skipped, err = feature.OpenGFF(af.pathTranscripts, table)
	} else {
		transcripts, skipped, err = feature.OpenRefGene(af.pathTranscripts, table)
	}
	if err != nil {
		return
	}
	if skipped > 0 {
		log.Warnf("Skipped %d transcript(s) on unknown chromosome(s)", skipped)
	}
	log.Infof("Loaded %d peak(s) and %d transcript(s)", len(ps), len(transcripts))
	return
}

func runDistribution(af *annotationFlags, cfg classify.Config, pathOutput, pathJSON string, report *Report) error {
	table, ps, transcripts, err := loadAnnotation(af)
	if err != nil {
		return err
	}
	cl, err := classify.NewClassifier(transcripts, table.Len(), cfg)
	if err != nil {
		return err
	}
	assignments := cl.Classify(ps)
	d := classify.Summarize(assignments)
	report.Distribution = &d
	for _, c := range []classify.Coarse{classify.Promoter, classify.Intragenic, classify.Intergenic} {
		log.Infof("%s: %d (%.1f%%)", c, d.Coarse[c.String()], d.Percent(c))
	}
	if err := writeOutput(pathOutput, report, func(w io.Writer) error {
		return classify.WriteAssignments(w, assignments, table, transcripts, af.bed)
	}); err != nil {
		return err
	}
	if pathJSON != "" {
		return writeOutput(pathJSON, report, func(w io.Writer) error {
			return writeJSON(w, d)
		})
	}
	return nil
}

func runMatchGenes(af *annotationFlags, cfg classify.Config, pathOutput string, report *Report) error {
	table, ps, transcripts, err := loadAnnotation(af)
	if err != nil {
		return err
	}
	cl, err := classify.NewClassifier(transcripts, table.Len(), cfg)
	if err != nil {
		return err
	}
	matches := cl.MatchGenes(ps)
	report.SetCount("gene_matches", len(matches))
	return writeOutput(pathOutput, report, func(w io.Writer) error {
		return classify.WriteGeneMatches(w, matches, ps, transcripts, table, af.bed)
	})
}

func runMatchPeaks(pathA, pathB string, bed bool, prefix string, report *Report) error {
	table, err := loadTable(nil)
	if err != nil {
		return err
	}
	var sets [2][]feature.Peak
	for i, p := range []string{pathA, pathB} {
		var skipped int
		if sets[i], skipped, err = feature.OpenPeaks(p, table, bed); err != nil {
			return err
		}
		if skipped > 0 {
			log.Warnf("Skipped %d peak(s) on unknown chromosome(s) in %s", skipped, p)
		}
		feature.SortPeaks(sets[i])
	}
	res := peaks.MatchSets(sets[0], sets[1])
	report.SetCount("common", len(res.Both))
	report.SetCount("a_only", len(res.AOnly))
	report.SetCount("b_only", len(res.BOnly))
	log.Infof("%d common, %d A only, %d B only", len(res.Both), len(res.AOnly), len(res.BOnly))
	if err := writeOutput(prefix+"common.txt", report, func(w io.Writer) error {
		return peaks.WriteMatches(w, res.Both, table, bed)
	}); err != nil {
		return err
	}
	if err := writeOutput(prefix+"a_only.txt", report, func(w io.Writer) error {
		return feature.WritePeaks(w, res.AOnly, table, bed)
	}); err != nil {
		return err
	}
	return writeOutput(prefix+"b_only.txt", report, func(w io.Writer) error {
		return feature.WritePeaks(w, res.BOnly, table, bed)
	})
}

// writeOutput calls write on path (stdout with -). A ".gz" or ".lz4" suffix
// compresses the output.
func writeOutput(path string, report *Report, write func(io.Writer) error) (err error) {
	if path == "-" {
		return write(os.Stdout)
	}
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if *appendOutput {
		flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flag, 0664)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	var zip string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zip = "gz"
	case ".lz4":
		zip = "lz4"
	}
	w, err := profile.NewCompressWriter(f, zip)
	if err != nil {
		return err
	}
	if err = write(w); err != nil {
		w.Close()
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	report.AddOutput(path)
	return nil
}
