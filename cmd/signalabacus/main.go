//
// Copyright © 2015 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package main

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/alecthomas/kingpin"
	perf "github.com/pkg/profile"
	log "github.com/sirupsen/logrus"

	"git.sr.ht/~vejnar/SignalAbacus/lib/classify"
	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
	"git.sr.ht/~vejnar/SignalAbacus/lib/peaks"
	"git.sr.ht/~vejnar/SignalAbacus/lib/profile"
	"git.sr.ht/~vejnar/SignalAbacus/lib/signal"
)

var version = "DEV"

var (
	app = kingpin.New("signalabacus", "Signal tracks, peaks and annotation of aligned reads.")
	// Arguments: General
	verbose        = app.Flag("verbose", "Verbose").Bool()
	verboseLevel   = app.Flag("verbose_level", "Verbose level (1 info, 2 debug)").Default("1").Int()
	nWorker        = app.Flag("num_worker", "Number of worker(s)").Default("1").Int()
	pathReport     = app.Flag("path_report", "Write report to path (stdout with -)").String()
	cpuProfile     = app.Flag("cpu_profile", "Write CPU profile to directory").String()
	appendOutput   = app.Flag("append", "Append to output (default create)").Bool()
	pathChromSizes = app.Flag("path_chrom_sizes", "Path to chromosome sizes (default from alignment header)").String()
	pathMapping    = app.Flag("path_mapping", "Path to chromosome name mapping (alias<TAB>name)").String()
	maxChroms      = app.Flag("max_chroms", "Maximum number of chromosomes").Default(strconv.Itoa(genome.DefaultMaxNames)).Int()

	profileCmd     = app.Command("profile", "Build a signal track from alignments")
	profileInput   = newInputFlags(profileCmd)
	profileTrack   = newTrackFlags(profileCmd)
	profilePathSAM = profileCmd.Flag("path_sam", "Path to SAM/BAM file(s) (comma separated)").Required().String()

	combineCmd     = app.Command("combine", "Combine two samples into one track")
	combineInput   = newInputFlags(combineCmd)
	combineTrack   = newTrackFlags(combineCmd)
	combinePathA   = combineCmd.Flag("path_a", "First sample: SAM/BAM file(s) (comma separated) or bedGraph").Required().String()
	combinePathB   = combineCmd.Flag("path_b", "Second sample: SAM/BAM file(s) (comma separated) or bedGraph").Required().String()
	combineNegateB = combineCmd.Flag("negate_b", "Invert the sign of the second sample").Bool()

	rebinCmd          = app.Command("rebin", "Compact a bedGraph track with a new window size")
	rebinTrack        = newTrackFlags(rebinCmd)
	rebinPathBedGraph = rebinCmd.Flag("path_bedgraph", "Path to bedGraph").Required().String()

	peaksCmd        = app.Command("peaks", "Call peaks from a signal track")
	peaksInput      = newInputFlags(peaksCmd)
	peaksPathTrack  = peaksCmd.Flag("path_track", "SAM/BAM file(s) (comma separated) or bedGraph").Required().String()
	peaksStrand     = peaksCmd.Flag("strand", "Strand (both, +, -)").Default("both").String()
	peaksThreshold  = peaksCmd.Flag("threshold", "Peak threshold (times the background)").Default(strconv.FormatFloat(peaks.DefaultThreshold, 'f', -1, 64)).Float64()
	peaksWindow     = peaksCmd.Flag("window", "Window size").Default(strconv.Itoa(peaks.DefaultWindowSize)).Int()
	peaksBackground = peaksCmd.Flag("background", "Constant background (default chromosome mean)").Float64()
	peaksSum        = peaksCmd.Flag("sum", "Score peaks with the sum of window values").Bool()
	peaksMinLength  = peaksCmd.Flag("min_length", "Minimum peak length").Int()
	peaksBED        = peaksCmd.Flag("bed", "Write BED coordinates (default 1-based)").Bool()
	peaksPathOutput = peaksCmd.Flag("path_output", "Path to output peaks (stdout with -)").Default("-").String()

	distributionCmd        = app.Command("distribution", "Classify peaks against transcripts")
	distributionAnnot      = newAnnotationFlags(distributionCmd)
	distributionProximal   = distributionCmd.Flag("proximal", "Maximum TSS distance of proximal peaks").Default(strconv.Itoa(classify.DefaultProximal)).Int()
	distributionPathOutput = distributionCmd.Flag("path_output", "Path to output assignments (stdout with -)").Default("-").String()
	distributionPathJSON   = distributionCmd.Flag("path_distribution", "Path to output distribution (JSON)").String()

	matchGenesCmd        = app.Command("matchgenes", "Match peaks to transcripts")
	matchGenesAnnot      = newAnnotationFlags(matchGenesCmd)
	matchGenesTSSRange   = matchGenesCmd.Flag("tss_range", "Match around TSS only").Int()
	matchGenesTESRange   = matchGenesCmd.Flag("tes_range", "Match around TES only").Int()
	matchGenesPathOutput = matchGenesCmd.Flag("path_output", "Path to output matches (stdout with -)").Default("-").String()

	matchPeaksCmd          = app.Command("matchpeaks", "Match two peak sets")
	matchPeaksPathA        = matchPeaksCmd.Flag("path_peaks_a", "Path to first peak set").Required().String()
	matchPeaksPathB        = matchPeaksCmd.Flag("path_peaks_b", "Path to second peak set").Required().String()
	matchPeaksBED          = matchPeaksCmd.Flag("bed", "BED coordinates (default 1-based)").Bool()
	matchPeaksOutputPrefix = matchPeaksCmd.Flag("output_prefix", "Prefix of output files").Required().String()
)

func main() {
	app.Version(version)
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Logging
	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)
	if *verbose {
		if *verboseLevel > 1 {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.InfoLevel)
		}
	}
	timeStart := time.Now()

	if err := run(command, timeStart); err != nil {
		log.Fatal(err)
	}
	log.Infof("%.1fmin - Done", time.Since(timeStart).Minutes())
}

// run executes command and writes the report. The CPU profile is complete
// when run returns.
func run(command string, timeStart time.Time) error {
	if *cpuProfile != "" {
		defer perf.Start(perf.CPUProfile, perf.ProfilePath(*cpuProfile), perf.Quiet).Stop()
	}
	runtime.GOMAXPROCS(Max(1, *nWorker))

	ctx := context.Background()
	report := NewReport(command, version)
	var err error
	switch command {
	case profileCmd.FullCommand():
		err = runProfile(ctx, profileInput, profileTrack, *profilePathSAM, report, timeStart)
	case combineCmd.FullCommand():
		err = runCombine(ctx, combineInput, combineTrack, *combinePathA, *combinePathB, *combineNegateB, report, timeStart)
	case rebinCmd.FullCommand():
		err = runRebin(rebinTrack, *rebinPathBedGraph, report)
	case peaksCmd.FullCommand():
		cfg := peaks.Config{Threshold: *peaksThreshold, WindowSize: *peaksWindow, Background: *peaksBackground, Sum: *peaksSum, MinLength: *peaksMinLength}
		err = runPeaks(ctx, peaksInput, *peaksPathTrack, *peaksStrand, cfg, *peaksBED, *peaksPathOutput, report, timeStart)
	case distributionCmd.FullCommand():
		cfg := classify.Config{Upstream: distributionAnnot.upstream, Downstream: distributionAnnot.downstream, Proximal: *distributionProximal}
		err = runDistribution(distributionAnnot, cfg, *distributionPathOutput, *distributionPathJSON, report)
	case matchGenesCmd.FullCommand():
		cfg := classify.Config{Upstream: matchGenesAnnot.upstream, Downstream: matchGenesAnnot.downstream, TSSRange: *matchGenesTSSRange, TESRange: *matchGenesTESRange}
		err = runMatchGenes(matchGenesAnnot, cfg, *matchGenesPathOutput, report)
	case matchPeaksCmd.FullCommand():
		err = runMatchPeaks(*matchPeaksPathA, *matchPeaksPathB, *matchPeaksBED, *matchPeaksOutputPrefix, report)
	}
	if err != nil {
		return err
	}

	// Report
	if *pathReport != "" {
		report.Elapsed = time.Since(timeStart).Minutes()
		return WriteReport(*pathReport, report)
	}
	return nil
}

// inputFlags configure the accumulation of alignments.
type inputFlags struct {
	SAMCmdIn       string
	fragmentLength int
	paired         bool
	invertStrand   bool
	mode           string
	minMapQ        int
	keepDuplicates bool
	keepSecondary  bool
	maxMemory      int64
}

func newInputFlags(cmd *kingpin.CmdClause) *inputFlags {
	in := &inputFlags{}
	cmd.Flag("sam_cmd_in", "Command to read SAM input (e.g. \"samtools view -h\")").StringVar(&in.SAMCmdIn)
	cmd.Flag("fragment_length", "Fragment length").Default(strconv.Itoa(signal.DefaultFragmentLength)).IntVar(&in.fragmentLength)
	cmd.Flag("paired", "Paired-end reads").BoolVar(&in.paired)
	cmd.Flag("invert_strand", "Invert read strand").BoolVar(&in.invertStrand)
	cmd.Flag("mode", "Deposit mode (center, extend, all, first)").Default("center").EnumVar(&in.mode, "center", "extend", "all", "first")
	cmd.Flag("min_mapping_quality", "Minimum mapping quality").Default("0").IntVar(&in.minMapQ)
	cmd.Flag("keep_duplicates", "Keep duplicate alignments").BoolVar(&in.keepDuplicates)
	cmd.Flag("keep_secondary", "Keep secondary alignments").BoolVar(&in.keepSecondary)
	cmd.Flag("max_memory", "Memory limit of signal arrays in MB (0 no limit)").Default("0").Int64Var(&in.maxMemory)
	return in
}

// trackFlags configure track compaction and output.
type trackFlags struct {
	window      int
	strand      string
	rpm         bool
	spikeIn     float64
	log         bool
	negate      bool
	format      string
	name        string
	description string
	color       string
	pathOutput  string
}

func newTrackFlags(cmd *kingpin.CmdClause) *trackFlags {
	tf := &trackFlags{}
	cmd.Flag("window", "Window size").Default(strconv.Itoa(profile.DefaultWindowSize)).IntVar(&tf.window)
	cmd.Flag("strand", "Strand (both, +, -)").Default("both").StringVar(&tf.strand)
	cmd.Flag("rpm", "Normalize to reads per million").BoolVar(&tf.rpm)
	cmd.Flag("spike_in", "Multiplicative spike-in factor").Float64Var(&tf.spikeIn)
	cmd.Flag("log", "Log10 transformation").BoolVar(&tf.log)
	cmd.Flag("negate", "Invert the sign of values").BoolVar(&tf.negate)
	cmd.Flag("format", "Output format (bedgraph, binary, with +gz, +lz4 or +lz4hc)").Default("bedgraph").StringVar(&tf.format)
	cmd.Flag("name", "Track name (bedGraph header)").StringVar(&tf.name)
	cmd.Flag("description", "Track description").StringVar(&tf.description)
	cmd.Flag("color", "Track color (R,G,B)").StringVar(&tf.color)
	cmd.Flag("path_output", "Path to output track").Required().StringVar(&tf.pathOutput)
	return tf
}

// annotationFlags select peaks and transcripts.
type annotationFlags struct {
	pathPeaks        string
	bed              bool
	pathTranscripts  string
	transcriptFormat string
	upstream         int
	downstream       int
}

func newAnnotationFlags(cmd *kingpin.CmdClause) *annotationFlags {
	af := &annotationFlags{}
	cmd.Flag("path_peaks", "Path to peaks").Required().StringVar(&af.pathPeaks)
	cmd.Flag("bed", "BED coordinates (default 1-based)").BoolVar(&af.bed)
	cmd.Flag("path_transcripts", "Path to transcripts (refGene or GFF3)").Required().StringVar(&af.pathTranscripts)
	cmd.Flag("transcript_format", "Transcript format (default from extension)").EnumVar(&af.transcriptFormat, "refgene", "gff")
	cmd.Flag("upstream", "Upstream distance from TSS").Default(strconv.Itoa(classify.DefaultUpstream)).IntVar(&af.upstream)
	cmd.Flag("downstream", "Downstream distance from TSS").Default(strconv.Itoa(classify.DefaultDownstream)).IntVar(&af.downstream)
	return af
}
