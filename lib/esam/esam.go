//
// Copyright © 2015 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package esam

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"

	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
	"git.sr.ht/~vejnar/SignalAbacus/lib/signal"
)

// PathSAM stores Path to SAM (Binary=false) or BAM (Binary=true) file.
type PathSAM struct {
	Path   string
	Binary bool
}

// NewPathSAM guesses the format from the file extension.
func NewPathSAM(path string) PathSAM {
	return PathSAM{Path: path, Binary: strings.HasSuffix(strings.ToLower(path), ".bam")}
}

// OpenSAM opens a SAM or BAM file. SAM input is read through the output of
// cmd (for example "samtools view -h") when cmd is not empty. Returned f and
// pp must be closed by the caller when not nil.
func OpenSAM(pathSAM PathSAM, cmd []string, nWorker int) (f *os.File, pp io.ReadCloser, rr sam.RecordReader, err error) {
	if pathSAM.Binary {
		f, err = os.Open(pathSAM.Path)
		if err != nil {
			return
		}
		var br *bam.Reader
		if br, err = bam.NewReader(f, nWorker); err != nil {
			return
		}
		rr = br
	} else if len(cmd) == 0 {
		f, err = os.Open(pathSAM.Path)
		if err != nil {
			return
		}
		var sr *sam.Reader
		if sr, err = sam.NewReader(f); err != nil {
			return
		}
		rr = sr
	} else {
		args := append(append([]string{}, cmd[1:]...), pathSAM.Path)
		p := exec.Command(cmd[0], args...)
		if pp, err = p.StdoutPipe(); err != nil {
			return
		}
		if err = p.Start(); err != nil {
			return
		}
		var sr *sam.Reader
		if sr, err = sam.NewReader(pp); err != nil {
			return
		}
		rr = sr
	}
	return
}

// GetSAMHeader returns the header of a SAM or BAM file.
func GetSAMHeader(pathSAM PathSAM, cmd []string) (*sam.Header, error) {
	f, pp, rr, err := OpenSAM(pathSAM, cmd, 1)
	if f != nil {
		defer f.Close()
	}
	if pp != nil {
		defer pp.Close()
	}
	if err != nil {
		return nil, err
	}
	switch r := rr.(type) {
	case *bam.Reader:
		return r.Header(), nil
	case *sam.Reader:
		return r.Header(), nil
	}
	return nil, nil
}

// HeaderSizes returns the reference sequences declared in a SAM header.
func HeaderSizes(h *sam.Header) (records []genome.SizeRecord) {
	for _, ref := range h.Refs() {
		records = append(records, genome.SizeRecord{Name: ref.Name(), Length: ref.Len()})
	}
	return
}

// Filter selects the alignments offered to the accumulator.
type Filter struct {
	MinMappingQuality byte
	KeepDuplicates    bool
	// Keep secondary alignments (supplementary ones are always skipped)
	KeepSecondary bool
}

// Keep reports whether r passes the filter. Unmapped reads are kept so that
// they are counted by the accumulator.
func (flt Filter) Keep(r *sam.Record) bool {
	if r.Flags&sam.Supplementary != 0 || r.Flags&sam.QCFail != 0 {
		return false
	}
	if r.Flags&sam.Secondary != 0 && !flt.KeepSecondary {
		return false
	}
	if r.Flags&sam.Duplicate != 0 && !flt.KeepDuplicates {
		return false
	}
	if r.Flags&sam.Unmapped == 0 && r.MapQ < flt.MinMappingQuality {
		return false
	}
	return true
}

// ToRead converts an alignment record.
func ToRead(r *sam.Record) signal.Read {
	read := signal.Read{
		Name:         r.Name,
		Unmapped:     r.Flags&sam.Unmapped != 0 || r.Ref == nil,
		Paired:       r.Flags&sam.Paired != 0,
		ProperPair:   r.Flags&sam.ProperPair != 0,
		MateUnmapped: r.Flags&sam.MateUnmapped != 0,
		Read1:        r.Flags&sam.Read1 != 0,
	}
	if read.Unmapped {
		return read
	}
	read.Chrom = r.Ref.Name()
	read.Start, read.End = r.Start(), r.End()
	read.Strand = r.Strand()
	return read
}

// ReadStats counts the alignments seen by ReadBatches.
type ReadStats struct {
	Alignments uint64 `json:"alignments"`
	Filtered   uint64 `json:"filtered"`
}

// ReadBatches decodes alignments from rr into batches taken from pool and
// sends full batches to out. The last, possibly partial, batch is sent
// before returning. Closing out is left to the caller.
func ReadBatches(ctx context.Context, rr sam.RecordReader, flt Filter, pool <-chan *signal.Batch, out chan<- *signal.Batch, stats *ReadStats) error {
	var b *signal.Batch
	send := func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- b:
		}
		b = nil
		return nil
	}
	for {
		aread, err := rr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		stats.Alignments++
		if !flt.Keep(aread) {
			stats.Filtered++
			continue
		}
		if b == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case b = <-pool:
			}
			b.Reset()
		}
		b.Write(ToRead(aread))
		if b.Full() {
			if err := send(); err != nil {
				return err
			}
		}
	}
	if b != nil && b.Len() > 0 {
		return send()
	}
	return nil
}
