//
// Copyright © 2015 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package profile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/adler32"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pierrec/lz4"

	"git.sr.ht/~vejnar/SignalAbacus/lib/genome"
)

const binaryVersion uint8 = 1

// TrackHeader is the UCSC "track" line written before bedGraph records.
type TrackHeader struct {
	Name        string
	Description string
	// "R,G,B" written verbatim
	Color string
}

func (h TrackHeader) String() string {
	s := fmt.Sprintf("track type=bedGraph name=\"%s\"", h.Name)
	if h.Description != "" {
		s += fmt.Sprintf(" description=\"%s\"", h.Description)
	}
	s += " visibility=full"
	if h.Color != "" {
		s += " color=" + h.Color
	}
	return s
}

type GenericWriter interface {
	Write(buf []byte) (n int, err error)
	Close() error
}

// SplitFormat splits an output format such as "bedgraph+gz" into its record
// format and compression.
func SplitFormat(format string) (recordFormat, zip string) {
	recordFormat = format
	if strings.Contains(format, "+") {
		doubleFormat := strings.SplitN(format, "+", 2)
		recordFormat, zip = doubleFormat[0], doubleFormat[1]
	}
	return
}

// NewCompressWriter wraps w with the compression named by zip ("", "gz",
// "lz4" or "lz4hc"). Closing the returned writer does not close w.
func NewCompressWriter(w io.Writer, zip string) (GenericWriter, error) {
	switch zip {
	case "gz":
		return gzip.NewWriter(w), nil
	case "lz4":
		return lz4.NewWriter(w), nil
	case "lz4hc":
		lzWriter := lz4.NewWriter(w)
		lzWriter.Header = lz4.Header{CompressionLevel: 9}
		return lzWriter, nil
	case "":
		return nopCloser{w}, nil
	}
	return nil, fmt.Errorf("unknown compression %q: %w", zip, genome.ErrConfiguration)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// WriteProfile writes records to path in format ("bedgraph" or "binary",
// optionally followed by "+gz", "+lz4" or "+lz4hc").
func WriteProfile(records []Record, table *genome.ChromTable, path string, format string, header *TrackHeader, appendOutput bool) error {
	recordFormat, zip := SplitFormat(format)
	if recordFormat != "bedgraph" && recordFormat != "binary" {
		return fmt.Errorf("unknown profile format %q: %w", recordFormat, genome.ErrConfiguration)
	}
	// Append or Create flag
	var fg int
	if appendOutput {
		fg = os.O_APPEND | os.O_CREATE | os.O_WRONLY
	} else {
		fg = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, fg, 0666)
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	writer, err := NewCompressWriter(bw, zip)
	if err != nil {
		return err
	}
	switch recordFormat {
	case "bedgraph":
		err = WriteBedGraph(writer, records, table, header)
	case "binary":
		err = WriteBinary(writer, records, table)
	}
	if err != nil {
		return err
	}
	if err = writer.Close(); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// WriteBedGraph writes one "chrom<TAB>start<TAB>end<TAB>value" line per record.
func WriteBedGraph(w io.Writer, records []Record, table *genome.ChromTable, header *TrackHeader) error {
	if header != nil {
		if _, err := fmt.Fprintln(w, header.String()); err != nil {
			return err
		}
	}
	for _, r := range records {
		if _, err := fmt.Fprintf(w, "%s\t%d\t%d\t%.2f\n", table.Name(r.ChromID), r.Start, r.End, r.Value); err != nil {
			return err
		}
	}
	return nil
}

// WriteBinary writes records in little-endian: version (uint8), number of
// chromosomes (uint32), adler32 checksum of the chromosome lengths (uint32),
// number of records (uint32), then chromosome ID, start, end (uint32) and
// value (float32) of each record.
func WriteBinary(w io.Writer, records []Record, table *genome.ChromTable) error {
	if err := binary.Write(w, binary.LittleEndian, binaryVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(table.Len())); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, lengthsChecksum(table)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(records))); err != nil {
		return err
	}
	for _, r := range records {
		rec := binaryRecord{ChromID: uint32(r.ChromID), Start: uint32(r.Start), End: uint32(r.End), Value: float32(r.Value)}
		if err := binary.Write(w, binary.LittleEndian, rec); err != nil {
			return err
		}
	}
	return nil
}

type binaryRecord struct {
	ChromID    uint32
	Start, End uint32
	Value      float32
}

func lengthsChecksum(table *genome.ChromTable) uint32 {
	bufChecksum := new(bytes.Buffer)
	for _, l := range table.Lengths {
		binary.Write(bufChecksum, binary.LittleEndian, uint32(l))
	}
	return adler32.Checksum(bufChecksum.Bytes())
}

// ReadBinary reads records written by WriteBinary. The chromosome table must
// match the one used for writing.
func ReadBinary(r io.Reader, table *genome.ChromTable) ([]Record, error) {
	var header struct {
		Version  uint8
		NChroms  uint32
		Checksum uint32
		NRecords uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	if header.Version != binaryVersion {
		return nil, fmt.Errorf("binary profile version %d, expected %d", header.Version, binaryVersion)
	}
	if int(header.NChroms) != table.Len() || header.Checksum != lengthsChecksum(table) {
		return nil, fmt.Errorf("binary profile written with other chromosome sizes: %w", genome.ErrConfiguration)
	}
	records := make([]Record, header.NRecords)
	var rec binaryRecord
	for i := range records {
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, err
		}
		records[i] = Record{ChromID: int(rec.ChromID), Start: int(rec.Start), End: int(rec.End), Value: float64(rec.Value)}
	}
	return records, nil
}

// OpenBedGraph reads a bedGraph file (.gz aware). Track, browser and comment
// lines are ignored. Records on chromosomes missing from table are skipped
// and counted.
func OpenBedGraph(path string, table *genome.ChromTable) (records []Record, skipped int, err error) {
	f, err := genome.OpenText(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return ReadBedGraph(f, table)
}

func ReadBedGraph(r io.Reader, table *genome.ChromTable) (records []Record, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	var nline int
	for scanner.Scan() {
		nline++
		line := scanner.Text()
		if len(line) == 0 || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, skipped, fmt.Errorf("line %d: %d fields, expected 4", nline, len(fields))
		}
		chrID, rerr := table.Resolve(fields[0])
		if rerr != nil {
			skipped++
			continue
		}
		var rec Record
		rec.ChromID = chrID
		if rec.Start, err = strconv.Atoi(fields[1]); err != nil {
			return nil, skipped, fmt.Errorf("line %d: %w", nline, err)
		}
		if rec.End, err = strconv.Atoi(fields[2]); err != nil {
			return nil, skipped, fmt.Errorf("line %d: %w", nline, err)
		}
		if rec.Value, err = strconv.ParseFloat(fields[3], 64); err != nil {
			return nil, skipped, fmt.Errorf("line %d: %w", nline, err)
		}
		records = append(records, rec)
	}
	return records, skipped, scanner.Err()
}
