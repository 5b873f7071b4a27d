//
// Copyright (C) 2015-2021 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package genome

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// OpenChromSizes parses a two column tabulated file with name and length of chromosome.
func OpenChromSizes(path string) (records []SizeRecord, err error) {
	f, err := OpenText(path)
	if err != nil {
		return
	}
	defer f.Close()
	return ReadChromSizes(f)
}

// ReadChromSizes parses chromosome sizes from r. Empty and "#" lines are ignored.
func ReadChromSizes(r io.Reader) (records []SizeRecord, err error) {
	var length, nLine int
	tscanner := bufio.NewScanner(r)
	for tscanner.Scan() {
		nLine++
		line := tscanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			err = fmt.Errorf("line %d: expected name and length", nLine)
			return
		}
		length, err = strconv.Atoi(fields[1])
		if err != nil {
			err = fmt.Errorf("line %d: %v", nLine, err)
			return
		}
		records = append(records, SizeRecord{Name: fields[0], Length: length})
	}
	err = tscanner.Err()
	return
}
