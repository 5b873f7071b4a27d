//
// Copyright © 2015 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package genome

import (
	"bufio"
	"io"
	"strings"
)

// OpenMapping reads chromosome aliases (alias<TAB>name), for example to
// translate "1" into "chr1".
func OpenMapping(path string) (map[string]string, error) {
	f, err := OpenText(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMapping(f)
}

// ReadMapping parses aliases from r. Lines without a name are ignored, as
// are empty and "#" lines.
func ReadMapping(r io.Reader) (map[string]string, error) {
	aliases := make(map[string]string)
	tscanner := bufio.NewScanner(r)
	for tscanner.Scan() {
		line := tscanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if fields := strings.Fields(line); len(fields) >= 2 {
			aliases[fields[0]] = fields[1]
		}
	}
	return aliases, tscanner.Err()
}

// MapName returns the name aliased by name, or name itself.
func MapName(name string, aliases map[string]string) string {
	if mapped, ok := aliases[name]; ok {
		return mapped
	}
	return name
}
