//
// Copyright (C) 2015-2022 Charles E. Vejnar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package genome

import "errors"

// Fatal errors abort a run before or during processing. Per-record errors
// (ErrUnknownChromosome, ErrOutOfRange) are counted and the record skipped.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrUnknownChromosome = errors.New("unknown chromosome")
	ErrOutOfRange        = errors.New("coordinate out of range")
	ErrOutOfMemory       = errors.New("out of memory")
)
