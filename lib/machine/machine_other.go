// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package machine

import "errors"

// Open is unavailable off Linux: register access requires the msr and
// cpuid device nodes. The [Fake] works everywhere.
func Open(maxCore uint32) (Prober, error) {
	return nil, errors.New("machine: register access requires Linux")
}
