// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capability

import "errors"

var (
	// ErrNotSupported marks a feature set the platform does not
	// implement. Discovery recovers from it by omitting the record.
	ErrNotSupported = errors.New("capability not supported")

	// ErrNoEvents marks a monitoring feature set that enumerates no
	// events.
	ErrNoEvents = errors.New("no monitoring events enumerated")

	// ErrNoCapabilities means neither feature set is present.
	ErrNoCapabilities = errors.New("no cache QoS capabilities discovered")

	// ErrInconsistentPlatform means sockets disagree on CDP state.
	// The platform needs manual repair; discovery never resolves the
	// disagreement itself.
	ErrInconsistentPlatform = errors.New("inconsistent CDP state across sockets")

	// ErrConfigurationConflict means the requested CDP mode cannot be
	// satisfied on this platform.
	ErrConfigurationConflict = errors.New("requested CDP configuration conflicts with platform")
)
