// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for the interaction cycle. Handlers match on these
// with errors.Is to pick the message sent back to the client.
var (
	// ErrOracleUnavailable means the oracle could not be reached or
	// returned a transport/auth level failure.
	ErrOracleUnavailable = errors.New("oracle unavailable")

	// ErrOracleTimeout means an oracle call exceeded its bounded wait.
	ErrOracleTimeout = errors.New("oracle timeout")

	// ErrReferenceStoreUnavailable means a mid-cycle reference data
	// lookup failed. The cycle aborts before any state change.
	ErrReferenceStoreUnavailable = errors.New("reference store unavailable")

	// ErrSessionClosed means the session worker has been stopped.
	ErrSessionClosed = errors.New("session closed")
)

// ValidationError reports that oracle output did not survive the delta
// validation gate. It is an intentional degrade, not a cycle failure:
// the narrative still reaches the player, the state change is dropped.
type ValidationError struct {
	Reason string
	Raw    string
}

func (e *ValidationError) Error() string {
	return "delta validation failed: " + e.Reason
}

// classifyOracleErr maps a raw oracle call failure onto the cycle error
// taxonomy. Context deadline errors become ErrOracleTimeout, everything
// else ErrOracleUnavailable.
func classifyOracleErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, ErrOracleTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrOracleUnavailable, err)
}
