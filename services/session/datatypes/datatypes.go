// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes holds wire-level types shared between the session
// service and the oracle backends.
package datatypes

// Message roles recognized by the oracle backends.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one role-tagged entry in an oracle request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
