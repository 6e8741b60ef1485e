// Copyright (C) 2025 Echo Drift Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package actions holds the fixed scene-action catalog embedded in the
// binary. The narrate prompt presents exactly these options to the
// player; the catalog never changes at runtime.
package actions

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// SceneAction is one of the fixed options offered in the opening scene.
type SceneAction struct {
	Action      string   `yaml:"action"`
	Requires    []string `yaml:"requires"`
	Description string   `yaml:"description,omitempty"`
}

// Catalog is the embedded opening-scene framing plus its action set.
type Catalog struct {
	Location string        `yaml:"location"`
	Role     string        `yaml:"role"`
	Actions  []SceneAction `yaml:"actions"`
}

// Load parses the embedded catalog. It fails only if the embedded YAML
// is malformed, which is a build defect rather than a runtime condition.
func Load() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded action catalog: %w", err)
	}
	if len(c.Actions) == 0 {
		return nil, fmt.Errorf("embedded action catalog contains no actions")
	}
	return &c, nil
}
