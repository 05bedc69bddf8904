// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The WardVault Authors

package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// parseJSON reads the JSON configuration file at path and decodes it into
// a fresh [StructuredConfig]. Field names follow the `json` tags declared
// on the config structs; durations use Go duration syntax ("30s", "1m").
func parseJSON(path string) (*StructuredConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading JSON config %q: %w", path, err)
	}

	cfg := new(StructuredConfig)
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("error decoding JSON config %q: %w", path, err)
	}

	return cfg, nil
}
