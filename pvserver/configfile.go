// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// ConfigFromJSONC reads a Config from a JSONC file: JSON extended with
// // line comments, /* block comments */, and trailing commas, letting
// an operator annotate a config file the way FromEnv's bare environment
// variables cannot. This is an alternative entry point to FromEnv, not
// a replacement for it — a caller picks one construction path, then
// calls Validate.
func ConfigFromJSONC(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
