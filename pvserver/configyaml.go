// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import "gopkg.in/yaml.v3"

// DumpYAML renders the effective configuration as YAML, for the
// --dump-config operator diagnostic (spec.md §6.2): seeing exactly
// what FromEnv resolved, including values defaulted due to a logged
// environment parse failure.
func (c Config) DumpYAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
