// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

package pvserver

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"filippo.io/age"
)

// SealedDumpYAML renders the effective configuration as YAML (the same
// bytes DumpYAML produces) and encrypts it to one or more age x25519
// recipients, returning base64 ciphertext. An operator's --dump-config
// output can carry bind addresses and beacon destinations an admin
// doesn't want sitting in plaintext in a support bundle; sealing it to
// the requesting operator's own public key keeps the at-rest snapshot
// unreadable without their private key.
//
// At least one recipient is required.
func (c Config) SealedDumpYAML(recipientKeys []string) (string, error) {
	if len(recipientKeys) == 0 {
		return "", fmt.Errorf("pvserver: at least one age recipient is required")
	}

	plaintext, err := c.DumpYAML()
	if err != nil {
		return "", err
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return "", fmt.Errorf("parsing age recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	w, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := w.Write([]byte(plaintext)); err != nil {
		return "", fmt.Errorf("sealing config: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing sealed config: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}
