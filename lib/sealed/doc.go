// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed decrypts secret material that operators keep
// age-encrypted at rest, such as the shared secret written to a node
// during bootstrap. It wraps filippo.io/age for the two operations
// nodestrap needs: encrypt to a set of recipients (the "seal" command)
// and decrypt with an identity file (context assembly).
//
// Both binary and ASCII-armored ciphertext are accepted on decrypt.
// Encrypt produces armored output so sealed files survive being pasted
// into YAML or chat.
package sealed
