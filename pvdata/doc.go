// Copyright 2026 The PVA Server Authors
// SPDX-License-Identifier: Apache-2.0

// Package pvdata implements the self-describing structured-value codec
// at the core of the PVA wire protocol: a recursive [FieldDesc] type
// description tree flattened into a single depth-first array, a
// parallel [FieldStorage] tree holding the actual field values, and the
// type and value codecs that serialize both over a [Buffer].
//
// The type codec ([EncodeType] / [DecodeType]) carries a per-connection
// [Cache] so that repeated transmission of the same struct/union
// description can be elided after the first send (Cache-Define /
// Cache-Ref tags). The value codec has three modes: full
// ([EncodeFull]/[DecodeFull], every storage cell), valid-only
// ([EncodeValid]/[DecodeValid], a bitset-gated delta), and type+value
// ([DecodeTypeValue], for Any payloads whose type is not already
// known to the receiver).
//
// None of this package suspends on I/O: a decode that runs out of
// bytes sets the Buffer's sticky fault flag and returns immediately,
// leaving the caller to discard the partial result.
package pvdata
