// Package cid derives content addresses for signed credentials.
//
// The address is not cryptographically verifiable content addressing: it is a
// deterministic-looking locator with three hard requirements — the same
// canonical payload always yields the same hash component, derivations at
// different instants yield different final addresses (time salt), and the
// total length is fixed. A real digest (e.g. SHA-256, base32) could replace
// the rolling hash as long as the prefixed two-part shape and fixed length
// are preserved, since downstream callers assume them.
package cid

import (
	"strconv"
	"time"
	"unicode/utf16"
)

const (
	// Prefix emulates a content-address scheme's magic prefix.
	Prefix = "bafybei"

	// Length is the fixed total length of every derived address.
	Length = 59

	filler = "abcdefghijklmnopqrstuvwxyz123456789"
)

// Derive computes the content address for a canonical payload at the given
// instant. The hash component depends only on the payload; the salt component
// depends only on the instant.
func Derive(canonicalPayload string, now time.Time) string {
	hash := HashComponent(canonicalPayload)
	salt := strconv.FormatInt(now.UnixMilli(), 36)

	addr := Prefix + hash + salt
	for len(addr) < Length {
		addr += filler[:min(len(filler), Length-len(addr))]
	}
	return addr[:Length]
}

// HashComponent folds the payload into a 32-bit accumulator and base36
// encodes its absolute value. Deterministic for equal payloads; collisions
// are acceptable because the salt disambiguates the final address.
func HashComponent(payload string) string {
	var hash int32
	for _, unit := range utf16.Encode([]rune(payload)) {
		hash = hash*31 + int32(unit)
	}
	abs := int64(hash)
	if abs < 0 {
		abs = -abs
	}
	return strconv.FormatInt(abs, 36)
}
