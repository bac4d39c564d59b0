// Package ident generates Magellan's content-addressed identifiers: span_id
// and symbol_id (spec §4.2). Both are deterministic functions of their
// inputs so that two independent runs over the same source tree produce
// byte-identical ids.
package ident

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// SpanID computes spec §4.2's span identifier:
//
//	h = SHA256(file_path || ":" || be_bytes(start) || ":" || be_bytes(end))
//	span_id = hex(h[0..8])
//
// Big-endian offset encoding is required for platform portability. The
// result is a 16-hex-char string, stable across runs and across content
// edits that don't move the span's offsets.
func SpanID(filePath string, start, end uint64) string {
	h := sha256.New()
	h.Write([]byte(filePath))
	h.Write([]byte(":"))
	writeBE(h, start)
	h.Write([]byte(":"))
	writeBE(h, end)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

func writeBE(w interface{ Write([]byte) (int, error) }, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	w.Write(buf[:])
}

// SymbolID computes a stable content hash over (language, fqn, span_id),
// used for cross-run correlation (spec §4.2). Downstream identity
// comparisons must use this id, never the FQN string, since FQNs are not
// guaranteed unique across overloads/shadowing in every supported language.
func SymbolID(language, fqn, spanID string) string {
	h := sha256.New()
	h.Write([]byte(language))
	h.Write([]byte("\x00"))
	h.Write([]byte(fqn))
	h.Write([]byte("\x00"))
	h.Write([]byte(spanID))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// ContentHash computes the full SHA-256 of file content, hex-encoded
// (spec §3's File.content_hash and CodeChunk.content_hash).
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ChecksumPrefixed formats a content hash with the sha256: prefix used in
// the wire-format span envelope (spec §6).
func ChecksumPrefixed(hexHash string) string {
	return "sha256:" + hexHash
}
