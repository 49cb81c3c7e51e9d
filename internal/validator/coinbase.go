package validator

import "strings"

// enonce1VarBytes packs val into length big-endian bytes, the form the
// variable extranonce1 region takes inside the assembled coinbase.
func enonce1VarBytes(val uint64, length int) []byte {
	out := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		out[i] = byte(val & 0xff)
		val >>= 8
	}
	return out
}

// normalizeNonce2 left-pads a short nonce2 hex string with zeros or
// truncates a long one to exactly wantLen hex characters (spec.md §4.6).
func normalizeNonce2(nonce2Hex string, wantLen int) string {
	if len(nonce2Hex) < wantLen {
		return strings.Repeat("0", wantLen-len(nonce2Hex)) + nonce2Hex
	}
	if len(nonce2Hex) > wantLen {
		return nonce2Hex[:wantLen]
	}
	return nonce2Hex
}

// reconstructCoinbase concatenates coinb1, the constant and variable
// extranonce1 bytes, the client's extranonce2, and coinb2 into the full
// coinbase transaction bytes (spec.md §4.6).
func reconstructCoinbase(coinb1, enonce1Const []byte, enonce1Var uint64, enonce1VarLen int, nonce2 []byte, coinb2 []byte) []byte {
	out := make([]byte, 0, len(coinb1)+len(enonce1Const)+enonce1VarLen+len(nonce2)+len(coinb2))
	out = append(out, coinb1...)
	out = append(out, enonce1Const...)
	out = append(out, enonce1VarBytes(enonce1Var, enonce1VarLen)...)
	out = append(out, nonce2...)
	out = append(out, coinb2...)
	return out
}
