package btcaddr

import (
	"crypto/sha256"
	"errors"
	"math/big"
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var (
	errBase58Char     = errors.New("btcaddr: invalid base58 character")
	errChecksumTooShort = errors.New("btcaddr: decoded payload too short for checksum")
	errBadChecksum    = errors.New("btcaddr: checksum mismatch")
)

var base58Index [256]int8

func init() {
	for i := range base58Index {
		base58Index[i] = -1
	}
	for i, c := range base58Alphabet {
		base58Index[c] = int8(i)
	}
}

// decodeBase58 decodes a base58 string (no checksum handling) to bytes,
// preserving leading-zero bytes as leading 0x00 bytes per the standard
// Bitcoin base58 convention.
func decodeBase58(s string) ([]byte, error) {
	result := big.NewInt(0)
	base := big.NewInt(58)
	for _, c := range s {
		if c > 255 || base58Index[c] < 0 {
			return nil, errBase58Char
		}
		result.Mul(result, base)
		result.Add(result, big.NewInt(int64(base58Index[c])))
	}

	decoded := result.Bytes()

	leadingZeros := 0
	for _, c := range s {
		if c != '1' {
			break
		}
		leadingZeros++
	}

	out := make([]byte, leadingZeros+len(decoded))
	copy(out[leadingZeros:], decoded)
	return out, nil
}

func doubleSHA256(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// decodeBase58Check decodes a base58check string, verifies the trailing
// 4-byte double-SHA-256 checksum, and returns the version byte plus payload.
func decodeBase58Check(s string) (version byte, payload []byte, err error) {
	raw, err := decodeBase58(s)
	if err != nil {
		return 0, nil, err
	}
	if len(raw) < 5 {
		return 0, nil, errChecksumTooShort
	}

	body, checksum := raw[:len(raw)-4], raw[len(raw)-4:]
	want := doubleSHA256(body)[:4]
	for i := range checksum {
		if checksum[i] != want[i] {
			return 0, nil, errBadChecksum
		}
	}
	return body[0], body[1:], nil
}
