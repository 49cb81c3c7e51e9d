package btcaddr

import (
	"errors"
	"strings"
)

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

var errBech32Checksum = errors.New("btcaddr: bech32 checksum mismatch")

func bech32Polymod(values []byte) uint32 {
	gen := [5]uint32{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := uint32(1)
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ uint32(v)
		for i := 0; i < 5; i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}

func bech32HRPExpand(hrp string) []byte {
	out := make([]byte, 0, len(hrp)*2+1)
	for _, c := range hrp {
		out = append(out, byte(c)>>5)
	}
	out = append(out, 0)
	for _, c := range hrp {
		out = append(out, byte(c)&31)
	}
	return out
}

func bech32VerifyChecksum(hrp string, data []byte) bool {
	values := append(bech32HRPExpand(hrp), data...)
	return bech32Polymod(values) == 1
}

// decodeBech32 decodes a bech32 string into its human-readable part and
// 5-bit grouped data (including the witness version and checksum), per
// BIP-173. Only lowercase input is accepted, matching the convention
// addresses are normalized to before calling this.
func decodeBech32(s string) (hrp string, data []byte, err error) {
	if s != strings.ToLower(s) {
		return "", nil, errors.New("btcaddr: mixed-case bech32")
	}
	pos := strings.LastIndexByte(s, '1')
	if pos < 1 || pos+7 > len(s) {
		return "", nil, errors.New("btcaddr: malformed bech32 separator")
	}

	hrp = s[:pos]
	dataPart := s[pos+1:]
	data = make([]byte, len(dataPart))
	for i, c := range dataPart {
		idx := strings.IndexRune(bech32Charset, c)
		if idx < 0 {
			return "", nil, errors.New("btcaddr: invalid bech32 character")
		}
		data[i] = byte(idx)
	}

	if !bech32VerifyChecksum(hrp, data) {
		return "", nil, errBech32Checksum
	}
	return hrp, data[:len(data)-6], nil
}

// convertBits regroups a slice of integers from fromBits-wide groups to
// toBits-wide groups, as used to turn bech32's 5-bit words into 8-bit
// witness program bytes.
func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	acc := uint32(0)
	bits := uint(0)
	var out []byte
	maxv := uint32(1)<<toBits - 1

	for _, value := range data {
		if value>>fromBits != 0 {
			return nil, errors.New("btcaddr: invalid data for bit conversion")
		}
		acc = acc<<fromBits | uint32(value)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte(acc>>bits)&byte(maxv))
		}
	}
	if pad {
		if bits > 0 {
			out = append(out, byte(acc<<(toBits-bits))&byte(maxv))
		}
	} else if bits >= fromBits || (acc<<(toBits-bits))&maxv != 0 {
		return nil, errors.New("btcaddr: non-zero padding in bit conversion")
	}
	return out, nil
}
