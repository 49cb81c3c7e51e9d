package workbase

import (
	"encoding/binary"
	"time"
)

// scriptSigHeader is the fixed 41-byte transaction prefix shared by every
// coinbase: version(4) + input-count(1)=01 + null prevout hash(32) +
// prevout index(4)=0xffffffff. Verbatim from ckpool's stratifier.c.
var scriptSigHeader = [41]byte{
	0x01, 0x00, 0x00, 0x00, 0x01,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0xff,
}

var ckpoolTag = []byte{0x0a, 'c', 'k', 'p', 'o', 'o', 'l'}

// serNumber encodes val the way Bitcoin's CScriptNum push does for BIP34
// height and ckpool's nTime/nsec randomizer fields: a length-prefixed
// little-endian magnitude with a sign/overflow guard byte appended when the
// top bit of the magnitude's last byte is set.
func serNumber(val int64) []byte {
	neg := val < 0
	abs := uint64(val)
	if neg {
		abs = uint64(-val)
	}

	var data []byte
	for abs != 0 {
		data = append(data, byte(abs&0xff))
		abs >>= 8
	}

	if len(data) > 0 && data[len(data)-1]&0x80 != 0 {
		if neg {
			data = append(data, 0x80)
		} else {
			data = append(data, 0x00)
		}
	} else if neg && len(data) > 0 {
		data[len(data)-1] |= 0x80
	}

	out := make([]byte, 0, len(data)+1)
	out = append(out, byte(len(data)))
	out = append(out, data...)
	return out
}

// BuildParams carries everything BuildCoinbase needs to assemble a
// workbase's coinb1/coinb2 pair (spec.md §4.2).
type BuildParams struct {
	Height          uint64
	Flags           []byte // raw coinbase signature bytes, may be empty
	GenTime         time.Time
	Enonce1VarLen   int
	Enonce2VarLen   int
	Signature       []byte // optional pool signature pushed at the front of coinb2
	CoinbaseValue   uint64
	GenerationScript [25]byte
	DonationValid    bool
	DonationScript   [25]byte
}

// BuildCoinbase assembles coinb1/coinb2 around the extranonce placeholders
// per spec.md §4.2's layout, returning the script-length patch offset in
// coinb1 and the generation-output offset in coinb2.
func BuildCoinbase(p BuildParams) (coinb1, coinb2 []byte, scriptLenOffset, genOffset int) {
	coinb1 = make([]byte, 0, 128)
	coinb1 = append(coinb1, scriptSigHeader[:]...)
	scriptLenOffset = len(coinb1)
	coinb1 = append(coinb1, 0x00) // patched below

	coinb1 = append(coinb1, serNumber(int64(p.Height))...)

	coinb1 = append(coinb1, byte(len(p.Flags)))
	coinb1 = append(coinb1, p.Flags...)

	coinb1 = append(coinb1, serNumber(p.GenTime.Unix())...)
	coinb1 = append(coinb1, serNumber(int64(p.GenTime.Nanosecond()))...)

	enonceTotalLen := p.Enonce1VarLen + p.Enonce2VarLen
	coinb1 = append(coinb1, byte(enonceTotalLen))

	coinb2 = make([]byte, 0, 128)
	coinb2 = append(coinb2, ckpoolTag...)
	if len(p.Signature) > 0 {
		coinb2 = append(coinb2, byte(len(p.Signature)))
		coinb2 = append(coinb2, p.Signature...)
	}
	coinb2 = append(coinb2, 0xff, 0xff, 0xff, 0xff)

	generation := p.CoinbaseValue
	var donation uint64
	if p.DonationValid {
		donation = p.CoinbaseValue / 200
		generation = p.CoinbaseValue - donation
		coinb2 = append(coinb2, 0x02)
	} else {
		coinb2 = append(coinb2, 0x01)
	}

	coinb2 = appendLE64(coinb2, generation)
	coinb2 = append(coinb2, 0x19) // 25
	genOffset = len(coinb2)
	coinb2 = append(coinb2, p.GenerationScript[:]...)

	if p.DonationValid {
		coinb2 = appendLE64(coinb2, donation)
		coinb2 = append(coinb2, 0x19)
		coinb2 = append(coinb2, p.DonationScript[:]...)
	}

	coinb2 = append(coinb2, 0x00, 0x00, 0x00, 0x00) // locktime

	// script_len = (bytes after the script-length byte in coinb1, i.e.
	// everything from the height varint through the enonce-total byte)
	// plus the variable enonce region plus all of coinb2.
	afterScriptLen := len(coinb1) - (scriptLenOffset + 1)
	scriptLen := afterScriptLen + p.Enonce1VarLen + p.Enonce2VarLen + len(coinb2)
	coinb1[scriptLenOffset] = byte(scriptLen)

	return coinb1, coinb2, scriptLenOffset, genOffset
}

func appendLE64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

// EnonceLens derives the variable-length extranonce1/extranonce2 split for
// proxy-mode clients from their negotiated nonce2 width, per spec.md §4.1's
// proxy-mode rule: wider nonce2 spaces shift more of the split onto
// extranonce1 so a proxy can keep handing out unique extranonce2 ranges to
// its downstream miners.
func EnonceLens(nonce2Len int) (enonce1VarLen, enonce2VarLen int) {
	switch {
	case nonce2Len > 7:
		enonce1VarLen = 4
	case nonce2Len > 5:
		enonce1VarLen = 2
	default:
		enonce1VarLen = 1
	}
	return enonce1VarLen, nonce2Len - enonce1VarLen
}
