// Package btcaddr validates Bitcoin payment addresses and derives the
// pay-to-pubkey-hash script the stratifier splices into a workbase's
// coinbase output (spec.md §3, User.Script).
//
// Adapted from the Litecoin address validator in the teacher repo
// (internal/validation/wallet.go): same length/prefix/injection-guard
// structure, rewired for Bitcoin's mainnet prefixes and for producing a
// spendable script rather than only a yes/no verdict.
package btcaddr

import (
	"errors"
	"strings"
)

var (
	ErrInvalidAddress      = errors.New("btcaddr: invalid address format")
	ErrAddressTooShort     = errors.New("btcaddr: address too short")
	ErrAddressTooLong      = errors.New("btcaddr: address too long")
	ErrUnsupportedWitness  = errors.New("btcaddr: unsupported witness version")
	ErrMaliciousInput      = errors.New("btcaddr: address contains disallowed characters")
)

// ScriptType identifies which output script an address decodes to.
type ScriptType int

const (
	ScriptUnknown ScriptType = iota
	ScriptP2PKH
	ScriptP2SH
	ScriptP2WPKH
	ScriptP2WSH
)

const (
	mainnetP2PKHVersion = 0x00
	mainnetP2SHVersion  = 0x05
	bech32HRP           = "bc"
)

// Decoded holds the result of validating and decoding an address.
type Decoded struct {
	Type    ScriptType
	Hash    []byte // 20 bytes for P2PKH/P2SH/P2WPKH, 32 for P2WSH
	Version int    // witness version, 0 for legacy types
}

// Validate checks an address's structural validity without fully decoding
// it — legacy addresses in the 26-35 character range starting with '1' or
// '3', or bech32 addresses starting with "bc1". It rejects input containing
// obvious SQL/XSS injection payloads before attempting to parse, matching
// the teacher's defense-in-depth ordering of checks.
func Validate(address string) error {
	address = strings.TrimSpace(address)
	if len(address) == 0 {
		return ErrInvalidAddress
	}
	if containsInjection(address) {
		return ErrMaliciousInput
	}

	if strings.HasPrefix(strings.ToLower(address), bech32HRP+"1") {
		_, err := Decode(address)
		return err
	}
	if len(address) < 26 {
		return ErrAddressTooShort
	}
	if len(address) > 35 {
		return ErrAddressTooLong
	}
	switch address[0] {
	case '1', '3':
	default:
		return ErrInvalidAddress
	}
	_, err := Decode(address)
	return err
}

// Decode fully decodes a Bitcoin mainnet address into its script type and
// hash payload.
func Decode(address string) (Decoded, error) {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(strings.ToLower(address), bech32HRP+"1") {
		return decodeSegwit(address)
	}

	version, payload, err := decodeBase58Check(address)
	if err != nil {
		return Decoded{}, err
	}
	if len(payload) != 20 {
		return Decoded{}, ErrInvalidAddress
	}

	switch version {
	case mainnetP2PKHVersion:
		return Decoded{Type: ScriptP2PKH, Hash: payload}, nil
	case mainnetP2SHVersion:
		return Decoded{Type: ScriptP2SH, Hash: payload}, nil
	default:
		return Decoded{}, ErrInvalidAddress
	}
}

func decodeSegwit(address string) (Decoded, error) {
	hrp, data, err := decodeBech32(strings.ToLower(address))
	if err != nil {
		return Decoded{}, err
	}
	if hrp != bech32HRP {
		return Decoded{}, ErrInvalidAddress
	}
	if len(data) < 1 {
		return Decoded{}, ErrInvalidAddress
	}

	witnessVersion := int(data[0])
	program, err := convertBits(data[1:], 5, 8, false)
	if err != nil {
		return Decoded{}, err
	}
	if witnessVersion != 0 {
		return Decoded{}, ErrUnsupportedWitness
	}
	switch len(program) {
	case 20:
		return Decoded{Type: ScriptP2WPKH, Hash: program, Version: witnessVersion}, nil
	case 32:
		return Decoded{Type: ScriptP2WSH, Hash: program, Version: witnessVersion}, nil
	default:
		return Decoded{}, ErrInvalidAddress
	}
}

// Script returns the legacy output script (25 bytes for P2PKH, 23 for P2SH)
// or the witness output script (22 or 34 bytes) for a
// decoded address. The coinbase builder (internal/workbase) splices this
// directly into a workbase's generation output, per spec.md §4.2.
func (d Decoded) Script() []byte {
	switch d.Type {
	case ScriptP2PKH:
		// OP_DUP OP_HASH160 <20> <hash> OP_EQUALVERIFY OP_CHECKSIG
		s := make([]byte, 0, 25)
		s = append(s, 0x76, 0xa9, 0x14)
		s = append(s, d.Hash...)
		s = append(s, 0x88, 0xac)
		return s
	case ScriptP2SH:
		// OP_HASH160 <20> <hash> OP_EQUAL
		s := make([]byte, 0, 23)
		s = append(s, 0xa9, 0x14)
		s = append(s, d.Hash...)
		s = append(s, 0x87)
		return s
	case ScriptP2WPKH, ScriptP2WSH:
		// OP_0 <len> <program>
		s := make([]byte, 0, len(d.Hash)+2)
		s = append(s, 0x00, byte(len(d.Hash)))
		s = append(s, d.Hash...)
		return s
	default:
		return nil
	}
}

// ScriptToUser builds the fixed 25-byte script spec.md §3 assigns to a
// User, zero-padding shorter scripts (P2SH, P2WPKH) so every workbase's
// generation output region (spec.md §4.2's fixed 25-byte slot) stays a
// constant width. A script longer than 25 bytes (P2WSH) does not fit the
// slot and is rejected with ErrInvalidAddress.
func ScriptToUser(address string) ([25]byte, error) {
	var out [25]byte
	d, err := Decode(address)
	if err != nil {
		return out, err
	}
	s := d.Script()
	if len(s) > 25 {
		return out, ErrInvalidAddress
	}
	copy(out[:], s)
	return out, nil
}

func containsInjection(input string) bool {
	lowered := strings.ToLower(input)
	for _, pattern := range []string{
		"'", "\"", ";", "--", "/*", "*/", "<script", "javascript:", "union select",
	} {
		if strings.Contains(lowered, pattern) {
			return true
		}
	}
	return false
}
