package workbase

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// RawBase is the wire shape of a "base" message from the generator
// (spec.md §4.1): "target, diff, version, curtime, prevhash, ntime,
// bbversion, nbit, coinbasevalue, height, flags, transactions (count plus
// concatenated hex), and merkles (count plus hex branch list)".
type RawBase struct {
	Height        uint64 `json:"height"`
	Diff          float64 `json:"diff"`
	PrevHash      string `json:"prevhash"`
	BBVersion     string `json:"bbversion"`
	NBit          string `json:"nbit"`
	CurTime       int64  `json:"curtime"`
	CoinbaseValue uint64 `json:"coinbasevalue"`
	Flags         string `json:"flags"`
	Transactions  struct {
		Count int    `json:"count"`
		Data  string `json:"data"`
	} `json:"transactions"`
	Merkles struct {
		Count  int      `json:"count"`
		Hashes []string `json:"hashes"`
	} `json:"merkles"`
}

// RawNotify is the wire shape of a "notify" refresh (spec.md §4.1): a new
// transaction set and ntime for the current block, no new height/prevhash.
type RawNotify struct {
	NTime        int64  `json:"ntime"`
	Transactions struct {
		Count int    `json:"count"`
		Data  string `json:"data"`
	} `json:"transactions"`
	Merkles struct {
		Count  int      `json:"count"`
		Hashes []string `json:"hashes"`
	} `json:"merkles"`
}

// ParseRawBase decodes one generator "base" JSON message.
func ParseRawBase(raw []byte) (RawBase, error) {
	var b RawBase
	if err := json.Unmarshal(raw, &b); err != nil {
		return RawBase{}, fmt.Errorf("workbase: decode base: %w", err)
	}
	return b, nil
}

// ParseRawNotify decodes one generator "notify" JSON message.
func ParseRawNotify(raw []byte) (RawNotify, error) {
	var n RawNotify
	if err := json.Unmarshal(raw, &n); err != nil {
		return RawNotify{}, fmt.Errorf("workbase: decode notify: %w", err)
	}
	return n, nil
}

func decodeHash32(hexStr string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return out, err
	}
	if len(b) != 32 {
		return out, fmt.Errorf("workbase: expected 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

func decodeFixed4(hexStr string) ([4]byte, error) {
	var out [4]byte
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return out, err
	}
	if len(b) != 4 {
		return out, fmt.Errorf("workbase: expected 4 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

// PoolIdentity carries the pool-config inputs that combine with a RawBase
// to form a BaseTemplate: the generation/donation scripts, coinbase
// signature, and the extranonce layout the Coinbase Builder needs
// (spec.md §4.2; in server mode enonce1var+enonce2var is fixed at 16,
// split 8+8).
type PoolIdentity struct {
	GenerationScript [25]byte
	DonationValid    bool
	DonationScript   [25]byte
	Signature        []byte
	Enonce1Const     []byte
}

// ToBaseTemplate combines a decoded RawBase with the pool's coinbase
// identity into the BaseTemplate the Template Manager ingests.
func (b RawBase) ToBaseTemplate(id PoolIdentity) (BaseTemplate, error) {
	prevHash, err := decodeHash32(b.PrevHash)
	if err != nil {
		return BaseTemplate{}, fmt.Errorf("workbase: prevhash: %w", err)
	}
	version, err := decodeFixed4(b.BBVersion)
	if err != nil {
		return BaseTemplate{}, fmt.Errorf("workbase: bbversion: %w", err)
	}
	nbit, err := decodeFixed4(b.NBit)
	if err != nil {
		return BaseTemplate{}, fmt.Errorf("workbase: nbit: %w", err)
	}
	flags, err := hex.DecodeString(b.Flags)
	if err != nil {
		return BaseTemplate{}, fmt.Errorf("workbase: flags: %w", err)
	}

	txHashes, err := decodeMerkleHashes(b.Merkles.Hashes)
	if err != nil {
		return BaseTemplate{}, err
	}
	rawTxnData, err := hex.DecodeString(b.Transactions.Data)
	if err != nil {
		return BaseTemplate{}, fmt.Errorf("workbase: transactions.data: %w", err)
	}

	return BaseTemplate{
		Height:        b.Height,
		PrevHash:      prevHash,
		Version:       version,
		NBit:          nbit,
		NTime:         time.Unix(b.CurTime, 0).UTC(),
		NetworkDiff:   b.Diff,
		CoinbaseValue: b.CoinbaseValue,
		Flags:         flags,
		TxHashes:      txHashes,
		RawTxnData:    rawTxnData,

		GenerationScript: id.GenerationScript,
		DonationValid:    id.DonationValid,
		DonationScript:   id.DonationScript,
		Signature:        id.Signature,

		Enonce1Const:  id.Enonce1Const,
		Enonce1VarLen: 8,
		Enonce2VarLen: 8,
	}, nil
}

// ToNotifyTemplate converts a decoded RawNotify into the lighter refresh
// the Template Manager applies to the current workbase.
func (n RawNotify) ToNotifyTemplate() (NotifyTemplate, error) {
	txHashes, err := decodeMerkleHashes(n.Merkles.Hashes)
	if err != nil {
		return NotifyTemplate{}, err
	}
	rawTxnData, err := hex.DecodeString(n.Transactions.Data)
	if err != nil {
		return NotifyTemplate{}, fmt.Errorf("workbase: transactions.data: %w", err)
	}
	return NotifyTemplate{
		NTime:      time.Unix(n.NTime, 0).UTC(),
		TxHashes:   txHashes,
		RawTxnData: rawTxnData,
	}, nil
}

func decodeMerkleHashes(hashes []string) ([][32]byte, error) {
	out := make([][32]byte, 0, len(hashes))
	for _, h := range hashes {
		hash, err := decodeHash32(h)
		if err != nil {
			return nil, fmt.Errorf("workbase: merkle hash: %w", err)
		}
		out = append(out, hash)
	}
	return out, nil
}
