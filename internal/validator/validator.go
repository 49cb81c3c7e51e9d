package validator

import (
	"encoding/hex"

	"github.com/ckpool-go/stratifier/internal/merkle"
)

// Outcome classifies a submitted share (spec.md §4.6).
type Outcome int

const (
	Accept Outcome = iota
	StaleUnknown
	Stale
	NtimeInvalid
	HighDiff
	Dupe
)

func (o Outcome) String() string {
	switch o {
	case Accept:
		return "accept"
	case StaleUnknown:
		return "stale_unknown"
	case Stale:
		return "stale"
	case NtimeInvalid:
		return "ntime_invalid"
	case HighDiff:
		return "high_diff"
	case Dupe:
		return "dupe"
	default:
		return "unknown"
	}
}

// maxNtimeSkew bounds how far ahead of a workbase's own ntime a miner's
// submitted ntime may roll (spec.md §4.6: "ntime must fall within
// [wb.ntime, wb.ntime+7000]").
const maxNtimeSkew = 7000

// blockSolveRatio is the fraction of network difficulty a share's
// difficulty must reach to be treated as a candidate block solution,
// independent of its classification (spec.md §4.6: "≥ 0.99 × network
// difficulty").
const blockSolveRatio = 0.99

// WorkbaseView is the subset of a workbase the validator needs to
// reconstruct and score a share. It is a deliberately narrow view rather
// than a direct dependency on package workbase, keeping the Share
// Validator decoupled from the Template Manager's internals (spec.md
// §4.6's validator and §4.1's template manager are separate components).
type WorkbaseView struct {
	ID              uint64
	NTime32         uint32
	HeaderTemplate  [112]byte
	MerkleBranch    [][32]byte
	Coinb1          []byte
	Coinb2          []byte
	Enonce1ConstLen int
	Enonce1VarLen   int
	Enonce2VarLen   int
}

// Submission is the subset of a mining.submit call the validator needs,
// already demultiplexed from its job id (spec.md §4.6).
type Submission struct {
	WorkbaseID uint64
	Enonce2Hex string
	NTimeHex   string // 4-byte big-endian hex, as submitted by the miner
	NonceHex   string // 4-byte big-endian hex
}

// Result is the outcome of classifying one submission.
type Result struct {
	Outcome       Outcome
	ShareDiff     float64
	Hash          [32]byte // internal (accumulator) byte order
	HashHex       string   // display order, reversed
	Header        [80]byte
	IsBlockSolve  bool
	CoinbaseBytes []byte
}

// Classify runs the ordered, return-first-match share classification
// pipeline (spec.md §4.6):
//  1. unknown workbase id -> StaleUnknown
//  2. workbase id older than the current blockchange -> Stale
//  3. ntime outside [wb.ntime32, wb.ntime32+7000] -> NtimeInvalid
//  4. share difficulty below the client's effective accept difficulty -> HighDiff
//  5. duplicate hash for this workbase -> Dupe
//  6. otherwise -> Accept
//
// Block-solution detection runs regardless of the classification reached:
// any share at or above blockSolveRatio of the network difficulty is
// flagged IsBlockSolve even if it is also Stale, a Dupe, or below the
// client's own required difficulty.
func Classify(
	wb WorkbaseView,
	blockchangeID uint64,
	enonce1Const []byte,
	enonce1Var uint64,
	sub Submission,
	effectiveAcceptDiff float64,
	networkDiff float64,
	shares *ShareMap,
	found bool,
) (Result, error) {
	if !found {
		return Result{Outcome: StaleUnknown}, nil
	}
	if wb.ID < blockchangeID {
		return Result{Outcome: Stale}, nil
	}

	ntime, err := parseHexUint32(sub.NTimeHex)
	if err != nil {
		return Result{}, err
	}
	if ntime < wb.NTime32 || ntime > wb.NTime32+maxNtimeSkew {
		return Result{Outcome: NtimeInvalid}, nil
	}

	nonce, err := parseHexUint32(sub.NonceHex)
	if err != nil {
		return Result{}, err
	}

	wantNonce2Len := wb.Enonce2VarLen * 2
	nonce2Hex := normalizeNonce2(sub.Enonce2Hex, wantNonce2Len)
	nonce2, err := hex.DecodeString(nonce2Hex)
	if err != nil {
		return Result{}, err
	}

	coinbase := reconstructCoinbase(wb.Coinb1, enonce1Const, enonce1Var, wb.Enonce1VarLen, nonce2, wb.Coinb2)
	coinbaseHash := doubleSHA256(coinbase)
	merkleRoot := merkle.ComputeRootFromCoinbase(coinbaseHash, wb.MerkleBranch)
	wireMerkleRoot := merkle.Reverse(merkleRoot)

	header := buildHeader(wb.HeaderTemplate, wireMerkleRoot, ntime, nonce)
	hash := headerHash(header)
	shareDiff := shareDifficulty(hash)

	result := Result{
		ShareDiff:     shareDiff,
		Hash:          hash,
		HashHex:       hashHex(hash),
		Header:        header,
		CoinbaseBytes: coinbase,
		IsBlockSolve:  isBlockSolve(shareDiff, networkDiff),
	}

	if wb.ID < blockchangeID {
		result.Outcome = Stale
		return result, nil
	}
	if ntime < wb.NTime32 || ntime > wb.NTime32+maxNtimeSkew {
		result.Outcome = NtimeInvalid
		return result, nil
	}

	if shareDiff < effectiveAcceptDiff {
		result.Outcome = HighDiff
		return result, nil
	}

	if shares.CheckAndInsert(hash, wb.ID) {
		result.Outcome = Dupe
		return result, nil
	}

	result.Outcome = Accept
	return result, nil
}

func parseHexUint32(s string) (uint32, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return 0, err
	}
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v, nil
}
