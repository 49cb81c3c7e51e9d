package workbase

import "encoding/hex"

// NotifyFields is the hex-rendered subset of a Workbase that
// internal/protocol.NewNotifyNotification needs, kept as a plain value so
// callers assembling a mining.notify don't need package workbase's
// internal layout.
type NotifyFields struct {
	JobIDHex   string
	PrevHash   string
	Coinb1Hex  string
	Coinb2Hex  string
	MerkleHex  []string
	VersionHex string
	NBitHex    string
	NTimeHex   string
}

// NotifyFields renders wb's job id, coinbase halves, merkle branch and
// header fields as the hex strings mining.notify's params array carries
// (spec.md §6).
func (wb *Workbase) NotifyFields() NotifyFields {
	merkleHex := make([]string, len(wb.MerkleBranch))
	for i, h := range wb.MerkleBranch {
		merkleHex[i] = hex.EncodeToString(h[:])
	}
	return NotifyFields{
		JobIDHex:   idHex(wb.ID),
		PrevHash:   hex.EncodeToString(wb.PrevHash[:]),
		Coinb1Hex:  hex.EncodeToString(wb.Coinb1),
		Coinb2Hex:  hex.EncodeToString(wb.Coinb2),
		MerkleHex:  merkleHex,
		VersionHex: hex.EncodeToString(wb.Version[:]),
		NBitHex:    hex.EncodeToString(wb.NBit[:]),
		NTimeHex:   hex.EncodeToString(wb.NTimeHex[:]),
	}
}

// UserCoinb2Hex returns the per-user coinbase second half for solo mode if
// one has been built for userID, otherwise the shared Coinb2.
func (wb *Workbase) UserCoinb2Hex(userID int64) string {
	wb.uwbMu.Lock()
	uwb, ok := wb.UserWorkbases[userID]
	wb.uwbMu.Unlock()
	if !ok {
		return hex.EncodeToString(wb.Coinb2)
	}
	return hex.EncodeToString(uwb.Coinb2)
}

func idHex(id uint64) string {
	const hextable = "0123456789abcdef"
	b := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		b[i] = hextable[id&0xf]
		id >>= 4
	}
	return string(b)
}
