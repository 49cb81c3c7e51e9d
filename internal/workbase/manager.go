package workbase

import (
	"sort"
	"sync"
	"time"

	"github.com/ckpool-go/stratifier/internal/merkle"
)

// retentionCount is the minimum number of most-recent workbases a Manager
// keeps regardless of age, so a burst of slow shares from before a rapid
// sequence of block changes still finds a live workbase to validate against
// (spec.md §4.1).
const retentionCount = 3

// retentionAge is the age past which a workbase outside the retentionCount
// newest is evicted (spec.md §4.1).
const retentionAge = 600 * time.Second

// BaseTemplate is the block-template feed shape a generator.Client hands the
// Manager: everything needed to build a brand new workbase from scratch.
type BaseTemplate struct {
	Height        uint64
	PrevHash      [32]byte
	Version       [4]byte
	NBit          [4]byte
	NTime         time.Time
	NetworkDiff   float64
	CoinbaseValue uint64
	Flags         []byte
	TxHashes      [][32]byte // excludes the coinbase; block order
	RawTxnData    []byte     // concatenated raw transaction bytes, block order

	GenerationScript [25]byte
	DonationValid    bool
	DonationScript   [25]byte
	Signature        []byte

	Enonce1Const  []byte
	Enonce1VarLen int
	Enonce2VarLen int
}

// NotifyTemplate is a lighter refresh of the current block template: new
// transactions (and hence a new merkle branch) without a height or prevhash
// change. ckpool issues these between full rebuilds when a getblocktemplate
// poll returns the same tip with an updated transaction set.
type NotifyTemplate struct {
	NTime      time.Time
	TxHashes   [][32]byte
	RawTxnData []byte
}

// Manager owns the live set of workbases: it ingests template updates,
// assembles coinbases and header templates, ages out stale workbases, and
// answers lookups by id for share validation (spec.md §4.1).
type Manager struct {
	mu            sync.RWMutex
	ids           *idGenerator
	workbases     []*Workbase // oldest first
	byID          map[uint64]*Workbase
	current       *Workbase
	blockChangeID uint64 // id of the first workbase minted for the current block
}

// NewManager constructs an empty Manager. seed should be the process start
// time, used only to seed the monotone id generator's high bits.
func NewManager(seed time.Time) *Manager {
	return &Manager{
		ids:  newIDGenerator(seed),
		byID: make(map[uint64]*Workbase),
	}
}

// IngestBase builds a brand new workbase from a full template — a new block
// height, a prevhash change, or any other update the generator decided
// warrants a fresh coinbase. It returns the new workbase and whether the
// previous current workbase was on a different block (a "clean jobs"
// signal and a trigger to purge share dedupe state for the old block).
func (m *Manager) IngestBase(tmpl BaseTemplate, now time.Time) (wb *Workbase, blockChanged bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wb = &Workbase{
		ID:              m.ids.next(),
		GenTime:         now,
		NetworkDiff:     tmpl.NetworkDiff,
		Height:          tmpl.Height,
		PrevHash:        tmpl.PrevHash,
		Version:         tmpl.Version,
		NBit:            tmpl.NBit,
		Flags:           append([]byte(nil), tmpl.Flags...),
		CoinbaseValue:   tmpl.CoinbaseValue,
		Enonce1Const:    append([]byte(nil), tmpl.Enonce1Const...),
		Enonce1ConstLen: len(tmpl.Enonce1Const),
		Enonce1VarLen:   tmpl.Enonce1VarLen,
		Enonce2VarLen:   tmpl.Enonce2VarLen,
		UserWorkbases:   make(map[int64]*UserWorkbase),
	}
	binaryPutNTime(&wb.NTimeHex, tmpl.NTime)
	wb.NTime32 = ntime32(wb.NTimeHex)
	wb.MerkleBranch = merkle.BuildBranch(tmpl.TxHashes)
	wb.TxHashes = tmpl.TxHashes
	wb.RawTxnData = append([]byte(nil), tmpl.RawTxnData...)

	wb.Coinb1, wb.Coinb2, wb.ScriptLenOffset, wb.GenOffset = BuildCoinbase(BuildParams{
		Height:           tmpl.Height,
		Flags:            tmpl.Flags,
		GenTime:          now,
		Enonce1VarLen:    tmpl.Enonce1VarLen,
		Enonce2VarLen:    tmpl.Enonce2VarLen,
		Signature:        tmpl.Signature,
		CoinbaseValue:    tmpl.CoinbaseValue,
		GenerationScript: tmpl.GenerationScript,
		DonationValid:    tmpl.DonationValid,
		DonationScript:   tmpl.DonationScript,
	})

	wb.HeaderTemplate = buildHeaderTemplate(wb.Version, wb.PrevHash, wb.NTimeHex, wb.NBit)

	blockChanged = m.current == nil || m.current.PrevHash != tmpl.PrevHash
	if blockChanged {
		m.blockChangeID = wb.ID
	}
	m.current = wb
	m.workbases = append(m.workbases, wb)
	m.byID[wb.ID] = wb

	m.ageAndEvictLocked(now)
	return wb, blockChanged
}

// IngestNotify refreshes the current workbase's transaction set and ntime
// without minting a new id or rebuilding the coinbase: the extranonce
// placeholders, generation outputs and script-length patch are unaffected
// by a transaction-set-only update.
func (m *Manager) IngestNotify(tmpl NotifyTemplate, now time.Time) *Workbase {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	wb := m.current
	binaryPutNTime(&wb.NTimeHex, tmpl.NTime)
	wb.NTime32 = ntime32(wb.NTimeHex)
	wb.MerkleBranch = merkle.BuildBranch(tmpl.TxHashes)
	wb.TxHashes = tmpl.TxHashes
	wb.RawTxnData = append([]byte(nil), tmpl.RawTxnData...)
	wb.HeaderTemplate = buildHeaderTemplate(wb.Version, wb.PrevHash, wb.NTimeHex, wb.NBit)
	return wb
}

// IngestDiff updates the current workbase's recorded network difficulty,
// used for pool statistics and the "network difficulty" status field; it
// does not affect share validation.
func (m *Manager) IngestDiff(networkDiff float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.NetworkDiff = networkDiff
	}
}

// Current returns the most recently ingested workbase, or nil if none has
// been ingested yet.
func (m *Manager) Current() *Workbase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// BlockChangeID returns the id of the oldest workbase still valid for the
// current block; a submission referencing an older id is stale (spec.md
// §4.6's "workbase id older than the current blockchange -> Stale").
func (m *Manager) BlockChangeID() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blockChangeID
}

// Find looks up a workbase by id, used when a share references a job id
// other than the current one.
func (m *Manager) Find(id uint64) (*Workbase, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wb, ok := m.byID[id]
	return wb, ok
}

// AgeAndEvict drops workbases outside the retention window, returning the
// evicted ids so callers can purge per-workbase share dedupe state.
func (m *Manager) AgeAndEvict(now time.Time) []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ageAndEvictLocked(now)
}

func (m *Manager) ageAndEvictLocked(now time.Time) []uint64 {
	if len(m.workbases) <= retentionCount {
		return nil
	}

	sort.Slice(m.workbases, func(i, j int) bool {
		return m.workbases[i].GenTime.Before(m.workbases[j].GenTime)
	})

	keepFrom := len(m.workbases) - retentionCount
	var evicted []uint64
	var kept []*Workbase
	for i, wb := range m.workbases {
		if i >= keepFrom || now.Sub(wb.GenTime) < retentionAge || wb == m.current {
			kept = append(kept, wb)
			continue
		}
		evicted = append(evicted, wb.ID)
		delete(m.byID, wb.ID)
	}
	m.workbases = kept
	return evicted
}
