package workbase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTemplate(height uint64, prevHash byte) BaseTemplate {
	var ph [32]byte
	ph[0] = prevHash
	var gen [25]byte
	return BaseTemplate{
		Height:        height,
		PrevHash:      ph,
		NTime:         time.Unix(1700000000, 0),
		CoinbaseValue: 625000000,
		Enonce1Const:  []byte{0x01, 0x02, 0x03, 0x04},
		Enonce1VarLen: 4,
		Enonce2VarLen: 4,
		GenerationScript: gen,
	}
}

func TestIngestBaseAssignsMonotoneIDs(t *testing.T) {
	m := NewManager(time.Unix(1700000000, 0))
	now := time.Unix(1700000001, 0)

	wb1, changed1 := m.IngestBase(sampleTemplate(100, 0xaa), now)
	wb2, changed2 := m.IngestBase(sampleTemplate(101, 0xbb), now.Add(time.Second))

	assert.True(t, changed1, "first workbase always signals a block change")
	assert.True(t, changed2)
	assert.Less(t, wb1.ID, wb2.ID)
	assert.Same(t, wb2, m.Current())
}

func TestIngestBaseSamePrevHashNoBlockChange(t *testing.T) {
	m := NewManager(time.Unix(1700000000, 0))
	now := time.Unix(1700000001, 0)

	m.IngestBase(sampleTemplate(100, 0xaa), now)
	_, changed := m.IngestBase(sampleTemplate(100, 0xaa), now.Add(time.Second))
	assert.False(t, changed)
}

func TestFindReturnsIngestedWorkbase(t *testing.T) {
	m := NewManager(time.Unix(1700000000, 0))
	wb, _ := m.IngestBase(sampleTemplate(100, 0xaa), time.Unix(1700000001, 0))

	got, ok := m.Find(wb.ID)
	require.True(t, ok)
	assert.Same(t, wb, got)

	_, ok = m.Find(wb.ID + 999)
	assert.False(t, ok)
}

func TestIngestNotifyUpdatesCurrentInPlace(t *testing.T) {
	m := NewManager(time.Unix(1700000000, 0))
	wb, _ := m.IngestBase(sampleTemplate(100, 0xaa), time.Unix(1700000001, 0))
	originalID := wb.ID

	updated := m.IngestNotify(NotifyTemplate{
		NTime:    time.Unix(1700000050, 0),
		TxHashes: [][32]byte{{0x01}, {0x02}},
	}, time.Unix(1700000051, 0))

	assert.Equal(t, originalID, updated.ID)
	assert.NotEqual(t, wb.NTime32, uint32(0))
	assert.Len(t, updated.MerkleBranch, 2)
}

func TestAgeAndEvictKeepsRetentionCountRegardlessOfAge(t *testing.T) {
	m := NewManager(time.Unix(1700000000, 0))
	base := time.Unix(1700000000, 0)

	var ids []uint64
	for i := 0; i < 5; i++ {
		wb, _ := m.IngestBase(sampleTemplate(uint64(100+i), byte(i)), base.Add(time.Duration(i)*time.Second))
		ids = append(ids, wb.ID)
	}

	// Ingested a second apart, so IngestBase's own aging keeps all five; ten
	// hours later every one is past the retention age, and only the newest
	// retentionCount survive plus whichever is current.
	evicted := m.AgeAndEvict(base.Add(10 * time.Hour))
	assert.NotEmpty(t, evicted)

	_, stillThere := m.Find(ids[len(ids)-1])
	assert.True(t, stillThere, "current workbase must never be evicted")
}

func TestAgeAndEvictKeepsRecentEvenBeyondRetentionCount(t *testing.T) {
	m := NewManager(time.Unix(1700000000, 0))
	now := time.Unix(1700000000, 0)

	for i := 0; i < 5; i++ {
		m.IngestBase(sampleTemplate(uint64(100+i), byte(i)), now.Add(time.Duration(i)*time.Second))
	}

	evicted := m.AgeAndEvict(now.Add(5 * time.Second))
	assert.Empty(t, evicted, "workbases younger than the retention age are kept even past the count")
}

func TestIngestDiffUpdatesCurrentOnly(t *testing.T) {
	m := NewManager(time.Unix(1700000000, 0))
	m.IngestBase(sampleTemplate(100, 0xaa), time.Unix(1700000001, 0))

	m.IngestDiff(123456.0)
	assert.Equal(t, 123456.0, m.Current().NetworkDiff)
}

func TestBlockChangeIDAdvancesOnlyOnBlockChange(t *testing.T) {
	m := NewManager(time.Unix(1700000000, 0))
	now := time.Unix(1700000001, 0)

	wb1, _ := m.IngestBase(sampleTemplate(100, 0xaa), now)
	assert.Equal(t, wb1.ID, m.BlockChangeID())

	_, changed := m.IngestBase(sampleTemplate(100, 0xaa), now.Add(time.Second))
	assert.False(t, changed, "same prevhash is not a block change")
	assert.Equal(t, wb1.ID, m.BlockChangeID(), "blockchange id does not move without a real block change")

	wb3, changed3 := m.IngestBase(sampleTemplate(101, 0xbb), now.Add(2*time.Second))
	assert.True(t, changed3)
	assert.Equal(t, wb3.ID, m.BlockChangeID())
}
