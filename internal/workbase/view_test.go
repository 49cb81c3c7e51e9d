package workbase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewProjectsTheFieldsTheValidatorNeeds(t *testing.T) {
	wb := &Workbase{
		ID:              7,
		NTime32:         0x61000000,
		Coinb1:          []byte{0x01},
		Coinb2:          []byte{0x02},
		Enonce1ConstLen: 4,
		Enonce1VarLen:   4,
		Enonce2VarLen:   4,
		MerkleBranch:    [][32]byte{{0xaa}},
	}
	wb.HeaderTemplate[0] = 0xff

	view := wb.View()

	assert.Equal(t, wb.ID, view.ID)
	assert.Equal(t, wb.NTime32, view.NTime32)
	assert.Equal(t, wb.HeaderTemplate, view.HeaderTemplate)
	assert.Equal(t, wb.MerkleBranch, view.MerkleBranch)
	assert.Equal(t, wb.Coinb1, view.Coinb1)
	assert.Equal(t, wb.Coinb2, view.Coinb2)
	assert.Equal(t, wb.Enonce1ConstLen, view.Enonce1ConstLen)
	assert.Equal(t, wb.Enonce1VarLen, view.Enonce1VarLen)
	assert.Equal(t, wb.Enonce2VarLen, view.Enonce2VarLen)
}
