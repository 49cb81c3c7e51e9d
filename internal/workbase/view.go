package workbase

import "github.com/ckpool-go/stratifier/internal/validator"

// View projects wb down to the narrow validator.WorkbaseView the Share
// Validator needs, keeping package validator decoupled from the Template
// Manager's full layout (spec.md §4.6).
func (wb *Workbase) View() validator.WorkbaseView {
	return validator.WorkbaseView{
		ID:              wb.ID,
		NTime32:         wb.NTime32,
		HeaderTemplate:  wb.HeaderTemplate,
		MerkleBranch:    wb.MerkleBranch,
		Coinb1:          wb.Coinb1,
		Coinb2:          wb.Coinb2,
		Enonce1ConstLen: wb.Enonce1ConstLen,
		Enonce1VarLen:   wb.Enonce1VarLen,
		Enonce2VarLen:   wb.Enonce2VarLen,
	}
}
