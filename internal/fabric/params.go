package fabric

import (
	"strconv"

	"github.com/ckpool-go/stratifier/internal/protocol"
	"github.com/ckpool-go/stratifier/internal/validator"
)

// ParseAuthParams decodes a mining.authorize/mining.auth params array:
// [workername, password] (spec.md §6). password is optional; ckpool
// accepts a missing second element as an empty password.
func ParseAuthParams(params []interface{}) (workerName, password string, se protocol.ShareError) {
	if len(params) < 1 {
		return "", "", protocol.ShareErrNoUsername
	}
	workerName, ok := params[0].(string)
	if !ok || workerName == "" {
		return "", "", protocol.ShareErrNoUsername
	}
	if len(params) >= 2 {
		password, _ = params[1].(string)
	}
	return workerName, password, protocol.ShareErrNone
}

// ParseSubmitParams decodes a mining.submit params array: [worker_name,
// job_id, extranonce2, ntime, nonce] (spec.md §6), validating shape only —
// field content (hex parity, stale/dupe/high-diff classification) is the
// share validator's job.
func ParseSubmitParams(params []interface{}) (workerName string, sub validator.Submission, se protocol.ShareError) {
	if len(params) < 5 {
		return "", validator.Submission{}, protocol.ShareErrInvalidSize
	}
	workerName, ok := params[0].(string)
	if !ok || workerName == "" {
		return "", validator.Submission{}, protocol.ShareErrNoUsername
	}
	jobIDStr, ok := params[1].(string)
	if !ok || jobIDStr == "" {
		return "", validator.Submission{}, protocol.ShareErrNoJobID
	}
	jobID, err := strconv.ParseUint(jobIDStr, 16, 64)
	if err != nil {
		return "", validator.Submission{}, protocol.ShareErrInvalidJobID
	}
	enonce2Hex, ok := params[2].(string)
	if !ok || enonce2Hex == "" {
		return "", validator.Submission{}, protocol.ShareErrNoNonce2
	}
	ntimeHex, ok := params[3].(string)
	if !ok || ntimeHex == "" {
		return "", validator.Submission{}, protocol.ShareErrNoNTime
	}
	nonceHex, ok := params[4].(string)
	if !ok || nonceHex == "" {
		return "", validator.Submission{}, protocol.ShareErrNoNonce
	}
	return workerName, validator.Submission{
		WorkbaseID: jobID,
		Enonce2Hex: enonce2Hex,
		NTimeHex:   ntimeHex,
		NonceHex:   nonceHex,
	}, protocol.ShareErrNone
}
