// Package protocol defines the Stratum wire types shared by every component
// of the stratifier: the JSON request/response/notification envelopes, the
// method enum used for dispatch once a message has been parsed, and the
// share-error enumeration preserved across replies, logs and database
// events.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Request is an inbound Stratum line: {"id":1,"method":"mining.submit","params":[...]}.
type Request struct {
	ID     json.Number   `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// Response replies to a Request with the same id.
type Response struct {
	ID     json.Number `json:"id"`
	Result interface{} `json:"result"`
	Error  interface{} `json:"error"`
}

// Notification is a server-initiated message carrying no id.
type Notification struct {
	ID     interface{}   `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// ParseRequest decodes a single newline-delimited JSON line into a Request.
func ParseRequest(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("protocol: decode request: %w", err)
	}
	if req.Method == "" {
		return nil, fmt.Errorf("protocol: missing method")
	}
	return &req, nil
}

// Method is a tagged enum for stratum methods, parsed once at the fabric's
// receive-queue consumer instead of re-inspecting the raw string everywhere
// downstream (spec.md §9: "Dynamic JSON-driven dispatch should be a tagged
// method enum parsed once at the edge").
type Method int

const (
	MethodUnknown Method = iota
	MethodSubscribe
	MethodAuthorize
	MethodSubmit
	MethodSuggestDifficulty
	MethodGetTransactions
	MethodGetTxnHashes
	MethodPassthrough
)

var methodNames = map[string]Method{
	"mining.subscribe":         MethodSubscribe,
	"mining.authorize":         MethodAuthorize,
	"mining.auth":              MethodAuthorize,
	"mining.submit":            MethodSubmit,
	"mining.suggest_difficulty": MethodSuggestDifficulty,
	"mining.suggest":            MethodSuggestDifficulty,
	"mining.get_transactions":  MethodGetTransactions,
	"mining.get_txnhashes":     MethodGetTxnHashes,
	"mining.passthrough":       MethodPassthrough,
}

// MethodOf maps a raw method string to its tagged enum value.
func MethodOf(raw string) Method {
	if m, ok := methodNames[raw]; ok {
		return m
	}
	return MethodUnknown
}

// NewSubscribeResponse builds the mining.subscribe reply:
// [[["mining.notify", enonce1]], enonce1, nonce2len].
func NewSubscribeResponse(id json.Number, enonce1Hex string, nonce2Len int) *Response {
	return &Response{
		ID: id,
		Result: []interface{}{
			[]interface{}{
				[]interface{}{"mining.notify", enonce1Hex},
			},
			enonce1Hex,
			nonce2Len,
		},
		Error: nil,
	}
}

// NewBoolResponse builds a plain boolean result reply (authorize/submit).
func NewBoolResponse(id json.Number, ok bool) *Response {
	return &Response{ID: id, Result: ok, Error: nil}
}

// NewIntResponse builds an integer result reply (get_transactions count).
func NewIntResponse(id json.Number, n int) *Response {
	return &Response{ID: id, Result: n, Error: nil}
}

// NewStringResponse builds a string result reply (get_txnhashes).
func NewStringResponse(id json.Number, s string) *Response {
	return &Response{ID: id, Result: s, Error: nil}
}

// NewShareErrorResponse builds a false result with the share-error code and
// a human-readable reject reason, per spec.md §6.
func NewShareErrorResponse(id json.Number, se ShareError) *Response {
	return &Response{
		ID:     id,
		Result: false,
		Error:  []interface{}{int(se), se.String(), nil},
	}
}

// NewNotifyNotification builds mining.notify per spec.md §6.
func NewNotifyNotification(jobID, prevHash, coinb1Hex, coinb2Hex string, merkleHex []string, version, nbits, ntime string, cleanJobs bool) *Notification {
	return &Notification{
		Method: "mining.notify",
		Params: []interface{}{jobID, prevHash, coinb1Hex, coinb2Hex, merkleHex, version, nbits, ntime, cleanJobs},
	}
}

// NewSetDifficultyNotification builds mining.set_difficulty.
func NewSetDifficultyNotification(diff float64) *Notification {
	return &Notification{Method: "mining.set_difficulty", Params: []interface{}{diff}}
}

// NewReconnectNotification builds client.reconnect.
func NewReconnectNotification() *Notification {
	return &Notification{Method: "client.reconnect", Params: []interface{}{}}
}

// NewShowMessageNotification builds client.show_message.
func NewShowMessageNotification(text string) *Notification {
	return &Notification{Method: "client.show_message", Params: []interface{}{text}}
}

// NewPingNotification builds mining.ping (proxy-mode keepalive).
func NewPingNotification() *Notification {
	return &Notification{Method: "mining.ping", Params: []interface{}{}}
}

// Marshal serializes any of the three envelope types to a single JSON line.
func Marshal(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal: %w", err)
	}
	return append(b, '\n'), nil
}
