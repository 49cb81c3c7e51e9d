package fabric

import (
	"context"
	"time"

	"github.com/ckpool-go/stratifier/internal/protocol"
	"github.com/ckpool-go/stratifier/internal/registry"
	"github.com/ckpool-go/stratifier/internal/validator"
)

// ReceiveItem is a raw inbound line paired with the connection it arrived
// on, queued for the dispatcher to parse and route (spec.md §2).
type ReceiveItem struct {
	Client *registry.Client
	Line   []byte
}

// SendItem is an outbound payload destined for one or more clients. A nil
// Client means broadcast to every subscribed client (a new job or diff
// change), matching spec.md §4.8's distinction between a targeted reply
// and a pool-wide notify.
type SendItem struct {
	Client  *registry.Client // nil for broadcast
	Payload []byte
}

// ShareItem is a parsed mining.submit queued for classification. ShapeErr
// is set when the params array itself failed shape validation (spec.md
// §6's NotArray/InvalidSize/NoUsername/NoJobId/NoNonce2/NoNtime/NoNonce
// codes); the share queue consumer rejects immediately on a non-zero
// ShapeErr instead of handing the (incomplete) Submission to the validator.
type ShareItem struct {
	Client     *registry.Client
	WorkerName string
	Submission validator.Submission
	ShapeErr   protocol.ShareError
	RequestID  interface{}
	Received   time.Time
}

// AuthItem is a parsed mining.authorize queued for the auth backend.
// ShapeErr is set when the params array failed shape validation.
type AuthItem struct {
	Client     *registry.Client
	WorkerName string
	Password   string
	ShapeErr   protocol.ShareError
	RequestID  interface{}
}

// DBItem is an event destined for the database sink (spec.md §6's idname
// enumeration: authorise, workinfo, ageworkinfo, shares, shareerror,
// poolstats, userstats, block, addrauth, heartbeat).
type DBItem struct {
	IDName    string
	Payload   interface{}
	Submitted time.Time
}

// TxnItem is a get_transactions/get_txnhashes request queued so the
// generator's reply doesn't block the client's connection goroutine.
type TxnItem struct {
	Client    *registry.Client
	WorkbaseID uint64
	RequestID interface{}
	HashesOnly bool
}

// Fabric owns the six single-consumer queues spec.md §4.8 names, each
// sized independently since their producers and consumers run at very
// different rates (shares arrive far faster than auth or database
// events).
type Fabric struct {
	Receive *Queue[ReceiveItem]
	Send    *Queue[SendItem]
	Share   *Queue[ShareItem]
	Auth    *Queue[AuthItem]
	Database *Queue[DBItem]
	Txn     *Queue[TxnItem]
}

// New constructs a Fabric with default queue capacities.
func New() *Fabric {
	return &Fabric{
		Receive:  NewQueue[ReceiveItem](0),
		Send:     NewQueue[SendItem](0),
		Share:    NewQueue[ShareItem](0),
		Auth:     NewQueue[AuthItem](0),
		Database: NewQueue[DBItem](0),
		Txn:      NewQueue[TxnItem](0),
	}
}

// DatabaseQueueDepth reports the database queue's current length, the
// signal the heartbeat consumer uses to suppress its own 1s tick while a
// backlog is draining (spec.md §4.9).
func (f *Fabric) DatabaseQueueDepth() int {
	return f.Database.Len()
}

// ClassifyMethod parses a raw Stratum line's method without decoding its
// full params, used by the receive-queue consumer to route to the share,
// auth, or txn queue (spec.md §9: "dynamic JSON dispatch parsed once").
func ClassifyMethod(line []byte) (protocol.Method, *protocol.Request, error) {
	req, err := protocol.ParseRequest(line)
	if err != nil {
		return protocol.MethodUnknown, nil, err
	}
	return protocol.MethodOf(req.Method), req, nil
}

// Dispatch routes one received line to the appropriate fabric queue based
// on its Stratum method, matching spec.md §2's data flow: inbound JSON ->
// receive queue -> dispatcher classifies by method -> {authorize} -> auth
// queue; {submit} -> share queue; {get_transactions, get_txnhashes} -> txn
// queue; every other method (subscribe included) -> back onto the receive
// queue.
func (f *Fabric) Dispatch(ctx context.Context, item ReceiveItem) error {
	method, req, err := ClassifyMethod(item.Line)
	if err != nil {
		return err
	}
	switch method {
	case protocol.MethodAuthorize:
		workerName, password, se := ParseAuthParams(req.Params)
		return f.Auth.Push(ctx, AuthItem{
			Client:     item.Client,
			WorkerName: workerName,
			Password:   password,
			ShapeErr:   se,
			RequestID:  req.ID,
		})
	case protocol.MethodGetTransactions, protocol.MethodGetTxnHashes:
		return f.Txn.Push(ctx, TxnItem{Client: item.Client, RequestID: req.ID, HashesOnly: method == protocol.MethodGetTxnHashes})
	case protocol.MethodSubmit:
		workerName, sub, se := ParseSubmitParams(req.Params)
		return f.Share.Push(ctx, ShareItem{
			Client:     item.Client,
			WorkerName: workerName,
			Submission: sub,
			ShapeErr:   se,
			RequestID:  req.ID,
			Received:   time.Now(),
		})
	default:
		return f.Receive.Push(ctx, item)
	}
}

// Broadcast enqueues payload as a send item for every live client, built
// once under registry.Registry's single lock acquisition rather than one
// lock/unlock per recipient (spec.md §4.8).
func (f *Fabric) Broadcast(ctx context.Context, reg *registry.Registry, payload []byte) {
	reg.Broadcast(func(c *registry.Client) {
		f.Send.TryPush(SendItem{Client: c, Payload: payload})
	})
}
