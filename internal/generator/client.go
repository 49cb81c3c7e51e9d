package generator

import (
	"context"
	"fmt"
)

// Client is the generator-facing surface the stratifier drives: the
// template-refresh poller (spec.md §4.10), the share validator's
// block-solve path (spec.md §4.6), and the registry's address-check
// round trip (spec.md §6's `checkaddr:<addr>`).
type Client interface {
	GetBase(ctx context.Context) (string, error)
	GetDiff(ctx context.Context) (string, error)
	GetSubscribe(ctx context.Context) (string, error)
	GetNotify(ctx context.Context) (string, error)
	GetBest(ctx context.Context) (string, error)
	GetLast(ctx context.Context) (string, error)
	CheckAddr(ctx context.Context, address string) (string, error)
	SubmitBlock(ctx context.Context, command string) (string, error)
	Submit(ctx context.Context, payload string) (string, error)
	Ping(ctx context.Context) error
}

// priorityGeneratorClient implements Client over a PriorityClient,
// assigning each command a priority: base/diff polls and submitblock at
// GenPriority; best/last hash polls, address checks, pings and proxy-mode
// upstream share forwards (Submit) at GenLax.
type priorityGeneratorClient struct {
	pc *PriorityClient
}

// NewClient wraps transport in a prioritized Client.
func NewClient(ctx context.Context, transport Transport) Client {
	return &priorityGeneratorClient{pc: NewPriorityClient(ctx, transport)}
}

func (g *priorityGeneratorClient) GetBase(ctx context.Context) (string, error) {
	return g.pc.Enqueue(ctx, GenPriority, "getbase")
}

func (g *priorityGeneratorClient) GetDiff(ctx context.Context) (string, error) {
	return g.pc.Enqueue(ctx, GenPriority, "getdiff")
}

func (g *priorityGeneratorClient) GetSubscribe(ctx context.Context) (string, error) {
	return g.pc.Enqueue(ctx, GenPriority, "getsubscribe")
}

func (g *priorityGeneratorClient) GetNotify(ctx context.Context) (string, error) {
	return g.pc.Enqueue(ctx, GenPriority, "getnotify")
}

func (g *priorityGeneratorClient) GetBest(ctx context.Context) (string, error) {
	return g.pc.Enqueue(ctx, GenLax, "getbest")
}

func (g *priorityGeneratorClient) GetLast(ctx context.Context) (string, error) {
	return g.pc.Enqueue(ctx, GenLax, "getlast")
}

func (g *priorityGeneratorClient) CheckAddr(ctx context.Context, address string) (string, error) {
	return g.pc.Enqueue(ctx, GenLax, fmt.Sprintf("checkaddr:%s", address))
}

func (g *priorityGeneratorClient) SubmitBlock(ctx context.Context, command string) (string, error) {
	return g.pc.Enqueue(ctx, GenPriority, command)
}

func (g *priorityGeneratorClient) Submit(ctx context.Context, payload string) (string, error) {
	return g.pc.Enqueue(ctx, GenLax, payload)
}

func (g *priorityGeneratorClient) Ping(ctx context.Context) error {
	_, err := g.pc.Enqueue(ctx, GenLax, "ping")
	return err
}
