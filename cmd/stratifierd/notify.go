package main

import (
	"context"
	"time"

	"github.com/ckpool-go/stratifier/internal/protocol"
	"github.com/ckpool-go/stratifier/internal/registry"
	"github.com/ckpool-go/stratifier/internal/workbase"
)

// sendNotify builds and enqueues mining.notify for c against wb, using the
// per-user coinbase variant in solo mode (spec.md §6, §4.2).
func (s *Server) sendNotify(c *registry.Client, wb *workbase.Workbase, cleanJobs bool) {
	f := wb.NotifyFields()
	coinb2Hex := f.Coinb2Hex
	if s.cfg.Pool.Mode == "solo" && c.User != nil {
		coinb2Hex = wb.UserCoinb2Hex(c.User.ID)
	}
	notif := protocol.NewNotifyNotification(f.JobIDHex, f.PrevHash, f.Coinb1Hex, coinb2Hex, f.MerkleHex, f.VersionHex, f.NBitHex, f.NTimeHex, cleanJobs)
	s.reply(c, notif)
}

// broadcastNotify sends mining.notify to every subscribed client (spec.md
// §4.8's pool-wide notify path).
func (s *Server) broadcastNotify(wb *workbase.Workbase, cleanJobs bool) {
	s.registry.Broadcast(func(c *registry.Client) {
		if !c.Subscribed {
			return
		}
		s.sendNotify(c, wb, cleanJobs)
	})
}

// ingestBase pulls a fresh template from the generator, rebuilds the
// current workbase, purges stale share-dedupe state on a block change, and
// broadcasts the new job (spec.md §4.1, §4.10).
func (s *Server) ingestBase(ctx context.Context) error {
	raw, err := s.generator.GetBase(ctx)
	if err != nil {
		return err
	}
	rb, err := workbase.ParseRawBase([]byte(raw))
	if err != nil {
		return err
	}
	tmpl, err := rb.ToBaseTemplate(s.identity)
	if err != nil {
		return err
	}
	wb, blockChanged := s.workbases.IngestBase(tmpl, time.Now())
	if blockChanged {
		s.shares.PurgeBelow(s.workbases.BlockChangeID())
	}
	s.broadcastNotify(wb, blockChanged)
	return nil
}

// ingestNotify refreshes the current workbase's transaction set without
// minting a new job id (spec.md §4.1).
func (s *Server) ingestNotify(ctx context.Context) error {
	raw, err := s.generator.GetNotify(ctx)
	if err != nil {
		return err
	}
	rn, err := workbase.ParseRawNotify([]byte(raw))
	if err != nil {
		return err
	}
	tmpl, err := rn.ToNotifyTemplate()
	if err != nil {
		return err
	}
	wb := s.workbases.IngestNotify(tmpl, time.Now())
	if wb == nil {
		return nil
	}
	s.broadcastNotify(wb, false)
	return nil
}
