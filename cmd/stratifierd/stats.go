package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ckpool-go/stratifier/internal/protocol"
	"github.com/ckpool-go/stratifier/internal/registry"
)

// runStats drives the Stats & Heartbeat component's three independent
// cadences (spec.md §4.9): a 20s accounting tick that also flushes one
// user-stats phase, a 1-minute status-file write paired with the
// idle-client scan, and a 1s heartbeat.
func (s *Server) runStats(ctx context.Context) {
	tick := time.NewTicker(20 * time.Second)
	defer tick.Stop()
	minute := time.NewTicker(time.Minute)
	defer minute.Stop()
	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			s.aggregator.Tick(now)
			s.exporter.Refresh()
			if err := s.aggregator.FlushUserPhase(ctx, now); err != nil {
				s.log.Warn("flush user phase failed", zap.Error(err))
			}
		case now := <-minute.C:
			if err := s.aggregator.WriteStatusFiles(now); err != nil {
				s.log.Warn("write status files failed", zap.Error(err))
			}
			s.aggregator.NotifyIdleClients(now, func(c *registry.Client) {
				s.reply(c, protocol.NewShowMessageNotification("This connection has been idle for too long"))
			})
		case now := <-heartbeat.C:
			depth := s.fabric.DatabaseQueueDepth()
			if err := s.aggregator.Heartbeat(ctx, now, depth); err != nil {
				s.log.Debug("heartbeat write skipped", zap.Error(err))
			}
		}
	}
}
