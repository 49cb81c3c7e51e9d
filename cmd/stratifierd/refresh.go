package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// runRefresh drives the generator polling loop spec.md §4.10 describes: an
// update_interval ticker pulling a fresh base template, and a faster
// blockpoll ticker watching for a new best-block hash so a block change is
// picked up well inside update_interval.
func (s *Server) runRefresh(ctx context.Context) {
	updateTicker := time.NewTicker(s.cfg.Pool.UpdateInterval)
	defer updateTicker.Stop()
	blockTicker := time.NewTicker(s.cfg.Pool.BlockPoll)
	defer blockTicker.Stop()

	var lastBest string
	backoff := time.Second

	if err := s.ingestBase(ctx); err != nil {
		s.log.Error("initial base ingest failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-updateTicker.C:
			if err := s.ingestBase(ctx); err != nil {
				s.log.Warn("base refresh failed, retrying with backoff", zap.Error(err))
				s.retryBackoff(ctx, &backoff)
			} else {
				backoff = time.Second
			}
		case <-blockTicker.C:
			best, err := s.generator.GetBest(ctx)
			if err != nil {
				s.log.Debug("getbest failed", zap.Error(err))
				continue
			}
			if best != "" && best != lastBest {
				lastBest = best
				if err := s.ingestBase(ctx); err != nil {
					s.log.Warn("base refresh on block change failed", zap.Error(err))
				}
			}
		}
	}
}

// retryBackoff sleeps for the current backoff (capped at 30s) and doubles
// it, implementing spec.md §7's "generator outages are retried with
// backoff on the polling loop".
func (s *Server) retryBackoff(ctx context.Context, backoff *time.Duration) {
	select {
	case <-time.After(*backoff):
	case <-ctx.Done():
	}
	*backoff *= 2
	if *backoff > 30*time.Second {
		*backoff = 30 * time.Second
	}
}
