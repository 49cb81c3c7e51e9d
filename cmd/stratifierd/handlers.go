package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ckpool-go/stratifier/internal/ckdb"
	"github.com/ckpool-go/stratifier/internal/fabric"
	"github.com/ckpool-go/stratifier/internal/protocol"
	"github.com/ckpool-go/stratifier/internal/registry"
	"github.com/ckpool-go/stratifier/internal/validator"
	"github.com/ckpool-go/stratifier/internal/vardiff"
	"github.com/ckpool-go/stratifier/internal/workbase"
)

// reply serializes v and enqueues it as a send item targeted at c.
func (s *Server) reply(c *registry.Client, v interface{}) {
	b, err := protocol.Marshal(v)
	if err != nil {
		s.log.Error("marshal reply", zap.Error(err))
		return
	}
	s.fabric.Send.TryPush(fabric.SendItem{Client: c, Payload: b})
}

// emitDB enqueues a database event, matching spec.md §6's idname
// enumeration. TryPush never blocks, so emitDB is safe to call from any
// handler; the event is dropped when the database queue is full.
func (s *Server) emitDB(ctx context.Context, idname ckdb.IDName, payload interface{}) {
	s.fabric.Database.TryPush(fabric.DBItem{IDName: string(idname), Payload: payload, Submitted: time.Now()})
}

// runReceive consumes mining.subscribe, mining.suggest_difficulty and
// mining.passthrough — the methods the dispatcher doesn't route to a
// dedicated queue (spec.md §2).
func (s *Server) runReceive(ctx context.Context) {
	s.fabric.Receive.Run(ctx, func(item fabric.ReceiveItem) {
		req, err := protocol.ParseRequest(item.Line)
		if err != nil {
			return
		}
		switch protocol.MethodOf(req.Method) {
		case protocol.MethodSubscribe:
			s.handleSubscribe(item.Client, req)
		case protocol.MethodSuggestDifficulty:
			s.handleSuggestDifficulty(item.Client, req)
		case protocol.MethodPassthrough:
			s.handlePassthrough(item.Client, req)
		}
	})
}

func (s *Server) handleSubscribe(c *registry.Client, req *protocol.Request) {
	var sessionID string
	if len(req.Params) >= 2 {
		sessionID, _ = req.Params[1].(string)
	}
	client, err := s.registry.Subscribe(c.ID, sessionID, c.PeerAddr, time.Now())
	if err != nil {
		s.log.Warn("subscribe failed", zap.Error(err))
		return
	}
	s.pending.Delete(c.ID)

	wb := s.workbases.Current()
	nonce2Len := 8
	if wb != nil {
		nonce2Len = wb.Enonce2VarLen
	}
	s.reply(client, protocol.NewSubscribeResponse(req.ID, client.Enonce1Hex, nonce2Len))
	if wb != nil {
		s.sendNotify(client, wb, true)
		s.reply(client, protocol.NewSetDifficultyNotification(client.Diff))
	}
}

func (s *Server) handleSuggestDifficulty(c *registry.Client, req *protocol.Request) {
	if len(req.Params) < 1 {
		return
	}
	switch v := req.Params[0].(type) {
	case float64:
		c.Mu.Lock()
		c.SuggestDiff = v
		c.Mu.Unlock()
	}
}

func (s *Server) handlePassthrough(c *registry.Client, req *protocol.Request) {
	s.registry.DropClient(c.ID, s.cfg.Pool.Mode == "server" || s.cfg.Pool.Mode == "solo")
	_ = s.connector.Passthrough(c.ID)
}

// runAuth consumes mining.authorize/mining.auth (spec.md §4.3).
func (s *Server) runAuth(ctx context.Context) {
	s.fabric.Auth.Run(ctx, func(item fabric.AuthItem) {
		if item.ShapeErr != protocol.ShareErrNone {
			s.reply(item.Client, protocol.NewBoolResponse(jsonNumber(item.RequestID), false))
			return
		}
		res, err := s.registry.Authorise(ctx, item.Client.ID, item.WorkerName, item.Password, "", s.authBackend)
		ok := err == nil
		s.reply(item.Client, protocol.NewBoolResponse(jsonNumber(item.RequestID), ok))
		if ok {
			s.emitDB(ctx, ckdb.IDNameAuthorise, map[string]interface{}{
				"username":   res.Username,
				"workername": item.WorkerName,
				"delayed":    res.Delayed,
			})
		}
	})
}

// runShare consumes mining.submit (spec.md §4.6, §4.7).
func (s *Server) runShare(ctx context.Context) {
	s.fabric.Share.Run(ctx, func(item fabric.ShareItem) {
		s.classifyAndReply(ctx, item)
	})
}

func (s *Server) classifyAndReply(ctx context.Context, item fabric.ShareItem) {
	if item.ShapeErr != protocol.ShareErrNone {
		s.reply(item.Client, protocol.NewShareErrorResponse(jsonNumber(item.RequestID), item.ShapeErr))
		s.emitDB(ctx, ckdb.IDNameShareerror, map[string]interface{}{"error": item.ShapeErr.String()})
		return
	}

	wb, found := s.workbases.Find(item.Submission.WorkbaseID)
	var view validator.WorkbaseView
	if found {
		view = wb.View()
	}

	effDiff := vardiffEffectiveDiff(item.Client, item.Submission.WorkbaseID)
	networkDiff := 0.0
	var enonce1Const []byte
	if found {
		networkDiff = wb.NetworkDiff
		enonce1Const = wb.Enonce1Const
	} else if cur := s.workbases.Current(); cur != nil {
		networkDiff = cur.NetworkDiff
	}

	result, err := validator.Classify(view, s.workbases.BlockChangeID(), enonce1Const, item.Client.Enonce1, item.Submission, effDiff, networkDiff, s.shares, found)
	if err != nil {
		s.reply(item.Client, protocol.NewShareErrorResponse(jsonNumber(item.RequestID), protocol.ShareErrInvalidSize))
		return
	}

	se := shareErrorFor(result.Outcome)
	accepted := se == protocol.ShareErrNone

	if accepted {
		item.Client.RecordAccept()
	} else {
		n := item.Client.RecordReject(item.Received)
		if n >= 2 {
			s.registry.DropClient(item.Client.ID, true)
			_ = s.connector.DropClient(item.Client.ID)
		}
	}

	s.reply(item.Client, protocol.NewBoolResponse(jsonNumber(item.RequestID), accepted))
	s.aggregator.RecordShare(accepted, result.ShareDiff)

	currentID := uint64(0)
	if cur := s.workbases.Current(); cur != nil {
		currentID = cur.ID
	}
	retarget := s.vardiff.OnShareAccounted(item.Client, item.Client.Worker, item.Client.User, result.ShareDiff, networkDiff, currentID, item.Received)
	if retarget.Retargeted {
		s.reply(item.Client, protocol.NewSetDifficultyNotification(retarget.NewDiff))
	}

	if !accepted {
		s.emitDB(ctx, ckdb.IDNameShareerror, map[string]interface{}{
			"workbase_id": item.Submission.WorkbaseID,
			"error":       se.String(),
		})
	} else {
		s.emitDB(ctx, ckdb.IDNameShares, map[string]interface{}{
			"workbase_id": item.Submission.WorkbaseID,
			"diff":        result.ShareDiff,
			"hash":        result.HashHex,
		})
	}

	if result.IsBlockSolve && found {
		s.handleBlockSolve(ctx, wb, result)
	}
}

func (s *Server) handleBlockSolve(ctx context.Context, wb *workbase.Workbase, result validator.Result) {
	sol := &validator.BlockSolution{
		Hash:        result.HashHex,
		Header:      result.Header,
		TxnCount:    uint64(len(wb.TxHashes)) + 1,
		CoinbaseHex: hex.EncodeToString(result.CoinbaseBytes),
		RawTxnData:  wb.RawTxnData,
		Height:      wb.Height,
	}
	s.blocks.Add(sol)
	if _, err := s.generator.SubmitBlock(ctx, sol.SubmitBlockCommand()); err != nil {
		s.log.Error("submitblock failed", zap.Error(err))
	}
	s.emitDB(ctx, ckdb.IDNameBlock, map[string]interface{}{
		"hash":   sol.Hash,
		"height": sol.Height,
	})
}

// runTxn consumes mining.get_transactions/mining.get_txnhashes (spec.md §6).
func (s *Server) runTxn(ctx context.Context) {
	s.fabric.Txn.Run(ctx, func(item fabric.TxnItem) {
		wb, found := s.workbases.Find(item.WorkbaseID)
		if !found {
			wb = s.workbases.Current()
		}
		if wb == nil {
			s.reply(item.Client, protocol.NewIntResponse(jsonNumber(item.RequestID), 0))
			return
		}
		if item.HashesOnly {
			now := time.Now()
			if v, ok := s.lastTxnReqByConn.Load(item.Client.ID); ok {
				if now.Sub(v.(time.Time)) < s.cfg.Pool.UpdateInterval {
					s.reply(item.Client, protocol.NewStringResponse(jsonNumber(item.RequestID), ""))
					return
				}
			}
			s.lastTxnReqByConn.Store(item.Client.ID, now)
			s.reply(item.Client, protocol.NewStringResponse(jsonNumber(item.RequestID), concatHashesHex(wb.TxHashes)))
			return
		}
		s.reply(item.Client, protocol.NewIntResponse(jsonNumber(item.RequestID), len(wb.TxHashes)))
	})
}

// runSend drains the send queue into the connector (spec.md §4.8).
func (s *Server) runSend(ctx context.Context) {
	s.fabric.Send.Run(ctx, func(item fabric.SendItem) {
		if item.Client == nil {
			s.registry.Broadcast(func(c *registry.Client) {
				_ = s.connector.Send(c.ID, item.Payload)
			})
			return
		}
		if err := s.connector.Send(item.Client.ID, item.Payload); err != nil {
			s.log.Debug("send failed", zap.Uint64("client_id", item.Client.ID), zap.Error(err))
		}
	})
}

// runDatabase drains the database queue into the ckdb sink (spec.md §6,
// §7).
func (s *Server) runDatabase(ctx context.Context) {
	s.fabric.Database.Run(ctx, func(item fabric.DBItem) {
		if err := s.dbSink.Write(ctx, ckdb.Event{IDName: ckdb.IDName(item.IDName), Payload: item.Payload}); err != nil {
			s.log.Warn("database write failed", zap.Error(err))
		}
	})
}

func shareErrorFor(o validator.Outcome) protocol.ShareError {
	switch o {
	case validator.Accept:
		return protocol.ShareErrNone
	case validator.StaleUnknown:
		return protocol.ShareErrInvalidJobID
	case validator.Stale:
		return protocol.ShareErrStale
	case validator.NtimeInvalid:
		return protocol.ShareErrNTimeInvalid
	case validator.HighDiff:
		return protocol.ShareErrHighDiff
	case validator.Dupe:
		return protocol.ShareErrDupe
	default:
		return protocol.ShareErrInvalidSize
	}
}

func jsonNumber(id interface{}) json.Number {
	if n, ok := id.(json.Number); ok {
		return n
	}
	return json.Number("0")
}

func vardiffEffectiveDiff(c *registry.Client, submittedWorkbaseID uint64) float64 {
	return vardiff.EffectiveAcceptDiff(c, submittedWorkbaseID)
}

func concatHashesHex(hashes [][32]byte) string {
	out := make([]byte, 0, len(hashes)*64)
	for _, h := range hashes {
		out = append(out, []byte(hex.EncodeToString(h[:]))...)
	}
	return string(out)
}
