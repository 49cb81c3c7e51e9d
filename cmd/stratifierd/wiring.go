package main

import (
	"database/sql"
	"encoding/hex"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ckpool-go/stratifier/internal/btcaddr"
	"github.com/ckpool-go/stratifier/internal/ckdb"
	"github.com/ckpool-go/stratifier/internal/config"
	"github.com/ckpool-go/stratifier/internal/workbase"
)

// openDB opens the Postgres handle the database-mode auth backend queries
// directly (spec.md §4.3).
func openDB(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.Database,
		cfg.Database.User, cfg.Database.Password, cfg.Database.SSLMode)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("stratifierd: open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MinConns)
	return db, nil
}

// buildDBSink assembles the ckdb sink chain: a rotating-file backend,
// optionally wrapped with a Redis mirror for the dashboard feed, wrapped
// in a QueueingSink so a database outage queues events instead of
// dropping them (spec.md §7).
func buildDBSink(cfg *config.Config, log *zap.Logger) (ckdb.Sink, error) {
	file := ckdb.NewFileSink(cfg.Pool.LogDir, cfg.Ckdb.Name)

	var base ckdb.Sink = file
	if cfg.Ckdb.MirrorRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		mirror := ckdb.NewRedisMirror(client, cfg.Redis.KeyPrefix)
		base = ckdb.NewMirroringSink(file, mirror)
	}

	return ckdb.NewQueueingSink(base, log.Sugar()), nil
}

// buildPoolIdentity derives the coinbase generation/donation scripts the
// Coinbase Builder splices into every workbase (spec.md §4.2) from the
// pool's configured payout and donation addresses.
func buildPoolIdentity(cfg *config.Config) (workbase.PoolIdentity, error) {
	genScript, err := btcaddr.ScriptToUser(cfg.Pool.PoolAddress)
	if err != nil {
		return workbase.PoolIdentity{}, fmt.Errorf("stratifierd: pool generation script: %w", err)
	}
	var enonce1Const []byte
	if cfg.Pool.Enonce1ConstHex != "" {
		enonce1Const, err = hex.DecodeString(cfg.Pool.Enonce1ConstHex)
		if err != nil {
			return workbase.PoolIdentity{}, fmt.Errorf("stratifierd: pool.enonce1_const_hex: %w", err)
		}
	}
	id := workbase.PoolIdentity{
		GenerationScript: genScript,
		Signature:        []byte(cfg.Pool.CoinbaseSignature),
		Enonce1Const:     enonce1Const,
	}
	if cfg.Pool.DonationAddress != "" {
		donScript, err := btcaddr.ScriptToUser(cfg.Pool.DonationAddress)
		if err != nil {
			return workbase.PoolIdentity{}, fmt.Errorf("stratifierd: donation script: %w", err)
		}
		id.DonationValid = true
		id.DonationScript = donScript
	}
	return id, nil
}
