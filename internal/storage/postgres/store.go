package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rewardscope/internal/model"
)

// Store provides Postgres persistence for reward history and the claim
// attempt ledger.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertRewards inserts or updates reward records.
func (s *Store) UpsertRewards(ctx context.Context, records []model.RewardRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(`
			INSERT INTO reward_records (
				id, owner_address, chain_id, token, level, amount, status, distributed_at, tx_hash, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			ON CONFLICT (id, owner_address)
			DO UPDATE SET
				status = EXCLUDED.status,
				tx_hash = EXCLUDED.tx_hash,
				distributed_at = EXCLUDED.distributed_at,
				updated_at = now()
		`,
			record.ID,
			record.Owner,
			int64(record.ChainID),
			record.Token,
			record.Level,
			record.Amount.String(),
			string(record.Status),
			record.DistributedAt,
			nullIfEmpty(record.TxHash),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// RecordClaimAttempt upserts one claim attempt into the ledger.
func (s *Store) RecordClaimAttempt(ctx context.Context, attempt model.ClaimAttempt) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO claim_attempts (
			id, owner_address, chain_id, record_ids, tx_hash, state, submitted_at, resolved_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE
		SET tx_hash = EXCLUDED.tx_hash,
			state = EXCLUDED.state,
			resolved_at = EXCLUDED.resolved_at,
			updated_at = now()
	`,
		attempt.ID,
		attempt.Owner,
		int64(attempt.ChainID),
		attempt.RecordIDs,
		nullIfEmpty(attempt.TxHash),
		string(attempt.State),
		attempt.SubmittedAt,
		attempt.ResolvedAt,
	)
	return err
}

// ListClaimAttempts returns the most recent claim attempts for an owner.
func (s *Store) ListClaimAttempts(ctx context.Context, owner string, limit int) ([]model.ClaimAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_address, chain_id, record_ids, COALESCE(tx_hash, ''), state, submitted_at, resolved_at
		FROM claim_attempts
		WHERE owner_address = $1
		ORDER BY submitted_at DESC
		LIMIT $2
	`, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.ClaimAttempt
	for rows.Next() {
		var attempt model.ClaimAttempt
		var chainID int64
		var state string
		if err := rows.Scan(
			&attempt.ID,
			&attempt.Owner,
			&chainID,
			&attempt.RecordIDs,
			&attempt.TxHash,
			&state,
			&attempt.SubmittedAt,
			&attempt.ResolvedAt,
		); err != nil {
			return nil, err
		}
		attempt.ChainID = uint64(chainID)
		attempt.State = model.AttemptState(state)
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

func nullIfEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
