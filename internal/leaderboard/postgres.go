package leaderboard

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/trivia/internal/domain"
)

// PostgresStore keeps the leaderboard in the trivia_leaderboard table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetRecord(ctx context.Context, userID string) (*domain.ScoreRecord, error) {
	const stmt = `SELECT user_id, score FROM trivia_leaderboard WHERE user_id = $1;`

	var r domain.ScoreRecord
	err := s.db.QueryRow(ctx, stmt, userID).Scan(&r.UserID, &r.Score)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}

	return &r, nil
}

// UpsertIncrement increments every user's score in one transaction. Rows are touched in
// sorted order so concurrent rounds lock them in the same order.
func (s *PostgresStore) UpsertIncrement(ctx context.Context, users domain.UserSet) (err error) {
	if len(users) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const stmt = `
INSERT INTO trivia_leaderboard (user_id, score)
VALUES ($1, 1)
ON CONFLICT (user_id) DO UPDATE SET score = trivia_leaderboard.score + 1;`

	for _, u := range users.Sorted() {
		if _, err = tx.Exec(ctx, stmt, u); err != nil {
			return fmt.Errorf("upsert score: user=%s: %w", u, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]domain.ScoreRecord, error) {
	const stmt = `SELECT user_id, score FROM trivia_leaderboard ORDER BY score DESC, user_id;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.ScoreRecord, error) {
		var sc domain.ScoreRecord
		if err := r.Scan(&sc.UserID, &sc.Score); err != nil {
			return domain.ScoreRecord{}, err
		}
		return sc, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	return records, nil
}
