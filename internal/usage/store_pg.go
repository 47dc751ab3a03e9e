package usage

import (
	"context"
	"database/sql"
	"errors"
)

type pgStore struct {
	DB     *sql.DB
	policy policy
}

func newPGStore(db *sql.DB, p policy) *pgStore {
	return &pgStore{DB: db, policy: p}
}

func (s *pgStore) EnsurePeriod(ctx context.Context, key string) (u Usage, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	u, err = s.lockAndEnsure(ctx, tx, key)
	if err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) Consume(ctx context.Context, key string, n int) (u Usage, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	u, err = s.lockAndEnsure(ctx, tx, key)
	if err != nil {
		return Usage{}, err
	}
	if n > 0 {
		if u.Used+n > u.Limit {
			err = ErrLimitReached
			return u, err
		}
		u.Used += n
		if _, err = tx.ExecContext(ctx, `
UPDATE usage SET used = $1, updated_at = now() WHERE client_key = $2`, u.Used, key); err != nil {
			return Usage{}, err
		}
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) Release(ctx context.Context, key string, n int) (u Usage, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	u, err = s.lockAndEnsure(ctx, tx, key)
	if err != nil {
		return Usage{}, err
	}
	if u.Used > 0 {
		u.Used -= n
		if u.Used < 0 {
			u.Used = 0
		}
		if _, err = tx.ExecContext(ctx, `
UPDATE usage SET used = $1, updated_at = now() WHERE client_key = $2`, u.Used, key); err != nil {
			return Usage{}, err
		}
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) Reset(ctx context.Context, key string) (Usage, error) {
	u := s.policy.fresh()
	if _, err := s.DB.ExecContext(ctx, `
INSERT INTO usage (client_key, limit_amount, used, resets_at)
VALUES ($1, $2, 0, $3)
ON CONFLICT (client_key) DO UPDATE SET limit_amount = EXCLUDED.limit_amount, used = 0, resets_at = EXCLUDED.resets_at, updated_at = now()`,
		key, u.Limit, u.ResetsAt); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *pgStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, key string) (Usage, error) {
	var u Usage
	row := tx.QueryRowContext(ctx, `
SELECT limit_amount, used, resets_at FROM usage WHERE client_key = $1 FOR UPDATE`, key)
	err := row.Scan(&u.Limit, &u.Used, &u.ResetsAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			u = s.policy.fresh()
			if _, err = tx.ExecContext(ctx, `
INSERT INTO usage (client_key, limit_amount, used, resets_at) VALUES ($1, $2, $3, $4)`,
				key, u.Limit, u.Used, u.ResetsAt); err != nil {
				return Usage{}, err
			}
			return u, nil
		}
		return Usage{}, err
	}

	u, changed := s.policy.roll(u)
	if changed {
		if _, err = tx.ExecContext(ctx, `
UPDATE usage SET limit_amount = $1, used = $2, resets_at = $3, updated_at = now() WHERE client_key = $4`,
			u.Limit, u.Used, u.ResetsAt, key); err != nil {
			return Usage{}, err
		}
	}
	return u, nil
}
