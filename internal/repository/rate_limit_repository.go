package repository

import (
	"database/sql"
)

type RateLimitRepositoryInterface interface {
	Increment(channel, scope, bucket string, ceiling int) error
	GetCount(channel, scope, bucket string) (int, error)
}

// RateLimitRepository persists quota counters. Increment is an atomic
// upsert-and-increment so overlapping batch runs never lose a whole row;
// counters stay advisory throttles, not serialized guarantees.
type RateLimitRepository struct {
	DB *sql.DB
}

func (r *RateLimitRepository) Increment(channel, scope, bucket string, ceiling int) error {
	query := `
        INSERT INTO rate_limit_counters (channel, scope, bucket, count, ceiling)
        VALUES ($1, $2, $3, 1, $4)
        ON CONFLICT (channel, scope, bucket)
        DO UPDATE SET count = rate_limit_counters.count + 1
    `
	_, err := r.DB.Exec(query, channel, scope, bucket, ceiling)
	return err
}

func (r *RateLimitRepository) GetCount(channel, scope, bucket string) (int, error) {
	var count int
	err := r.DB.QueryRow(
		`SELECT count FROM rate_limit_counters WHERE channel=$1 AND scope=$2 AND bucket=$3`,
		channel, scope, bucket,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

var _ RateLimitRepositoryInterface = (*RateLimitRepository)(nil)
