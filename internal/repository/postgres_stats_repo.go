package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/aiclub/internal/model"
)

// PostgresStatsRepo はPostgreSQLを使用したユーザー統計リポジトリ。
type PostgresStatsRepo struct {
	db *sql.DB
}

// NewPostgresStatsRepo はPostgresStatsRepoを生成する。
func NewPostgresStatsRepo(db *sql.DB) *PostgresStatsRepo {
	return &PostgresStatsRepo{db: db}
}

// FindByUserID はユーザーの統計を取得する。見つからない場合はnilを返す。
func (r *PostgresStatsRepo) FindByUserID(ctx context.Context, userID string) (*model.UserStats, error) {
	stats := &model.UserStats{}
	var bestSubject, improveable sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, best_subject, improveable, quickest_hunter, challenges_taken, created_at, updated_at
		 FROM user_stats WHERE user_id = $1`,
		userID,
	).Scan(&stats.ID, &stats.UserID, &bestSubject, &improveable,
		&stats.QuickestHunter, &stats.ChallengesTaken, &stats.CreatedAt, &stats.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user stats: %w", err)
	}

	stats.BestSubject = nullStringValue(bestSubject)
	stats.Improveable = nullStringValue(improveable)
	return stats, nil
}

// compile-time interface check
var _ StatsRepository = (*PostgresStatsRepo)(nil)
