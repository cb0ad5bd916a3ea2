// Package worker は定期実行ジョブとそのスケジューラを提供する。
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Job は定期実行されるバッチ処理。冪等であること。
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// RankRecomputer はポイントから順位を再計算する。
type RankRecomputer interface {
	RecomputeRanks(ctx context.Context) (int64, error)
}

// ContactPurger は保持期間を過ぎたお問い合わせを削除する。
type ContactPurger interface {
	Purge(ctx context.Context, retentionDays int, now time.Time) (int64, error)
}

// RankJob は全ユーザーの順位をポイントの密な順位（dense rank）で更新する。
type RankJob struct {
	users  RankRecomputer
	logger *slog.Logger
}

// NewRankJob は新しいRankJobを生成する。
func NewRankJob(users RankRecomputer, logger *slog.Logger) *RankJob {
	return &RankJob{users: users, logger: logger}
}

// Name はジョブ名を返す。
func (j *RankJob) Name() string { return "rank_recompute" }

// Run は順位を再計算する。順位が変わらない行は更新しない。
func (j *RankJob) Run(ctx context.Context) error {
	start := time.Now()

	updated, err := j.users.RecomputeRanks(ctx)
	if err != nil {
		return fmt.Errorf("failed to recompute ranks: %w", err)
	}

	j.logger.Info("rank recompute finished",
		slog.Int64("updated_count", updated),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

// ContactRetentionJob は保持期間（デフォルト365日）を超えたお問い合わせを削除する。
type ContactRetentionJob struct {
	contacts      ContactPurger
	logger        *slog.Logger
	now           func() time.Time
	RetentionDays int
}

// NewContactRetentionJob は新しいContactRetentionJobを生成する。
func NewContactRetentionJob(contacts ContactPurger, logger *slog.Logger, retentionDays int) *ContactRetentionJob {
	if retentionDays <= 0 {
		retentionDays = 365
	}
	return &ContactRetentionJob{
		contacts:      contacts,
		logger:        logger,
		now:           time.Now,
		RetentionDays: retentionDays,
	}
}

// Name はジョブ名を返す。
func (j *ContactRetentionJob) Name() string { return "contact_cleanup" }

// Run は保持期間を超えたお問い合わせを削除する。対象が無くてもエラーにならない。
func (j *ContactRetentionJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.contacts.Purge(ctx, j.RetentionDays, j.now())
	if err != nil {
		return fmt.Errorf("failed to purge contact messages: %w", err)
	}

	j.logger.Info("contact cleanup finished",
		slog.Int64("deleted_count", deleted),
		slog.Int("retention_days", j.RetentionDays),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}
