package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/aiclub/internal/model"
)

const challengeColumns = `id, week, title, description, challenge_url, is_current,
	start_date, end_date, visible, created_at, updated_at`

// PostgresChallengeRepo はPostgreSQLを使用したチャレンジリポジトリ。
type PostgresChallengeRepo struct {
	db *sql.DB
}

// NewPostgresChallengeRepo はPostgresChallengeRepoを生成する。
func NewPostgresChallengeRepo(db *sql.DB) *PostgresChallengeRepo {
	return &PostgresChallengeRepo{db: db}
}

// FindCurrent は指定時刻に公開期間内のチャレンジのうち最新のものを返す。無い場合はnilを返す。
// start_date/end_dateがNULLの場合はその側の制限なしとして扱う。
func (r *PostgresChallengeRepo) FindCurrent(ctx context.Context, now time.Time) (*model.Challenge, error) {
	c, err := scanChallenge(r.db.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges
		 WHERE visible = TRUE
		   AND (start_date IS NULL OR start_date <= $1)
		   AND (end_date IS NULL OR end_date >= $1)
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		now,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find current challenge: %w", err)
	}
	return c, nil
}

// List はチャレンジ一覧をid昇順で返す。
func (r *PostgresChallengeRepo) List(ctx context.Context, includeHidden bool) ([]*model.Challenge, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges
		 WHERE ($1 OR visible = TRUE)
		 ORDER BY id`,
		includeHidden,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	challenges := []*model.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		challenges = append(challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate challenges: %w", err)
	}
	return challenges, nil
}

// FindByID は指定IDのチャレンジを取得する。見つからない場合はnilを返す。
func (r *PostgresChallengeRepo) FindByID(ctx context.Context, id int) (*model.Challenge, error) {
	c, err := scanChallenge(r.db.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find challenge: %w", err)
	}
	return c, nil
}

// Create はチャレンジを作成し、採番されたIDとタイムスタンプを反映する。
func (r *PostgresChallengeRepo) Create(ctx context.Context, c *model.Challenge) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO challenges (week, title, description, challenge_url, is_current, start_date, end_date, visible)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		c.Week, c.Title, c.Description, c.ChallengeURL, c.IsCurrent,
		nullTime(c.StartDate), nullTime(c.EndDate), c.Visible,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert challenge: %w", err)
	}
	return nil
}

// Update はチャレンジを上書き更新し、updated_atを反映する。該当が無い場合はfalseを返す。
func (r *PostgresChallengeRepo) Update(ctx context.Context, c *model.Challenge) (bool, error) {
	err := r.db.QueryRowContext(ctx,
		`UPDATE challenges
		 SET week = $2, title = $3, description = $4, challenge_url = $5, is_current = $6,
		     start_date = $7, end_date = $8, visible = $9, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		c.ID, c.Week, c.Title, c.Description, c.ChallengeURL, c.IsCurrent,
		nullTime(c.StartDate), nullTime(c.EndDate), c.Visible,
	).Scan(&c.UpdatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update challenge: %w", err)
	}
	return true, nil
}

// Delete はチャレンジを削除する。該当が無い場合はfalseを返す。
func (r *PostgresChallengeRepo) Delete(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM challenges WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete challenge: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// SetVisibility は公開状態を変更し、更新後のチャレンジを返す。該当が無い場合はnilを返す。
func (r *PostgresChallengeRepo) SetVisibility(ctx context.Context, id int, visible bool) (*model.Challenge, error) {
	c, err := scanChallenge(r.db.QueryRowContext(ctx,
		`UPDATE challenges SET visible = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+challengeColumns,
		id, visible,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set challenge visibility: %w", err)
	}
	return c, nil
}

func scanChallenge(row rowScanner) (*model.Challenge, error) {
	c := &model.Challenge{}
	var startDate, endDate sql.NullTime
	err := row.Scan(&c.ID, &c.Week, &c.Title, &c.Description, &c.ChallengeURL, &c.IsCurrent,
		&startDate, &endDate, &c.Visible, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.StartDate = nullTimeValue(startDate)
	c.EndDate = nullTimeValue(endDate)
	return c, nil
}

// nullTime はnilをNULLとして扱うsql.NullTimeを返す。
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullTimeValue(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// compile-time interface check
var _ ChallengeRepository = (*PostgresChallengeRepo)(nil)
