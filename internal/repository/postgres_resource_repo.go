package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/aiclub/internal/model"
)

const resourceColumns = `id, title, provider, cover_image, instructor_name, instructor_image,
	notion_url, visible, created_at, updated_at`

// PostgresResourceRepo はPostgreSQLを使用した学習リソースリポジトリ。
type PostgresResourceRepo struct {
	db *sql.DB
}

// NewPostgresResourceRepo はPostgresResourceRepoを生成する。
func NewPostgresResourceRepo(db *sql.DB) *PostgresResourceRepo {
	return &PostgresResourceRepo{db: db}
}

// List はリソース一覧をid昇順で返す。includeHiddenがfalseの場合は公開中のみ。
func (r *PostgresResourceRepo) List(ctx context.Context, includeHidden bool) ([]*model.Resource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources
		 WHERE ($1 OR visible = TRUE)
		 ORDER BY id`,
		includeHidden,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	resources := []*model.Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate resources: %w", err)
	}
	return resources, nil
}

// FindByID は指定IDのリソースを取得する。visibleOnlyの場合は非公開リソースをnilとして扱う。
func (r *PostgresResourceRepo) FindByID(ctx context.Context, id int, visibleOnly bool) (*model.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources
		 WHERE id = $1 AND (NOT $2 OR visible = TRUE)`,
		id, visibleOnly,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find resource: %w", err)
	}
	return res, nil
}

// Create はリソースを作成し、採番されたIDとタイムスタンプを反映する。
func (r *PostgresResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO resources (title, provider, cover_image, instructor_name, instructor_image, notion_url, visible)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		res.Title, res.Provider, nullString(res.CoverImage), res.InstructorName,
		nullString(res.InstructorImage), nullString(res.NotionURL), res.Visible,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert resource: %w", err)
	}
	return nil
}

// Update はリソースを上書き更新し、updated_atを反映する。該当が無い場合はfalseを返す。
func (r *PostgresResourceRepo) Update(ctx context.Context, res *model.Resource) (bool, error) {
	err := r.db.QueryRowContext(ctx,
		`UPDATE resources
		 SET title = $2, provider = $3, cover_image = $4, instructor_name = $5,
		     instructor_image = $6, notion_url = $7, visible = $8, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		res.ID, res.Title, res.Provider, nullString(res.CoverImage), res.InstructorName,
		nullString(res.InstructorImage), nullString(res.NotionURL), res.Visible,
	).Scan(&res.UpdatedAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update resource: %w", err)
	}
	return true, nil
}

// Delete はリソースを削除する。該当が無い場合はfalseを返す。
func (r *PostgresResourceRepo) Delete(ctx context.Context, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete resource: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// SetVisibility は公開状態を変更し、更新後のリソースを返す。該当が無い場合はnilを返す。
func (r *PostgresResourceRepo) SetVisibility(ctx context.Context, id int, visible bool) (*model.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx,
		`UPDATE resources SET visible = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+resourceColumns,
		id, visible,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set resource visibility: %w", err)
	}
	return res, nil
}

func scanResource(row rowScanner) (*model.Resource, error) {
	res := &model.Resource{}
	var coverImage, instructorImage, notionURL sql.NullString
	err := row.Scan(&res.ID, &res.Title, &res.Provider, &coverImage, &res.InstructorName,
		&instructorImage, &notionURL, &res.Visible, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	res.CoverImage = nullStringValue(coverImage)
	res.InstructorImage = nullStringValue(instructorImage)
	res.NotionURL = nullStringValue(notionURL)
	return res, nil
}

// PostgresQuoteRepo はPostgreSQLを使用した引用文リポジトリ。
type PostgresQuoteRepo struct {
	db *sql.DB
}

// NewPostgresQuoteRepo はPostgresQuoteRepoを生成する。
func NewPostgresQuoteRepo(db *sql.DB) *PostgresQuoteRepo {
	return &PostgresQuoteRepo{db: db}
}

// RandomVisible は公開中の引用文を1件ランダムに返す。無い場合はnilを返す。
func (r *PostgresQuoteRepo) RandomVisible(ctx context.Context) (*model.Quote, error) {
	q := &model.Quote{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, text, author, visible FROM quotes WHERE visible = TRUE ORDER BY random() LIMIT 1`,
	).Scan(&q.ID, &q.Text, &q.Author, &q.Visible)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pick quote: %w", err)
	}
	return q, nil
}

// compile-time interface check
var (
	_ ResourceRepository = (*PostgresResourceRepo)(nil)
	_ QuoteRepository    = (*PostgresQuoteRepo)(nil)
)
