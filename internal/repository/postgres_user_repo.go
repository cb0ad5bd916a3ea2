package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/aiclub/internal/model"
)

const userColumns = `id, email, password_hash, full_name, phone_num, image, points, rank, role,
	google_id, university, major, university_major_set, created_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindByGoogleID はGoogleのsubjectでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = $1`,
		googleID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by google ID: %w", err)
	}
	return user, nil
}

// FetchRole はユーザーのロールを取得する。該当ユーザーが無い場合はfound=falseを返す。
func (r *PostgresUserRepo) FetchRole(ctx context.Context, userID string) (string, bool, error) {
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT role FROM users WHERE id = $1`,
		userID,
	).Scan(&role)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch role: %w", err)
	}
	return role, true, nil
}

// CreateWithStats はユーザーと空の統計行を同一トランザクションで作成する。
// どちらかのINSERTが失敗した場合は両方ともロールバックされる。
func (r *PostgresUserRepo) CreateWithStats(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// ユーザーを作成
	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (id, email, password_hash, full_name, phone_num, image, google_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING points, rank, role, university_major_set, created_at`,
		user.ID, user.Email, nullString(user.PasswordHash), user.FullName,
		nullString(user.PhoneNum), nullString(user.Image), nullString(user.GoogleID),
	).Scan(&user.Points, &user.Rank, &user.Role, &user.UniversityMajorSet, &user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	// 統計行を作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_stats (user_id) VALUES ($1)`,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RefreshGoogleProfile はgoogle_idで紐付いたユーザーのemail、氏名、画像をIdPの値で上書きする。
// 氏名が空の場合は現在の氏名を維持する。画像はIdPの値（空ならNULL）で置き換える。
// 該当ユーザーが無い場合はnilを返す。
func (r *PostgresUserRepo) RefreshGoogleProfile(ctx context.Context, googleID string, identity model.ExternalIdentity) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET email = $2, full_name = COALESCE(NULLIF($3, ''), full_name), image = $4
		 WHERE google_id = $1
		 RETURNING `+userColumns,
		googleID, identity.Email, identity.Name, nullString(identity.AvatarURL),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to refresh google profile: %w", err)
	}
	return user, nil
}

// LinkGoogleAccount は既存ユーザーにgoogle_idを紐付ける。画像は未設定の場合のみ設定する。
// 該当ユーザーが無い場合はnilを返す。
func (r *PostgresUserRepo) LinkGoogleAccount(ctx context.Context, userID, googleID, avatarURL string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET google_id = $2, image = COALESCE(image, $3)
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID, googleID, nullString(avatarURL),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to link google account: %w", err)
	}
	return user, nil
}

// NeedsProfileCompletion は大学・専攻の入力が未完了かを返す。ユーザーが無い場合はtrue。
func (r *PostgresUserRepo) NeedsProfileCompletion(ctx context.Context, userID string) (bool, error) {
	var set bool
	err := r.db.QueryRowContext(ctx,
		`SELECT university_major_set FROM users WHERE id = $1`,
		userID,
	).Scan(&set)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read profile completion flag: %w", err)
	}
	return !set, nil
}

// CompleteProfile は大学・専攻を保存し、入力完了フラグを立てる。
func (r *PostgresUserRepo) CompleteProfile(ctx context.Context, userID, university, major string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET university = $2, major = $3, university_major_set = TRUE WHERE id = $1`,
		userID, university, major,
	)
	if err != nil {
		return fmt.Errorf("failed to complete profile: %w", err)
	}
	return expectAffected(result, "user", userID)
}

// UpdateProfile はnilでないフィールドのみを更新し、更新後のユーザーを返す。
// 該当ユーザーが無い場合はnilを返す。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users
		 SET full_name = COALESCE($2, full_name), email = COALESCE($3, email), image = COALESCE($4, image)
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID, optionalString(update.FullName), optionalString(update.Email), optionalString(update.Image),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// UpdateImage はプロフィール画像URLを更新する。
func (r *PostgresUserRepo) UpdateImage(ctx context.Context, userID, imageURL string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET image = $2 WHERE id = $1`,
		userID, imageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update image: %w", err)
	}
	return expectAffected(result, "user", userID)
}

// UpdatePasswordHash はパスワードハッシュを更新する。
func (r *PostgresUserRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`,
		userID, hash,
	)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	return expectAffected(result, "user", userID)
}

// EmailTakenByOther は指定ユーザー以外が同じメールアドレスを使用しているかを返す。
func (r *PostgresUserRepo) EmailTakenByOther(ctx context.Context, email, userID string) (bool, error) {
	var taken bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`,
		email, userID,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return taken, nil
}

// TopByPoints はポイント降順で上位limit件を返す。同点の場合は登録が早い順。
func (r *PostgresUserRepo) TopByPoints(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, full_name, points, image FROM users
		 ORDER BY points DESC, created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list top users: %w", err)
	}
	defer rows.Close()

	entries := make([]model.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var e model.LeaderboardEntry
		var image sql.NullString
		if err := rows.Scan(&e.UserID, &e.Name, &e.Points, &image); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		e.Image = nullStringValue(image)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leaderboard: %w", err)
	}
	return entries, nil
}

// RecomputeRanks はポイント降順のdense_rankで全ユーザーの順位を更新し、変更された行数を返す。
func (r *PostgresUserRepo) RecomputeRanks(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users u SET rank = ranked.new_rank
		 FROM (SELECT id, dense_rank() OVER (ORDER BY points DESC) AS new_rank FROM users) ranked
		 WHERE u.id = ranked.id AND u.rank <> ranked.new_rank`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to recompute ranks: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var passwordHash, phoneNum, image, googleID, university, major sql.NullString
	err := row.Scan(
		&user.ID, &user.Email, &passwordHash, &user.FullName, &phoneNum, &image,
		&user.Points, &user.Rank, &user.Role, &googleID, &university, &major,
		&user.UniversityMajorSet, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = nullStringValue(passwordHash)
	user.PhoneNum = nullStringValue(phoneNum)
	user.Image = nullStringValue(image)
	user.GoogleID = nullStringValue(googleID)
	user.University = nullStringValue(university)
	user.Major = nullStringValue(major)
	return user, nil
}

// expectAffected は更新対象が存在しなかった場合にエラーを返す。
func expectAffected(result sql.Result, kind, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found: %s", kind, id)
	}
	return nil
}

// nullString は空文字をNULLとして扱うsql.NullStringを返す。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// optionalString はnilをNULLとして扱う。空文字はそのまま値として渡す。
func optionalString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
