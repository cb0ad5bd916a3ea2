// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/hitoshi/aiclub/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByGoogleID はGoogleのsubjectでユーザーを検索する。見つからない場合はnilを返す。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// FetchRole はユーザーのロールを取得する。該当ユーザーが無い場合はfound=falseを返す。
	FetchRole(ctx context.Context, userID string) (role string, found bool, err error)

	// CreateWithStats はユーザーと空の統計行を同一トランザクションで作成する。
	// user.IDが空の場合はアプリ側でUUIDを採番する。DBが決めたcreated_at、role等はuserへ反映する。
	CreateWithStats(ctx context.Context, user *model.User) error

	// RefreshGoogleProfile はgoogle_idで紐付いたユーザーのemail、氏名、画像を更新し、更新後のユーザーを返す。
	// 該当ユーザーが無い場合はnilを返す。
	RefreshGoogleProfile(ctx context.Context, googleID string, identity model.ExternalIdentity) (*model.User, error)

	// LinkGoogleAccount は既存ユーザーにgoogle_idを紐付ける。画像は未設定の場合のみ設定する。
	LinkGoogleAccount(ctx context.Context, userID, googleID, avatarURL string) (*model.User, error)

	// NeedsProfileCompletion は大学・専攻の入力が未完了かを返す。ユーザーが無い場合はtrue。
	NeedsProfileCompletion(ctx context.Context, userID string) (bool, error)

	// CompleteProfile は大学・専攻を保存し、入力完了フラグを立てる。
	CompleteProfile(ctx context.Context, userID, university, major string) error

	// UpdateProfile はnilでないフィールドのみを更新し、更新後のユーザーを返す。
	// 該当ユーザーが無い場合はnilを返す。
	UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) (*model.User, error)

	// UpdateImage はプロフィール画像URLを更新する。
	UpdateImage(ctx context.Context, userID, imageURL string) error

	// UpdatePasswordHash はパスワードハッシュを更新する。
	UpdatePasswordHash(ctx context.Context, userID, hash string) error

	// EmailTakenByOther は指定ユーザー以外が同じメールアドレスを使用しているかを返す。
	EmailTakenByOther(ctx context.Context, email, userID string) (bool, error)

	// TopByPoints はポイント降順で上位limit件を返す。
	TopByPoints(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)

	// RecomputeRanks はポイントに基づいて全ユーザーの順位を再計算し、更新行数を返す。
	RecomputeRanks(ctx context.Context) (int64, error)
}

// StatsRepository はユーザー統計の永続化インターフェース。
type StatsRepository interface {
	// FindByUserID はユーザーの統計を取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.UserStats, error)
}

// ResourceRepository は学習リソースの永続化インターフェース。
type ResourceRepository interface {
	// List はリソース一覧をid昇順で返す。includeHiddenがfalseの場合は公開中のみ。
	List(ctx context.Context, includeHidden bool) ([]*model.Resource, error)

	// FindByID は指定IDのリソースを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int, visibleOnly bool) (*model.Resource, error)

	// Create はリソースを作成し、採番されたIDとタイムスタンプを反映する。
	Create(ctx context.Context, resource *model.Resource) error

	// Update はリソースを上書き更新する。該当が無い場合はfalseを返す。
	Update(ctx context.Context, resource *model.Resource) (bool, error)

	// Delete はリソースを削除する。該当が無い場合はfalseを返す。
	Delete(ctx context.Context, id int) (bool, error)

	// SetVisibility は公開状態を変更し、更新後のリソースを返す。該当が無い場合はnilを返す。
	SetVisibility(ctx context.Context, id int, visible bool) (*model.Resource, error)
}

// QuoteRepository は引用文の永続化インターフェース。
type QuoteRepository interface {
	// RandomVisible は公開中の引用文を1件ランダムに返す。無い場合はnilを返す。
	RandomVisible(ctx context.Context) (*model.Quote, error)
}

// ChallengeRepository は週次チャレンジの永続化インターフェース。
type ChallengeRepository interface {
	// FindCurrent は指定時刻に公開期間内のチャレンジのうち最新のものを返す。無い場合はnilを返す。
	FindCurrent(ctx context.Context, now time.Time) (*model.Challenge, error)

	// List はチャレンジ一覧をid昇順で返す。
	List(ctx context.Context, includeHidden bool) ([]*model.Challenge, error)

	// FindByID は指定IDのチャレンジを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int) (*model.Challenge, error)

	// Create はチャレンジを作成し、採番されたIDとタイムスタンプを反映する。
	Create(ctx context.Context, challenge *model.Challenge) error

	// Update はチャレンジを上書き更新する。該当が無い場合はfalseを返す。
	Update(ctx context.Context, challenge *model.Challenge) (bool, error)

	// Delete はチャレンジを削除する。該当が無い場合はfalseを返す。
	Delete(ctx context.Context, id int) (bool, error)

	// SetVisibility は公開状態を変更し、更新後のチャレンジを返す。該当が無い場合はnilを返す。
	SetVisibility(ctx context.Context, id int, visible bool) (*model.Challenge, error)
}

// ContactRepository はお問い合わせの永続化インターフェース。
type ContactRepository interface {
	// Create はお問い合わせを保存する。
	Create(ctx context.Context, msg *model.ContactMessage) error

	// DeleteOlderThan は指定時刻より前に作成されたお問い合わせを削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
