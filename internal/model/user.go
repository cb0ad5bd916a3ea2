// Package model はドメインモデルを定義する。
package model

import "time"

// RoleAdmin は管理者ロール。これ以外の値はすべて一般ユーザーとして扱う。
const RoleAdmin = "admin"

// User はクラブ会員を表す。
// NULL許容カラムは空文字で表現する。
type User struct {
	ID                 string
	Email              string
	PasswordHash       string
	FullName           string
	PhoneNum           string
	Image              string
	Points             int
	Rank               int
	Role               string
	GoogleID           string
	University         string
	Major              string
	UniversityMajorSet bool
	CreatedAt          time.Time
}

// HasPassword はパスワードログインが可能なアカウントかを返す。
// Googleサインインのみで作成されたアカウントはfalse。
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// UserStats はユーザーごとの学習統計を表す。
type UserStats struct {
	ID              string
	UserID          string
	BestSubject     string
	Improveable     string
	QuickestHunter  int
	ChallengesTaken int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Principal は認証済みリクエストの主体を表す。永続化されない。
type Principal struct {
	UserID string
	// Admin はRoleGuardを通過した場合のみtrue。
	Admin bool
}

// ExternalIdentity は外部IdP（Google）から取得した本人情報。
type ExternalIdentity struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

// LeaderboardEntry はポイントランキングの1行を表す。
type LeaderboardEntry struct {
	UserID string
	Name   string
	Points int
	Image  string
}

// ProfileUpdate はプロフィール部分更新の入力。nilのフィールドは変更しない。
type ProfileUpdate struct {
	FullName *string
	Email    *string
	Image    *string
}

// UserSummary はクライアントへ返すユーザー情報。
// 認証レスポンスとOAuthコールバックのリダイレクトで共通に使用する。
type UserSummary struct {
	ID       string  `json:"id"`
	FullName string  `json:"fullName"`
	Email    string  `json:"email"`
	Image    *string `json:"image"`
	Role     string  `json:"role"`
}

// Summary はユーザーのクライアント向け表現を返す。画像未設定の場合はimageがnullになる。
func (u *User) Summary() UserSummary {
	s := UserSummary{
		ID:       u.ID,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     u.Role,
	}
	if u.Image != "" {
		img := u.Image
		s.Image = &img
	}
	return s
}
