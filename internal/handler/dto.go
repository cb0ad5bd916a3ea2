package handler

import (
	"time"

	"github.com/hitoshi/aiclub/internal/model"
	"github.com/hitoshi/aiclub/internal/resource"
	"github.com/hitoshi/aiclub/internal/user"
)

// nullable は空文字をJSONのnullとして出力するためのヘルパー。
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// AuthResponse はサインアップ・ログインのレスポンス。
type AuthResponse struct {
	Token string            `json:"token"`
	User  model.UserSummary `json:"user"`
}

// LeaderboardEntryResponse は総合ランキングの1行。
type LeaderboardEntryResponse struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// LeaderboardResponse は総合ランキングボード。
type LeaderboardResponse struct {
	ID      int                        `json:"id"`
	Title   string                     `json:"title"`
	Entries []LeaderboardEntryResponse `json:"entries"`
}

// ChallengeLeaderboardEntryResponse はチャレンジランキングの1行。
type ChallengeLeaderboardEntryResponse struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Points int     `json:"points"`
	Image  *string `json:"image"`
}

// InstructorResponse は講師情報。
type InstructorResponse struct {
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

// QuoteResponse はリソース詳細に添える引用文。
type QuoteResponse struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// ResourceListItemResponse は公開リソース一覧の1件。
type ResourceListItemResponse struct {
	ID         int                `json:"id"`
	Title      string             `json:"title"`
	Provider   string             `json:"provider"`
	CoverImage *string            `json:"coverImage"`
	Instructor InstructorResponse `json:"instructor"`
}

// ResourceDetailResponse は公開リソース詳細。
type ResourceDetailResponse struct {
	ID         int                `json:"id"`
	Title      string             `json:"title"`
	Provider   string             `json:"provider"`
	NotionURL  *string            `json:"notionUrl"`
	Instructor InstructorResponse `json:"instructor"`
	Quote      *QuoteResponse     `json:"quote"`
}

// AdminResourceResponse は管理画面用のリソース表現。
type AdminResourceResponse struct {
	ID         int                `json:"id"`
	Title      string             `json:"title"`
	Provider   string             `json:"provider"`
	CoverImage *string            `json:"coverImage"`
	NotionURL  *string            `json:"notionUrl"`
	Instructor InstructorResponse `json:"instructor"`
	Quote      *QuoteResponse     `json:"quote"`
	Visible    bool               `json:"visible"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// ChallengeResponse は公開中チャレンジ。
type ChallengeResponse struct {
	ID           int    `json:"id"`
	Week         int    `json:"week"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChallengeURL string `json:"challengeUrl"`
}

// AdminChallengeResponse は管理画面用のチャレンジ表現。
type AdminChallengeResponse struct {
	ID           int        `json:"id"`
	Week         int        `json:"week"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ChallengeURL string     `json:"challengeUrl"`
	StartDate    *time.Time `json:"startDate"`
	EndDate      *time.Time `json:"endDate"`
	Visible      bool       `json:"visible"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// UserStatsResponse はプロフィールの統計部分。
type UserStatsResponse struct {
	BestSubject     *string `json:"bestSubject"`
	Improveable     *string `json:"improveable"`
	QuickestHunter  int     `json:"quickestHunter"`
	ChallengesTaken int     `json:"challengesTaken"`
}

// ProfileResponse はプロフィール画面のレスポンス。
type ProfileResponse struct {
	Rank   int               `json:"rank"`
	Name   string            `json:"name"`
	Points int               `json:"points"`
	Image  *string           `json:"image"`
	Stats  UserStatsResponse `json:"stats"`
}

// AvatarResponse はアバターアップロードのレスポンス。
type AvatarResponse struct {
	ImageURL string `json:"imageUrl"`
}

// ContactResponse はお問い合わせ送信のレスポンス。
type ContactResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// itemResponse は管理APIの単一要素ラッパー。
type itemResponse[T any] struct {
	Item T `json:"item"`
}

// itemsResponse は管理APIの一覧ラッパー。
type itemsResponse[T any] struct {
	Items []T `json:"items"`
}

func toInstructor(r *model.Resource) InstructorResponse {
	return InstructorResponse{Name: r.InstructorName, Image: nullable(r.InstructorImage)}
}

func toResourceListItem(r *model.Resource) ResourceListItemResponse {
	return ResourceListItemResponse{
		ID:         r.ID,
		Title:      r.Title,
		Provider:   r.Provider,
		CoverImage: nullable(r.CoverImage),
		Instructor: toInstructor(r),
	}
}

func toResourceDetail(d *resource.Detail) ResourceDetailResponse {
	resp := ResourceDetailResponse{
		ID:         d.Resource.ID,
		Title:      d.Resource.Title,
		Provider:   d.Resource.Provider,
		NotionURL:  nullable(d.Resource.NotionURL),
		Instructor: toInstructor(d.Resource),
	}
	if d.Quote != nil {
		resp.Quote = &QuoteResponse{Text: d.Quote.Text, Author: d.Quote.Author}
	}
	return resp
}

func toAdminResource(r *model.Resource) AdminResourceResponse {
	return AdminResourceResponse{
		ID:         r.ID,
		Title:      r.Title,
		Provider:   r.Provider,
		CoverImage: nullable(r.CoverImage),
		NotionURL:  nullable(r.NotionURL),
		Instructor: toInstructor(r),
		Visible:    r.Visible,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func toAdminResources(rs []*model.Resource) []AdminResourceResponse {
	out := make([]AdminResourceResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toAdminResource(r))
	}
	return out
}

func toChallenge(c *model.Challenge) ChallengeResponse {
	return ChallengeResponse{
		ID:           c.ID,
		Week:         c.Week,
		Title:        c.Title,
		Description:  c.Description,
		ChallengeURL: c.ChallengeURL,
	}
}

func toAdminChallenge(c *model.Challenge) AdminChallengeResponse {
	return AdminChallengeResponse{
		ID:           c.ID,
		Week:         c.Week,
		Title:        c.Title,
		Description:  c.Description,
		ChallengeURL: c.ChallengeURL,
		StartDate:    c.StartDate,
		EndDate:      c.EndDate,
		Visible:      c.Visible,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toAdminChallenges(cs []*model.Challenge) []AdminChallengeResponse {
	out := make([]AdminChallengeResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toAdminChallenge(c))
	}
	return out
}

func toProfile(p *user.Profile) ProfileResponse {
	return ProfileResponse{
		Rank:   p.User.Rank,
		Name:   p.User.FullName,
		Points: p.User.Points,
		Image:  nullable(p.User.Image),
		Stats: UserStatsResponse{
			BestSubject:     nullable(p.Stats.BestSubject),
			Improveable:     nullable(p.Stats.Improveable),
			QuickestHunter:  p.Stats.QuickestHunter,
			ChallengesTaken: p.Stats.ChallengesTaken,
		},
	}
}
