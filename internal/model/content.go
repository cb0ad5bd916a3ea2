package model

import "time"

// Resource は学習リソース（講座）を表す。
type Resource struct {
	ID              int
	Title           string
	Provider        string
	CoverImage      string
	InstructorName  string
	InstructorImage string
	NotionURL       string
	Visible         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Quote はリソース詳細に添える引用文を表す。
type Quote struct {
	ID      int
	Text    string
	Author  string
	Visible bool
}

// Challenge は週次チャレンジを表す。
// StartDate/EndDateがnilの場合はその側の期間制限がない。
type Challenge struct {
	ID           int
	Week         int
	Title        string
	Description  string
	ChallengeURL string
	IsCurrent    bool
	StartDate    *time.Time
	EndDate      *time.Time
	Visible      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActiveAt は指定時刻にチャレンジが公開期間内かを返す。
func (c *Challenge) IsActiveAt(now time.Time) bool {
	if !c.Visible {
		return false
	}
	if c.StartDate != nil && c.StartDate.After(now) {
		return false
	}
	if c.EndDate != nil && c.EndDate.Before(now) {
		return false
	}
	return true
}

// ContactMessage はお問い合わせフォームの送信内容を表す。
type ContactMessage struct {
	ID        int
	Name      string
	Email     string
	Message   string
	CreatedAt time.Time
}
