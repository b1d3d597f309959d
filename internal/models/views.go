package models

import (
	"time"
)

// AuthorView is the short author form embedded in questions and comments.
type AuthorView struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url"`
}

// PollItemView is a poll option as rendered to clients.
type PollItemView struct {
	ID         uint    `json:"id"`
	Text       string  `json:"text"`
	ImageURL   *string `json:"image_url"`
	PreviewURL *string `json:"preview_url"`
	VotesCount int     `json:"votes_count"`
	Voted      bool    `json:"voted"`
}

// QuestionView is one feed entry. Poll is null when the question has no poll.
type QuestionView struct {
	ID            uint           `json:"id"`
	Text          string         `json:"text"`
	CreationDate  time.Time      `json:"creation_date"`
	CategoryID    uint           `json:"category_id"`
	LikesCount    int            `json:"likes_count"`
	CommentsCount int            `json:"comments_count"`
	Author        *AuthorView    `json:"author"`
	Poll          []PollItemView `json:"poll"`
	IsAnonymous   bool           `json:"is_anonymous"`
	Voted         bool           `json:"voted"`
}

// CommentView is a comment as rendered to clients.
type CommentView struct {
	ID           uint        `json:"id"`
	Text         string      `json:"text"`
	CreationDate time.Time   `json:"creation_date"`
	LikesCount   int         `json:"likes_count"`
	Author       *AuthorView `json:"author"`
	Voted        bool        `json:"voted"`
}

// QuestionDetailView adds comments to a question. Comments is null when the
// question has no comments and an array otherwise.
type QuestionDetailView struct {
	QuestionView
	Comments []CommentView `json:"comments"`
}
