package models

import (
	"time"
)

// Comment on a question.
type Comment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	CreationDate time.Time `gorm:"not null" json:"creation_date"`
	QuestionID   uint      `gorm:"not null;index" json:"question_id"`
	AuthorID     uint      `gorm:"not null;index" json:"author_id"`
	Author       User      `gorm:"foreignKey:AuthorID" json:"-"`
	LikesCount   int       `gorm:"not null;default:0" json:"likes_count"`
}

// CommentLike records a user liking a comment.
type CommentLike struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	UserID     uint `gorm:"not null;uniqueIndex:idx_like_user_comment" json:"user_id"`
	CommentID  uint `gorm:"not null;uniqueIndex:idx_like_user_comment;index" json:"comment_id"`
	QuestionID uint `gorm:"not null;index" json:"question_id"`
}
