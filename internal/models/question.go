package models

import (
	"time"
)

// Question is a post with an optional poll. Counters are maintained by the
// voting and commenting services and only read here.
type Question struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Text          string    `gorm:"type:text;not null" json:"text"`
	CreationDate  time.Time `gorm:"not null;index" json:"creation_date"`
	CategoryID    uint      `gorm:"not null;index" json:"category_id"`
	Category      Category  `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"-"`
	AuthorID      uint      `gorm:"not null;index" json:"author_id"`
	Author        User      `gorm:"foreignKey:AuthorID" json:"-"`
	IsAnonymous   bool      `gorm:"not null;default:false" json:"is_anonymous"`
	LikesCount    int       `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount int       `gorm:"not null;default:0" json:"comments_count"`
}

// Poll belongs to exactly one question.
type Poll struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	QuestionID uint `gorm:"not null;uniqueIndex" json:"question_id"`
	ItemsCount int  `gorm:"not null;default:0" json:"items_count"`
}

// PollItem is one votable option of a poll.
type PollItem struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	PollID     uint     `gorm:"not null;index" json:"poll_id"`
	QuestionID uint     `gorm:"not null;index" json:"question_id"`
	Text       string   `gorm:"not null" json:"text"`
	PictureID  *uint    `gorm:"index" json:"picture_id"`
	Picture    *Picture `gorm:"foreignKey:PictureID" json:"-"`
	VotesCount int      `gorm:"not null;default:0" json:"votes_count"`
}

// Vote records a user's choice of a poll item.
type Vote struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	UserID     uint `gorm:"not null;uniqueIndex:idx_vote_user_item" json:"user_id"`
	PollItemID uint `gorm:"not null;uniqueIndex:idx_vote_user_item;index" json:"poll_item_id"`
	PollID     uint `gorm:"not null;index" json:"poll_id"`
}
