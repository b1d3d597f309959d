// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"fmt"

	"decider/internal/models"
	"decider/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// FeedOrder is the ORDER BY of a feed page.
type FeedOrder int

const (
	OrderNewest FeedOrder = iota
	OrderPopular
	OrderDiscussed
)

var feedOrderSQL = map[FeedOrder]string{
	OrderNewest:    "q.creation_date DESC, q.id DESC",
	OrderPopular:   "(q.likes_count + 2 * q.comments_count) DESC, q.creation_date DESC, q.id DESC",
	OrderDiscussed: "q.comments_count DESC, q.creation_date DESC, q.id DESC",
}

// FeedQuery selects one page of questions for a viewer.
type FeedQuery struct {
	ViewerID    uint
	Limit       int
	Offset      int
	CategoryIDs []uint
	// AuthorID restricts the page to one author when non-zero.
	AuthorID uint
	Order    FeedOrder
}

// ErrForeignKey reports an insert referencing a missing parent row.
var ErrForeignKey = errors.New("foreign key violation")

// QuestionStore is the write side available inside a creation transaction.
type QuestionStore interface {
	CategoryExists(id uint) (bool, error)
	FindUser(id uint) (*models.User, error)
	CreateQuestion(q *models.Question) error
	CreatePoll(p *models.Poll) error
	FindPictureByUID(uid string) (*models.Picture, error)
	CreatePollItem(item *models.PollItem) error
}

// QuestionRepository defines the read and write operations on questions.
type QuestionRepository interface {
	Feed(ctx context.Context, q FeedQuery) ([]QuestionRow, error)
	GetByID(ctx context.Context, viewerID, id uint) (*QuestionRow, error)
	PollItems(ctx context.Context, viewerID uint, pollIDs []uint) ([]PollItemRow, error)
	Comments(ctx context.Context, viewerID, questionID uint) ([]CommentRow, error)
	Transaction(ctx context.Context, fn func(store QuestionStore) error) error
}

type questionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository creates a new question repository
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

var questionColumns = []string{
	"q.id", "q.text", "q.creation_date", "q.category_id",
	"q.likes_count", "q.comments_count", "q.is_anonymous",
	"p.id AS poll_id",
	"u.id AS author_id", "u.username AS author_username",
	"u.first_name AS author_first_name", "u.last_name AS author_last_name",
	"u.avatar_url AS author_avatar_url",
}

var pollItemColumns = []string{
	"pi.id", "pi.poll_id", "pi.question_id", "pi.text", "pi.votes_count",
	"pic.url AS image_url", "pic.preview_url AS preview_url",
}

var commentColumns = []string{
	"c.id", "c.text", "c.creation_date", "c.likes_count",
	"u.id AS author_id", "u.username AS author_username",
	"u.first_name AS author_first_name", "u.last_name AS author_last_name",
	"u.avatar_url AS author_avatar_url",
}

func (r *questionRepository) questions(ctx context.Context, viewerID uint) *gorm.DB {
	selects, args := withViewerFlag(questionColumns, targetQuestion, viewerID)
	return r.db.WithContext(ctx).
		Table("questions AS q").
		Select(selects, args...).
		Joins("JOIN users AS u ON u.id = q.author_id").
		Joins("LEFT JOIN polls AS p ON p.question_id = q.id")
}

func (r *questionRepository) Feed(ctx context.Context, fq FeedQuery) ([]QuestionRow, error) {
	defer observability.TrackQuery("feed", "questions")()

	order, ok := feedOrderSQL[fq.Order]
	if !ok {
		return nil, fmt.Errorf("unknown feed order %d", fq.Order)
	}

	tx := r.questions(ctx, fq.ViewerID)
	if len(fq.CategoryIDs) > 0 {
		tx = tx.Where("q.category_id IN ?", fq.CategoryIDs)
	}
	if fq.AuthorID != 0 {
		tx = tx.Where("q.author_id = ?", fq.AuthorID)
	}

	rows, err := tx.Order(order).Limit(fq.Limit).Offset(fq.Offset).Rows()
	if err != nil {
		return nil, err
	}
	rs, err := ScanRows(rows)
	if err != nil {
		return nil, err
	}
	return DecodeQuestionRows(rs)
}

func (r *questionRepository) GetByID(ctx context.Context, viewerID, id uint) (*QuestionRow, error) {
	defer observability.TrackQuery("get", "questions")()

	rows, err := r.questions(ctx, viewerID).Where("q.id = ?", id).Limit(1).Rows()
	if err != nil {
		return nil, err
	}
	rs, err := ScanRows(rows)
	if err != nil {
		return nil, err
	}
	decoded, err := DecodeQuestionRows(rs)
	if err != nil {
		return nil, err
	}
	if len(decoded) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &decoded[0], nil
}

// PollItems fetches the items of every poll in pollIDs with a single query.
func (r *questionRepository) PollItems(ctx context.Context, viewerID uint, pollIDs []uint) ([]PollItemRow, error) {
	if len(pollIDs) == 0 {
		return nil, nil
	}
	defer observability.TrackQuery("batch", "poll_items")()

	selects, args := withViewerFlag(pollItemColumns, targetPollItem, viewerID)
	rows, err := r.db.WithContext(ctx).
		Table("poll_items AS pi").
		Select(selects, args...).
		Joins("LEFT JOIN pictures AS pic ON pic.id = pi.picture_id").
		Where("pi.poll_id IN ?", pollIDs).
		Order("pi.id").
		Rows()
	if err != nil {
		return nil, err
	}
	rs, err := ScanRows(rows)
	if err != nil {
		return nil, err
	}
	return DecodePollItemRows(rs)
}

func (r *questionRepository) Comments(ctx context.Context, viewerID, questionID uint) ([]CommentRow, error) {
	defer observability.TrackQuery("list", "comments")()

	selects, args := withViewerFlag(commentColumns, targetComment, viewerID)
	rows, err := r.db.WithContext(ctx).
		Table("comments AS c").
		Select(selects, args...).
		Joins("JOIN users AS u ON u.id = c.author_id").
		Where("c.question_id = ?", questionID).
		Order("c.creation_date ASC, c.id ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	rs, err := ScanRows(rows)
	if err != nil {
		return nil, err
	}
	return DecodeCommentRows(rs)
}

// Transaction runs fn in one database transaction; any error rolls back
// every write fn made.
func (r *questionRepository) Transaction(ctx context.Context, fn func(store QuestionStore) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&questionStore{tx: tx})
	})
}

type questionStore struct {
	tx *gorm.DB
}

func (s *questionStore) CategoryExists(id uint) (bool, error) {
	var count int64
	if err := s.tx.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *questionStore) FindUser(id uint) (*models.User, error) {
	var u models.User
	if err := s.tx.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *questionStore) CreateQuestion(q *models.Question) error {
	return translateWriteError(s.tx.Omit("Category", "Author").Create(q).Error)
}

func (s *questionStore) CreatePoll(p *models.Poll) error {
	return translateWriteError(s.tx.Create(p).Error)
}

func (s *questionStore) FindPictureByUID(uid string) (*models.Picture, error) {
	var pic models.Picture
	if err := s.tx.Where("uid = ?", uid).First(&pic).Error; err != nil {
		return nil, err
	}
	return &pic, nil
}

func (s *questionStore) CreatePollItem(item *models.PollItem) error {
	return translateWriteError(s.tx.Omit("Picture").Create(item).Error)
}

// translateWriteError maps a PostgreSQL FK violation to ErrForeignKey.
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("%w: %s", ErrForeignKey, pgErr.ConstraintName)
	}
	return err
}
