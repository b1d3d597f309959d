// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"decider/internal/database"
	"decider/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB returns a migrated in-memory database. It is pinned to one
// connection so every query sees the same memory database.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: database.NewGormLogger(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Fixture inserts domain rows for tests.
type Fixture struct {
	t  testing.TB
	DB *gorm.DB
	// Clock supplies creation dates; each question or comment advances it a minute.
	Clock time.Time
}

// NewFixture wraps db with row builders.
func NewFixture(t testing.TB, db *gorm.DB) *Fixture {
	return &Fixture{t: t, DB: db, Clock: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *Fixture) tick() time.Time {
	f.Clock = f.Clock.Add(time.Minute)
	return f.Clock
}

func (f *Fixture) User(username string) *models.User {
	u := &models.User{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: username,
		Password:  "x",
	}
	require.NoError(f.t, f.DB.Create(u).Error)
	return u
}

func (f *Fixture) Category(name string) *models.Category {
	c := &models.Category{Name: name}
	require.NoError(f.t, f.DB.Create(c).Error)
	return c
}

func (f *Fixture) Picture(uid string) *models.Picture {
	p := &models.Picture{UID: uid, URL: "/media/" + uid + ".jpg", PreviewURL: "/media/" + uid + "_preview.webp"}
	require.NoError(f.t, f.DB.Create(p).Error)
	return p
}

// Question inserts a question; counters are set directly as the voting and
// commenting services would maintain them.
func (f *Fixture) Question(author *models.User, category *models.Category, text string, likes, comments int) *models.Question {
	q := &models.Question{
		Text:          text,
		CreationDate:  f.tick(),
		CategoryID:    category.ID,
		AuthorID:      author.ID,
		LikesCount:    likes,
		CommentsCount: comments,
	}
	require.NoError(f.t, f.DB.Omit("Category", "Author").Create(q).Error)
	return q
}

// Anonymous marks q anonymous.
func (f *Fixture) Anonymous(q *models.Question) {
	require.NoError(f.t, f.DB.Model(q).Update("is_anonymous", true).Error)
	q.IsAnonymous = true
}

// Poll inserts a poll for q with one item per text, in order.
func (f *Fixture) Poll(q *models.Question, texts ...string) (*models.Poll, []models.PollItem) {
	p := &models.Poll{QuestionID: q.ID, ItemsCount: len(texts)}
	require.NoError(f.t, f.DB.Create(p).Error)

	items := make([]models.PollItem, 0, len(texts))
	for _, text := range texts {
		item := models.PollItem{PollID: p.ID, QuestionID: q.ID, Text: text}
		require.NoError(f.t, f.DB.Omit("Picture").Create(&item).Error)
		items = append(items, item)
	}
	return p, items
}

// AttachPicture links pic to item.
func (f *Fixture) AttachPicture(item *models.PollItem, pic *models.Picture) {
	require.NoError(f.t, f.DB.Model(item).Update("picture_id", pic.ID).Error)
	item.PictureID = &pic.ID
}

// Vote records user voting for item and bumps its counter.
func (f *Fixture) Vote(user *models.User, item models.PollItem) {
	require.NoError(f.t, f.DB.Create(&models.Vote{UserID: user.ID, PollItemID: item.ID, PollID: item.PollID}).Error)
	require.NoError(f.t, f.DB.Model(&models.PollItem{}).Where("id = ?", item.ID).
		Update("votes_count", gorm.Expr("votes_count + 1")).Error)
}

func (f *Fixture) Comment(q *models.Question, author *models.User, text string) *models.Comment {
	c := &models.Comment{Text: text, CreationDate: f.tick(), QuestionID: q.ID, AuthorID: author.ID}
	require.NoError(f.t, f.DB.Omit("Author").Create(c).Error)
	return c
}

func (f *Fixture) LikeComment(user *models.User, c *models.Comment) {
	require.NoError(f.t, f.DB.Create(&models.CommentLike{UserID: user.ID, CommentID: c.ID, QuestionID: c.QuestionID}).Error)
}

// PNG encodes a solid w x h image.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
