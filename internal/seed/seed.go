// Package seed fills a development database with fake users, categories,
// questions, polls, votes and comments. Intended for development and tests.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"decider/internal/middleware"
	"decider/internal/models"
	"decider/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// DefaultCategories are created when Options.Categories is empty.
var DefaultCategories = []string{"Food", "Travel", "Fashion", "Tech", "Sport", "Music"}

type Options struct {
	Users     int
	Questions int
	// MaxItems bounds the poll size; polls get 2..MaxItems items.
	MaxItems   int
	Categories []string
	// SkipBcrypt stores the plain password, for fast local runs.
	SkipBcrypt bool
	// RandSeed makes the generated content reproducible when non-zero.
	RandSeed int64
}

// Result lists what a run created.
type Result struct {
	Users      []models.User
	Categories []models.Category
	Questions  []models.Question
}

type Seeder struct {
	db    *gorm.DB
	opts  Options
	faker *gofakeit.Faker
	now   time.Time
}

func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.Users <= 0 {
		opts.Users = 20
	}
	if opts.Questions <= 0 {
		opts.Questions = 60
	}
	if opts.MaxItems < 2 {
		opts.MaxItems = 4
	}
	if len(opts.Categories) == 0 {
		opts.Categories = DefaultCategories
	}
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{db: db, opts: opts, faker: gofakeit.New(seed), now: time.Now().UTC()}
}

// ClearAll deletes every seeded table, children first.
func (s *Seeder) ClearAll() error {
	for _, m := range []any{
		&models.CommentLike{}, &models.Comment{}, &models.Vote{}, &models.PollItem{},
		&models.Poll{}, &models.Question{}, &models.Picture{}, &models.Category{}, &models.User{},
	} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return fmt.Errorf("failed to clear %T: %w", m, err)
		}
	}
	return nil
}

// Run creates the configured data in one transaction. Denormalized counters
// match the inserted votes, comments and likes.
func (s *Seeder) Run() (*Result, error) {
	res := &Result{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		if res.Users, err = s.users(tx); err != nil {
			return err
		}
		if res.Categories, err = s.categories(tx); err != nil {
			return err
		}
		res.Questions, err = s.questions(tx, res.Users, res.Categories)
		return err
	})
	if err != nil {
		return nil, err
	}
	middleware.Logger.Info("seed complete",
		slog.Int("users", len(res.Users)),
		slog.Int("categories", len(res.Categories)),
		slog.Int("questions", len(res.Questions)),
	)
	return res, nil
}

func (s *Seeder) users(tx *gorm.DB) ([]models.User, error) {
	password := DefaultPassword
	if !s.opts.SkipBcrypt {
		hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		password = string(hashed)
	}

	users := make([]models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		username := fmt.Sprintf("%s%d", s.faker.Username(), i)
		users = append(users, models.User{
			Username:  username,
			Email:     fmt.Sprintf("%s@example.com", username),
			FirstName: s.faker.FirstName(),
			LastName:  s.faker.LastName(),
			AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", s.faker.UUID()),
			Password:  password,
			CreatedAt: s.now,
		})
	}
	if err := tx.Create(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	return users, nil
}

// categories goes through the repository so a cached catalogue is dropped.
func (s *Seeder) categories(tx *gorm.DB) ([]models.Category, error) {
	repo := repository.NewCategoryRepository(tx)
	categories := make([]models.Category, 0, len(s.opts.Categories))
	for _, name := range s.opts.Categories {
		category := models.Category{Name: name}
		if err := repo.Create(context.Background(), &category); err != nil {
			return nil, fmt.Errorf("failed to create category %q: %w", name, err)
		}
		categories = append(categories, category)
	}
	return categories, nil
}

func (s *Seeder) questions(tx *gorm.DB, users []models.User, categories []models.Category) ([]models.Question, error) {
	questions := make([]models.Question, 0, s.opts.Questions)
	for i := 0; i < s.opts.Questions; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		q := models.Question{
			Text:         s.faker.Question(),
			CreationDate: s.now.Add(-time.Duration(s.faker.Number(1, 60*24*30)) * time.Minute),
			CategoryID:   categories[s.faker.Number(0, len(categories)-1)].ID,
			AuthorID:     author.ID,
			IsAnonymous:  s.faker.Number(1, 10) == 1,
			LikesCount:   s.faker.Number(0, 50),
		}
		if err := tx.Omit("Category", "Author").Create(&q).Error; err != nil {
			return nil, fmt.Errorf("failed to create question: %w", err)
		}

		// Roughly one question in five has no poll.
		if s.faker.Number(1, 5) > 1 {
			if err := s.poll(tx, &q, users); err != nil {
				return nil, err
			}
		}
		if err := s.comments(tx, &q, users); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (s *Seeder) poll(tx *gorm.DB, q *models.Question, users []models.User) error {
	n := s.faker.Number(2, s.opts.MaxItems)
	poll := models.Poll{QuestionID: q.ID, ItemsCount: n}
	if err := tx.Create(&poll).Error; err != nil {
		return fmt.Errorf("failed to create poll: %w", err)
	}

	items := make([]models.PollItem, 0, n)
	for i := 0; i < n; i++ {
		item := models.PollItem{PollID: poll.ID, QuestionID: q.ID, Text: s.faker.Word()}
		if s.faker.Bool() {
			uid := uuid.NewString()
			pic := models.Picture{
				UID:        uid,
				URL:        fmt.Sprintf("https://picsum.photos/seed/%s/800/800", uid),
				PreviewURL: fmt.Sprintf("https://picsum.photos/seed/%s/200/200", uid),
				CreatedAt:  s.now,
			}
			if err := tx.Create(&pic).Error; err != nil {
				return fmt.Errorf("failed to create picture: %w", err)
			}
			item.PictureID = &pic.ID
		}
		if err := tx.Omit("Picture").Create(&item).Error; err != nil {
			return fmt.Errorf("failed to create poll item: %w", err)
		}
		items = append(items, item)
	}

	// Each voter picks one item.
	for _, u := range users {
		if s.faker.Number(1, 3) != 1 {
			continue
		}
		idx := s.faker.Number(0, n-1)
		if err := tx.Create(&models.Vote{UserID: u.ID, PollItemID: items[idx].ID, PollID: poll.ID}).Error; err != nil {
			return fmt.Errorf("failed to create vote: %w", err)
		}
		items[idx].VotesCount++
	}
	for _, item := range items {
		if item.VotesCount == 0 {
			continue
		}
		if err := tx.Model(&models.PollItem{}).Where("id = ?", item.ID).
			Update("votes_count", item.VotesCount).Error; err != nil {
			return fmt.Errorf("failed to update votes: %w", err)
		}
	}
	return nil
}

func (s *Seeder) comments(tx *gorm.DB, q *models.Question, users []models.User) error {
	n := s.faker.Number(0, 5)
	for i := 0; i < n; i++ {
		c := models.Comment{
			Text:         s.faker.Sentence(s.faker.Number(3, 12)),
			CreationDate: q.CreationDate.Add(time.Duration(i+1) * time.Minute),
			QuestionID:   q.ID,
			AuthorID:     users[s.faker.Number(0, len(users)-1)].ID,
		}
		if err := tx.Omit("Author").Create(&c).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}

		likes := 0
		for _, u := range users {
			if s.faker.Number(1, 4) != 1 {
				continue
			}
			if err := tx.Create(&models.CommentLike{UserID: u.ID, CommentID: c.ID, QuestionID: q.ID}).Error; err != nil {
				return fmt.Errorf("failed to create comment like: %w", err)
			}
			likes++
		}
		if likes > 0 {
			if err := tx.Model(&c).Update("likes_count", likes).Error; err != nil {
				return fmt.Errorf("failed to update comment likes: %w", err)
			}
		}
	}

	if n > 0 {
		if err := tx.Model(q).Update("comments_count", n).Error; err != nil {
			return fmt.Errorf("failed to update comments count: %w", err)
		}
		q.CommentsCount = n
	}
	return nil
}
