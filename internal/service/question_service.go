// Package service holds the business logic behind the HTTP handlers.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"decider/internal/config"
	"decider/internal/events"
	"decider/internal/middleware"
	"decider/internal/models"
	"decider/internal/observability"
	"decider/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
)

// Messages shared with the handlers.
const (
	MsgInvalidParams = "Some parameters are invalid"
	MsgInvalidFields = "Some fields are invalid"
)

type QuestionService struct {
	repo         repository.QuestionRepository
	publisher    events.Publisher
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

// FeedInput carries the raw feed query parameters as received.
type FeedInput struct {
	ViewerID   uint
	Tab        string
	Limit      string
	Offset     string
	Categories []string
}

// CreatePollItemInput is one requested poll option.
type CreatePollItemInput struct {
	Text     string
	ImageUID string
}

type CreateQuestionInput struct {
	AuthorID    uint
	Text        string
	CategoryID  uint
	IsAnonymous bool
	Poll        []CreatePollItemInput
}

func NewQuestionService(repo repository.QuestionRepository, publisher events.Publisher, cfg *config.Config) *QuestionService {
	defaultLimit := DefaultFeedLimit
	maxLimit := MaxFeedLimit
	if cfg != nil {
		if cfg.FeedDefaultLimit > 0 {
			defaultLimit = cfg.FeedDefaultLimit
		}
		if cfg.FeedMaxLimit >= defaultLimit {
			maxLimit = cfg.FeedMaxLimit
		}
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &QuestionService{
		repo:         repo,
		publisher:    publisher,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ParseFeedParams validates the numeric feed parameters. Every malformed
// field is reported in one error.
func (s *QuestionService) ParseFeedParams(in FeedInput) (FeedParams, error) {
	p := FeedParams{ViewerID: in.ViewerID, Limit: s.defaultLimit}
	var bad []string

	if len(in.Categories) > 0 {
		ids := make([]uint, 0, len(in.Categories))
		for _, raw := range in.Categories {
			id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				bad = append(bad, "categories")
				ids = nil
				break
			}
			ids = append(ids, uint(id))
		}
		p.CategoryIDs = ids
	}

	if in.Limit != "" {
		limit, err := strconv.Atoi(strings.TrimSpace(in.Limit))
		switch {
		case err != nil:
			bad = append(bad, "limit")
		case limit <= 0:
			p.Limit = s.defaultLimit
		case limit > s.maxLimit:
			p.Limit = s.maxLimit
		default:
			p.Limit = limit
		}
	}

	if in.Offset != "" {
		offset, err := strconv.Atoi(strings.TrimSpace(in.Offset))
		switch {
		case err != nil:
			bad = append(bad, "offset")
		case offset > 0:
			p.Offset = offset
		}
	}

	if len(bad) > 0 {
		return FeedParams{}, models.NewValidationError(MsgInvalidParams, bad...)
	}
	return p, nil
}

// Feed assembles one page of the requested tab. The tab is checked before
// any other parameter.
func (s *QuestionService) Feed(ctx context.Context, in FeedInput) ([]models.QuestionView, error) {
	strategy, ok := ResolveTab(in.Tab)
	if !ok {
		return nil, models.NewAppError(models.KindUnknownTab, "")
	}
	params, err := s.ParseFeedParams(in)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.Start(ctx, "QuestionService.Feed",
		attribute.String("feed.tab", string(strategy.Tab)),
		attribute.Int("feed.limit", params.Limit),
		attribute.Int("feed.offset", params.Offset),
	)
	defer span.End()

	rows, err := strategy.Fetch(ctx, s.repo, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s feed: %w", strategy.Tab, observability.Fail(span, err))
	}
	observability.FeedRequests.WithLabelValues(string(strategy.Tab)).Inc()

	pollIDs := make([]uint, 0, len(rows))
	for _, row := range rows {
		if row.PollID != nil {
			pollIDs = append(pollIDs, *row.PollID)
		}
	}
	items, err := s.pollItems(ctx, params.ViewerID, pollIDs)
	if err != nil {
		return nil, observability.Fail(span, err)
	}

	views := make([]models.QuestionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, questionView(row, items[row.ID]))
	}
	span.SetAttributes(attribute.Int("feed.count", len(views)))
	return views, nil
}

// pollItems loads the items of every listed poll with at most one query and
// groups them by question id, each group sorted by item id.
func (s *QuestionService) pollItems(ctx context.Context, viewerID uint, pollIDs []uint) (map[uint][]models.PollItemView, error) {
	grouped := make(map[uint][]models.PollItemView)
	if len(pollIDs) == 0 {
		return grouped, nil
	}

	rows, err := s.repo.PollItems(ctx, viewerID, pollIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch poll items: %w", err)
	}
	observability.PollItemBatchSize.Observe(float64(len(pollIDs)))

	for _, row := range rows {
		grouped[row.QuestionID] = append(grouped[row.QuestionID], models.PollItemView{
			ID:         row.ID,
			Text:       row.Text,
			ImageURL:   row.ImageURL,
			PreviewURL: row.PreviewURL,
			VotesCount: row.VotesCount,
			Voted:      row.Voted,
		})
	}
	for qid := range grouped {
		group := grouped[qid]
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
	}
	return grouped, nil
}

// Detail returns one question with its poll and comments.
func (s *QuestionService) Detail(ctx context.Context, viewerID, questionID uint) (*models.QuestionDetailView, error) {
	if questionID == 0 {
		return nil, models.NewValidationError(MsgInvalidFields, "question_id")
	}

	ctx, span := observability.Start(ctx, "QuestionService.Detail", attribute.Int64("question.id", int64(questionID)))
	defer span.End()

	row, err := s.repo.GetByID(ctx, viewerID, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewAppError(models.KindUnknownQuestion, "")
		}
		return nil, fmt.Errorf("failed to fetch question %d: %w", questionID, observability.Fail(span, err))
	}

	var pollIDs []uint
	if row.PollID != nil {
		pollIDs = []uint{*row.PollID}
	}
	items, err := s.pollItems(ctx, viewerID, pollIDs)
	if err != nil {
		return nil, observability.Fail(span, err)
	}

	detail := &models.QuestionDetailView{QuestionView: questionView(*row, items[row.ID])}
	if row.CommentsCount > 0 {
		comments, err := s.repo.Comments(ctx, viewerID, row.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch comments of question %d: %w", row.ID, observability.Fail(span, err))
		}
		detail.Comments = make([]models.CommentView, 0, len(comments))
		for _, c := range comments {
			detail.Comments = append(detail.Comments, models.CommentView{
				ID:           c.ID,
				Text:         c.Text,
				CreationDate: c.CreationDate,
				LikesCount:   c.LikesCount,
				Author: &models.AuthorView{
					ID:        c.AuthorID,
					Username:  c.AuthorUsername,
					FirstName: c.AuthorFirstName,
					LastName:  c.AuthorLastName,
					AvatarURL: c.AuthorAvatarURL,
				},
				Voted: c.Voted,
			})
		}
	}
	return detail, nil
}

// questionView renders a row. Poll is null without a poll and an array, maybe
// empty, with one; anonymous questions hide their author.
func questionView(row repository.QuestionRow, items []models.PollItemView) models.QuestionView {
	v := models.QuestionView{
		ID:            row.ID,
		Text:          row.Text,
		CreationDate:  row.CreationDate,
		CategoryID:    row.CategoryID,
		LikesCount:    row.LikesCount,
		CommentsCount: row.CommentsCount,
		IsAnonymous:   row.IsAnonymous,
		Voted:         row.Voted,
	}
	if !row.IsAnonymous {
		v.Author = &models.AuthorView{
			ID:        row.AuthorID,
			Username:  row.AuthorUsername,
			FirstName: row.AuthorFirstName,
			LastName:  row.AuthorLastName,
			AvatarURL: row.AuthorAvatarURL,
		}
	}
	// A poll without items renders as [] on every endpoint; only a missing
	// poll is null.
	if row.PollID != nil {
		v.Poll = items
		if v.Poll == nil {
			v.Poll = []models.PollItemView{}
		}
	}
	return v
}

// ParseCreateQuestion decodes a creation payload. Missing required fields
// produce a required-params error naming all of them; malformed JSON is
// reported against "data".
func ParseCreateQuestion(authorID uint, raw []byte) (CreateQuestionInput, error) {
	in := CreateQuestionInput{AuthorID: authorID}
	if len(bytes.TrimSpace(raw)) == 0 {
		return in, models.NewRequiredParamsError("text", "poll", "category_id")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return in, models.NewValidationError(MsgInvalidFields, "data")
	}

	var missing []string
	if isBlank(fields["text"]) || string(fields["text"]) == `""` {
		missing = append(missing, "text")
	}
	if isBlank(fields["poll"]) || isEmptyArray(fields["poll"]) {
		missing = append(missing, "poll")
	}
	if isBlank(fields["category_id"]) || string(fields["category_id"]) == `""` {
		missing = append(missing, "category_id")
	}
	if len(missing) > 0 {
		return in, models.NewRequiredParamsError(missing...)
	}

	if err := json.Unmarshal(fields["text"], &in.Text); err != nil {
		return in, models.NewValidationError(MsgInvalidFields, "text")
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(fields["poll"], &items); err != nil {
		return in, models.NewValidationError(MsgInvalidFields, "poll")
	}
	in.Poll = make([]CreatePollItemInput, 0, len(items))
	for _, item := range items {
		var pi CreatePollItemInput
		// Non-string values are treated as absent.
		_ = json.Unmarshal(item["text"], &pi.Text)
		_ = json.Unmarshal(item["image_uid"], &pi.ImageUID)
		in.Poll = append(in.Poll, pi)
	}

	categoryID, ok := parseCategoryID(fields["category_id"])
	if !ok {
		return in, models.NewValidationError(MsgInvalidFields, "category_id")
	}
	in.CategoryID = categoryID

	in.IsAnonymous = string(bytes.TrimSpace(fields["is_anonymous"])) == "true"
	return in, nil
}

func isBlank(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

func isEmptyArray(raw json.RawMessage) bool {
	var arr []json.RawMessage
	return json.Unmarshal(raw, &arr) == nil && len(arr) == 0
}

// parseCategoryID accepts a positive integer given as a JSON number or string.
func parseCategoryID(raw json.RawMessage) (uint, bool) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, false
		}
		text = n.String()
	}
	id, err := strconv.ParseUint(strings.TrimSpace(text), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Create stores a question with its poll in one transaction and announces it
// once committed.
func (s *QuestionService) Create(ctx context.Context, in CreateQuestionInput) (*models.QuestionView, error) {
	ctx, span := observability.Start(ctx, "QuestionService.Create",
		attribute.Int64("question.category_id", int64(in.CategoryID)),
		attribute.Int("question.poll_items", len(in.Poll)),
	)
	defer span.End()

	var view models.QuestionView
	err := s.repo.Transaction(ctx, func(store repository.QuestionStore) error {
		exists, err := store.CategoryExists(in.CategoryID)
		if err != nil {
			return fmt.Errorf("failed to check category: %w", err)
		}
		if !exists {
			return models.NewAppError(models.KindUnknownCategory, "")
		}

		q := &models.Question{
			Text:         in.Text,
			CreationDate: s.now(),
			CategoryID:   in.CategoryID,
			AuthorID:     in.AuthorID,
			IsAnonymous:  in.IsAnonymous,
		}
		if err := store.CreateQuestion(q); err != nil {
			if errors.Is(err, repository.ErrForeignKey) {
				return models.NewAppError(models.KindUnknownCategory, "")
			}
			return fmt.Errorf("failed to create question: %w", err)
		}

		poll := &models.Poll{QuestionID: q.ID, ItemsCount: len(in.Poll)}
		if err := store.CreatePoll(poll); err != nil {
			return fmt.Errorf("failed to create poll: %w", err)
		}

		items := make([]models.PollItemView, 0, len(in.Poll))
		for _, requested := range in.Poll {
			pic := s.lookupPicture(ctx, store, requested.ImageUID)
			if requested.Text == "" {
				return models.NewValidationError(MsgInvalidFields, "poll_item.text")
			}

			item := &models.PollItem{PollID: poll.ID, QuestionID: q.ID, Text: requested.Text}
			itemView := models.PollItemView{Text: requested.Text}
			if pic != nil {
				item.PictureID = &pic.ID
				itemView.ImageURL = &pic.URL
				itemView.PreviewURL = &pic.PreviewURL
			}
			if err := store.CreatePollItem(item); err != nil {
				return fmt.Errorf("failed to create poll item: %w", err)
			}
			itemView.ID = item.ID
			items = append(items, itemView)
		}

		view = models.QuestionView{
			ID:           q.ID,
			Text:         q.Text,
			CreationDate: q.CreationDate,
			CategoryID:   q.CategoryID,
			Poll:         items,
			IsAnonymous:  q.IsAnonymous,
		}
		if !q.IsAnonymous {
			author, err := store.FindUser(in.AuthorID)
			if err != nil {
				return fmt.Errorf("failed to load author: %w", err)
			}
			view.Author = &models.AuthorView{
				ID:        author.ID,
				Username:  author.Username,
				FirstName: author.FirstName,
				LastName:  author.LastName,
				AvatarURL: author.AvatarURL,
			}
		}
		return nil
	})
	if err != nil {
		return nil, observability.Fail(span, err)
	}

	observability.QuestionsCreated.Inc()
	s.announce(ctx, view, in.AuthorID)
	return &view, nil
}

// lookupPicture resolves an image uid. Lookup failures leave the item without
// an image.
func (s *QuestionService) lookupPicture(ctx context.Context, store repository.QuestionStore, uid string) *models.Picture {
	if uid == "" {
		return nil
	}
	pic, err := store.FindPictureByUID(uid)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.Logger.WarnContext(ctx, "picture lookup failed", "image_uid", uid, "error", err)
		}
		return nil
	}
	return pic
}

func (s *QuestionService) announce(ctx context.Context, view models.QuestionView, authorID uint) {
	e := events.QuestionCreated{
		Type:        events.TypeQuestionCreated,
		QuestionID:  view.ID,
		CategoryID:  view.CategoryID,
		IsAnonymous: view.IsAnonymous,
		PollItems:   len(view.Poll),
		CreatedAt:   view.CreationDate,
	}
	if !view.IsAnonymous {
		e.AuthorID = authorID
	}
	if err := s.publisher.PublishQuestionCreated(ctx, e); err != nil {
		observability.EventPublishFailures.WithLabelValues(s.publisher.Backend()).Inc()
		middleware.Logger.WarnContext(ctx, "failed to publish question event",
			"question_id", view.ID, "backend", s.publisher.Backend(), "error", err)
	}
}
