package service

import (
	"context"
	"sync"

	"decider/internal/events"
	"decider/internal/repository"
)

// questionRepoStub is a stub for repository.QuestionRepository.
type questionRepoStub struct {
	feedFn        func(context.Context, repository.FeedQuery) ([]repository.QuestionRow, error)
	getByIDFn     func(context.Context, uint, uint) (*repository.QuestionRow, error)
	pollItemsFn   func(context.Context, uint, []uint) ([]repository.PollItemRow, error)
	commentsFn    func(context.Context, uint, uint) ([]repository.CommentRow, error)
	transactionFn func(context.Context, func(repository.QuestionStore) error) error

	feedQueries   []repository.FeedQuery
	pollItemCalls [][]uint
	commentCalls  int
}

func (s *questionRepoStub) Feed(ctx context.Context, q repository.FeedQuery) ([]repository.QuestionRow, error) {
	s.feedQueries = append(s.feedQueries, q)
	if s.feedFn == nil {
		return nil, nil
	}
	return s.feedFn(ctx, q)
}

func (s *questionRepoStub) GetByID(ctx context.Context, viewerID, id uint) (*repository.QuestionRow, error) {
	return s.getByIDFn(ctx, viewerID, id)
}

func (s *questionRepoStub) PollItems(ctx context.Context, viewerID uint, pollIDs []uint) ([]repository.PollItemRow, error) {
	s.pollItemCalls = append(s.pollItemCalls, pollIDs)
	if s.pollItemsFn == nil {
		return nil, nil
	}
	return s.pollItemsFn(ctx, viewerID, pollIDs)
}

func (s *questionRepoStub) Comments(ctx context.Context, viewerID, questionID uint) ([]repository.CommentRow, error) {
	s.commentCalls++
	if s.commentsFn == nil {
		return nil, nil
	}
	return s.commentsFn(ctx, viewerID, questionID)
}

func (s *questionRepoStub) Transaction(ctx context.Context, fn func(repository.QuestionStore) error) error {
	return s.transactionFn(ctx, fn)
}

// publisherStub records published events.
type publisherStub struct {
	mu     sync.Mutex
	events []events.QuestionCreated
	err    error
}

func (p *publisherStub) PublishQuestionCreated(_ context.Context, e events.QuestionCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *publisherStub) Backend() string { return "stub" }
func (p *publisherStub) Close() error    { return nil }

func (p *publisherStub) published() []events.QuestionCreated {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.QuestionCreated(nil), p.events...)
}

func uintPtr(v uint) *uint { return &v }

func strPtr(v string) *string { return &v }
