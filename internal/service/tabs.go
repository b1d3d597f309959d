package service

import (
	"context"
	"strings"

	"decider/internal/repository"
)

// Tab names a feed selection strategy.
type Tab string

const (
	TabNew       Tab = "new"
	TabPopular   Tab = "popular"
	TabDiscussed Tab = "discussed"
	TabMine      Tab = "mine"
)

// DefaultTab is used when the request names no tab.
const DefaultTab = TabNew

// FeedParams is a validated feed request.
type FeedParams struct {
	ViewerID    uint
	Limit       int
	Offset      int
	CategoryIDs []uint
}

// FeedStrategy fetches one page of questions for a tab.
type FeedStrategy struct {
	Tab   Tab
	fetch func(ctx context.Context, repo repository.QuestionRepository, p FeedParams) ([]repository.QuestionRow, error)
}

// Fetch runs the strategy against repo.
func (s FeedStrategy) Fetch(ctx context.Context, repo repository.QuestionRepository, p FeedParams) ([]repository.QuestionRow, error) {
	return s.fetch(ctx, repo, p)
}

func ordered(order repository.FeedOrder) func(context.Context, repository.QuestionRepository, FeedParams) ([]repository.QuestionRow, error) {
	return func(ctx context.Context, repo repository.QuestionRepository, p FeedParams) ([]repository.QuestionRow, error) {
		return repo.Feed(ctx, repository.FeedQuery{
			ViewerID:    p.ViewerID,
			Limit:       p.Limit,
			Offset:      p.Offset,
			CategoryIDs: p.CategoryIDs,
			Order:       order,
		})
	}
}

var tabs = map[Tab]FeedStrategy{
	TabNew:       {Tab: TabNew, fetch: ordered(repository.OrderNewest)},
	TabPopular:   {Tab: TabPopular, fetch: ordered(repository.OrderPopular)},
	TabDiscussed: {Tab: TabDiscussed, fetch: ordered(repository.OrderDiscussed)},
	TabMine: {Tab: TabMine, fetch: func(ctx context.Context, repo repository.QuestionRepository, p FeedParams) ([]repository.QuestionRow, error) {
		return repo.Feed(ctx, repository.FeedQuery{
			ViewerID:    p.ViewerID,
			Limit:       p.Limit,
			Offset:      p.Offset,
			CategoryIDs: p.CategoryIDs,
			AuthorID:    p.ViewerID,
			Order:       repository.OrderNewest,
		})
	}},
}

// ResolveTab maps a client tab name to its strategy. Matching ignores case
// and the empty name selects DefaultTab. Unknown names report false.
func ResolveTab(name string) (FeedStrategy, bool) {
	if name == "" {
		return tabs[DefaultTab], true
	}
	s, ok := tabs[Tab(strings.ToLower(name))]
	return s, ok
}

// Tabs lists the known tab names.
func Tabs() []Tab {
	return []Tab{TabNew, TabPopular, TabDiscussed, TabMine}
}
