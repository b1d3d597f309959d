package service

import (
	"context"
	"testing"

	"decider/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTab(t *testing.T) {
	tests := []struct {
		name   string
		want   Tab
		wantOK bool
	}{
		{"", TabNew, true},
		{"new", TabNew, true},
		{"NEW", TabNew, true},
		{"Popular", TabPopular, true},
		{"discussed", TabDiscussed, true},
		{"mIne", TabMine, true},
		{"bogus", "", false},
		{" new", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := ResolveTab(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, s.Tab)
			}
		})
	}
}

func TestTabs_EveryTabResolves(t *testing.T) {
	for _, tab := range Tabs() {
		s, ok := ResolveTab(string(tab))
		require.True(t, ok, tab)
		assert.Equal(t, tab, s.Tab)
	}
}

func TestFeedStrategies_BuildQuery(t *testing.T) {
	params := FeedParams{ViewerID: 7, Limit: 5, Offset: 10, CategoryIDs: []uint{1, 2}}

	tests := []struct {
		tab        Tab
		wantOrder  repository.FeedOrder
		wantAuthor uint
	}{
		{TabNew, repository.OrderNewest, 0},
		{TabPopular, repository.OrderPopular, 0},
		{TabDiscussed, repository.OrderDiscussed, 0},
		{TabMine, repository.OrderNewest, 7},
	}

	for _, tt := range tests {
		t.Run(string(tt.tab), func(t *testing.T) {
			repo := &questionRepoStub{}
			s, ok := ResolveTab(string(tt.tab))
			require.True(t, ok)

			_, err := s.Fetch(context.Background(), repo, params)
			require.NoError(t, err)
			require.Len(t, repo.feedQueries, 1)

			q := repo.feedQueries[0]
			assert.Equal(t, tt.wantOrder, q.Order)
			assert.Equal(t, tt.wantAuthor, q.AuthorID)
			assert.Equal(t, uint(7), q.ViewerID)
			assert.Equal(t, 5, q.Limit)
			assert.Equal(t, 10, q.Offset)
			assert.Equal(t, []uint{1, 2}, q.CategoryIDs)
		})
	}
}
