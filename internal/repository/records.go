package repository

import (
	"time"
)

// QuestionRow is one question with its author and optional poll id.
type QuestionRow struct {
	ID              uint
	Text            string
	CreationDate    time.Time
	CategoryID      uint
	LikesCount      int
	CommentsCount   int
	IsAnonymous     bool
	PollID          *uint
	AuthorID        uint
	AuthorUsername  string
	AuthorFirstName string
	AuthorLastName  string
	AuthorAvatarURL string
	Voted           bool
}

// PollItemRow is one poll item with its picture urls.
type PollItemRow struct {
	ID         uint
	PollID     uint
	QuestionID uint
	Text       string
	ImageURL   *string
	PreviewURL *string
	VotesCount int
	Voted      bool
}

// CommentRow is one comment with its author.
type CommentRow struct {
	ID              uint
	Text            string
	CreationDate    time.Time
	LikesCount      int
	AuthorID        uint
	AuthorUsername  string
	AuthorFirstName string
	AuthorLastName  string
	AuthorAvatarURL string
	Voted           bool
}

// DecodeQuestionRows reads question records by column name.
func DecodeQuestionRows(rs *RowSet) ([]QuestionRow, error) {
	out := make([]QuestionRow, 0, rs.Len())
	for i := 0; i < rs.Len(); i++ {
		r := &rowReader{rs: rs, row: i}
		row := QuestionRow{
			ID:              r.Uint("id"),
			Text:            r.String("text"),
			CreationDate:    r.Time("creation_date"),
			CategoryID:      r.Uint("category_id"),
			LikesCount:      r.Int("likes_count"),
			CommentsCount:   r.Int("comments_count"),
			IsAnonymous:     r.Bool("is_anonymous"),
			PollID:          r.OptionalUint("poll_id"),
			AuthorID:        r.Uint("author_id"),
			AuthorUsername:  r.String("author_username"),
			AuthorFirstName: r.String("author_first_name"),
			AuthorLastName:  r.String("author_last_name"),
			AuthorAvatarURL: r.String("author_avatar_url"),
			Voted:           r.Flag("voted"),
		}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, row)
	}
	return out, nil
}

// DecodePollItemRows reads poll item records by column name.
func DecodePollItemRows(rs *RowSet) ([]PollItemRow, error) {
	out := make([]PollItemRow, 0, rs.Len())
	for i := 0; i < rs.Len(); i++ {
		r := &rowReader{rs: rs, row: i}
		row := PollItemRow{
			ID:         r.Uint("id"),
			PollID:     r.Uint("poll_id"),
			QuestionID: r.Uint("question_id"),
			Text:       r.String("text"),
			ImageURL:   r.OptionalString("image_url"),
			PreviewURL: r.OptionalString("preview_url"),
			VotesCount: r.Int("votes_count"),
			Voted:      r.Flag("voted"),
		}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, row)
	}
	return out, nil
}

// DecodeCommentRows reads comment records by column name.
func DecodeCommentRows(rs *RowSet) ([]CommentRow, error) {
	out := make([]CommentRow, 0, rs.Len())
	for i := 0; i < rs.Len(); i++ {
		r := &rowReader{rs: rs, row: i}
		row := CommentRow{
			ID:              r.Uint("id"),
			Text:            r.String("text"),
			CreationDate:    r.Time("creation_date"),
			LikesCount:      r.Int("likes_count"),
			AuthorID:        r.Uint("author_id"),
			AuthorUsername:  r.String("author_username"),
			AuthorFirstName: r.String("author_first_name"),
			AuthorLastName:  r.String("author_last_name"),
			AuthorAvatarURL: r.String("author_avatar_url"),
			Voted:           r.Flag("voted"),
		}
		if r.err != nil {
			return nil, r.err
		}
		out = append(out, row)
	}
	return out, nil
}
