package repository

import (
	"strings"
)

type viewerTarget int

const (
	targetQuestion viewerTarget = iota
	targetPollItem
	targetComment
)

// Correlated EXISTS checks over the viewer's own actions. Aliases match the
// FROM clauses used by questionRepository.
var viewerFlagSQL = map[viewerTarget]string{
	targetQuestion: "EXISTS(SELECT 1 FROM votes WHERE votes.poll_id = p.id AND votes.user_id = ?) AS voted",
	targetPollItem: "EXISTS(SELECT 1 FROM votes WHERE votes.poll_item_id = pi.id AND votes.user_id = ?) AS voted",
	targetComment:  "EXISTS(SELECT 1 FROM comment_likes WHERE comment_likes.comment_id = c.id AND comment_likes.user_id = ?) AS voted",
}

// withViewerFlag appends the boolean "voted" column to selects. It adds a
// column only; the row count and identity of the base query are unchanged.
// Viewer 0 gets a constant false.
func withViewerFlag(selects []string, target viewerTarget, viewerID uint) (string, []any) {
	cols := make([]string, len(selects), len(selects)+1)
	copy(cols, selects)

	if viewerID == 0 {
		return strings.Join(append(cols, "false AS voted"), ", "), nil
	}
	return strings.Join(append(cols, viewerFlagSQL[target]), ", "), []any{viewerID}
}
