package database

import "decider/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// parents before children.
func PersistentModels() []any {
	return []any{
		&models.User{},
		&models.Category{},
		&models.Picture{},
		&models.Question{},
		&models.Poll{},
		&models.PollItem{},
		&models.Vote{},
		&models.Comment{},
		&models.CommentLike{},
	}
}
