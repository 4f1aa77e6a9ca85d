package models

import "time"

// Bookmark verknüpft einen Benutzer mit einem gemerkten Artikel, eindeutig pro Paar.
type Bookmark struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id" gorm:"not null;uniqueIndex:idx_bookmarks_user_article"`
	ArticleID int64     `json:"article_id" gorm:"not null;uniqueIndex:idx_bookmarks_user_article"`
}

// TableName gibt explizit den Tabellennamen an.
func (Bookmark) TableName() string {
	return "bookmarks"
}
