package repository

import (
	"context"

	"gorm.io/gorm/clause"

	"protein-atlas/models"
)

// ListBookmarks liefert die Artikel-IDs, die der Benutzer gemerkt hat.
func (r *Postgres) ListBookmarks(ctx context.Context, userID string) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&models.Bookmark{}).
		Where("user_id = ?", userID).
		Order("article_id").
		Pluck("article_id", &ids).Error
	if err != nil {
		return nil, classify("list bookmarks", err)
	}
	return ids, nil
}

// AddBookmark legt ein Bookmark an; ein bestehendes bleibt unverändert.
func (r *Postgres) AddBookmark(ctx context.Context, userID string, articleID int64) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "article_id"}},
		DoNothing: true,
	}).Create(&models.Bookmark{UserID: userID, ArticleID: articleID}).Error
	return classify("add bookmark", err)
}

// RemoveBookmark löscht ein Bookmark und meldet, ob eines existierte.
func (r *Postgres) RemoveBookmark(ctx context.Context, userID string, articleID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND article_id = ?", userID, articleID).
		Delete(&models.Bookmark{})
	if res.Error != nil {
		return false, classify("remove bookmark", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ArticleExists prüft, ob ein Artikel mit der ID existiert.
func (r *Postgres) ArticleExists(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Article{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, classify("article exists", err)
	}
	return n > 0, nil
}
