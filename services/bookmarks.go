package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"protein-atlas/search"
)

// ErrInvalidUser: die Benutzer-ID ist keine UUID.
var ErrInvalidUser = errors.New("invalid user id")

// BookmarkStore ist die Persistenz der Bookmarks.
type BookmarkStore interface {
	ListBookmarks(ctx context.Context, userID string) ([]int64, error)
	AddBookmark(ctx context.Context, userID string, articleID int64) error
	// RemoveBookmark meldet, ob ein Bookmark gelöscht wurde.
	RemoveBookmark(ctx context.Context, userID string, articleID int64) (bool, error)
	ArticleExists(ctx context.Context, id int64) (bool, error)
}

// BookmarkService verwaltet die Bookmarks eines Benutzers. Alle Mutationen
// sind idempotent.
type BookmarkService struct {
	store BookmarkStore
	log   *zap.Logger
}

func NewBookmarkService(store BookmarkStore, log *zap.Logger) *BookmarkService {
	return &BookmarkService{store: store, log: log}
}

func normalizeUser(userID string) (string, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	return id.String(), nil
}

// List liefert die gemerkten Artikel-IDs; ohne Benutzer ist die Liste leer.
func (s *BookmarkService) List(ctx context.Context, userID string) ([]int64, error) {
	if userID == "" {
		return []int64{}, nil
	}
	uid, err := normalizeUser(userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListBookmarks(ctx, uid)
}

// Add merkt einen Artikel; ein bestehendes Bookmark bleibt unverändert.
func (s *BookmarkService) Add(ctx context.Context, userID string, articleID int64) error {
	uid, err := normalizeUser(userID)
	if err != nil {
		return err
	}
	exists, err := s.store.ArticleExists(ctx, articleID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("article %d: %w", articleID, search.ErrNotFound)
	}
	if err := s.store.AddBookmark(ctx, uid, articleID); err != nil {
		return err
	}
	s.log.Info("Bookmark added", zap.String("user_id", uid), zap.Int64("article_id", articleID))
	return nil
}

// Remove entfernt ein Bookmark; fehlt es, passiert nichts.
func (s *BookmarkService) Remove(ctx context.Context, userID string, articleID int64) error {
	uid, err := normalizeUser(userID)
	if err != nil {
		return err
	}
	removed, err := s.store.RemoveBookmark(ctx, uid, articleID)
	if err != nil {
		return err
	}
	if removed {
		s.log.Info("Bookmark removed", zap.String("user_id", uid), zap.Int64("article_id", articleID))
	}
	return nil
}

// Toggle kehrt den Zustand um und liefert den neuen Zustand zurück. Das
// Löschen entscheidet: hat es nichts entfernt, wird das Bookmark angelegt.
func (s *BookmarkService) Toggle(ctx context.Context, userID string, articleID int64) (bool, error) {
	uid, err := normalizeUser(userID)
	if err != nil {
		return false, err
	}
	removed, err := s.store.RemoveBookmark(ctx, uid, articleID)
	if err != nil {
		return false, err
	}
	if removed {
		s.log.Info("Bookmark removed", zap.String("user_id", uid), zap.Int64("article_id", articleID))
		return false, nil
	}
	return true, s.Add(ctx, uid, articleID)
}
