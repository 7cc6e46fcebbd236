package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"github.com/cppla/pneumoscan/models"
)

var (
	// contentPolicy strips scripts and unsafe attributes from post bodies, which are rendered as HTML.
	contentPolicy = bluemonday.UGCPolicy()
	// textPolicy removes all markup from the plain-text fields.
	textPolicy = bluemonday.StrictPolicy()
)

// PostInput carries the author-supplied fields of a new post.
type PostInput struct {
	Title    string
	Subtitle string
	Author   string
	Content  string
}

// PostService is the content store. It exclusively owns Post records.
type PostService struct {
	db    *gorm.DB
	cache PostCache
	now   func() time.Time

	// mu serializes inserts so created_at never goes backwards in insertion order.
	mu   sync.Mutex
	last time.Time
	// generation changes on every insert; a list read across a change is not cached.
	generation atomic.Uint64
}

// NewPostService creates a PostService. cache may be nil.
func NewPostService(db *gorm.DB, cache PostCache) *PostService {
	if cache == nil {
		cache = nopPostCache{}
	}
	return &PostService{db: db, cache: cache, now: time.Now}
}

// ListPosts returns every post, newest first.
func (s *PostService) ListPosts(ctx context.Context) ([]models.Post, error) {
	if posts, ok := s.cache.List(ctx); ok {
		return posts, nil
	}

	gen := s.generation.Load()
	var posts []models.Post
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if s.generation.Load() == gen {
		s.cache.SetList(ctx, posts)
		// an insert between the check and the write may have invalidated before we stored
		if s.generation.Load() != gen {
			s.cache.InvalidateList(ctx)
		}
	}
	return posts, nil
}

// GetPost returns the post with the given id or ErrNotFound.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	if post, ok := s.cache.Post(ctx, id); ok {
		return post, nil
	}

	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	s.cache.SetPost(ctx, &post)
	return &post, nil
}

// CreatePost stamps the post with the current time and stores it.
func (s *PostService) CreatePost(ctx context.Context, in PostInput) (*models.Post, error) {
	post := models.Post{
		Title:    plainText(in.Title),
		Subtitle: plainText(in.Subtitle),
		Author:   plainText(in.Author),
		Content:  contentPolicy.Sanitize(in.Content),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC()
	if ts.Before(s.last) {
		ts = s.last
	}
	post.CreatedAt = ts

	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.last = ts
	s.generation.Add(1)
	s.cache.InvalidateList(ctx)
	return &post, nil
}

// Count returns the number of stored posts.
func (s *PostService) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).Count(&n).Error
	return n, err
}

// plainText strips markup and surrounding space. Entities are decoded again since views escape on render.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}
