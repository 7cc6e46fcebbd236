package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/cppla/pneumoscan/models"
)

// PostCache is a read-through cache in front of the post table.
type PostCache interface {
	List(ctx context.Context) ([]models.Post, bool)
	SetList(ctx context.Context, posts []models.Post)
	Post(ctx context.Context, id uint) (*models.Post, bool)
	SetPost(ctx context.Context, post *models.Post)
	InvalidateList(ctx context.Context)
}

type nopPostCache struct{}

func (nopPostCache) List(context.Context) ([]models.Post, bool) { return nil, false }
func (nopPostCache) SetList(context.Context, []models.Post) {}
func (nopPostCache) Post(context.Context, uint) (*models.Post, bool) { return nil, false }
func (nopPostCache) SetPost(context.Context, *models.Post) {}
func (nopPostCache) InvalidateList(context.Context) {}

const (
	postListKey       = "cache:posts:list"
	postDetailPrefix  = "cache:post:detail:"
	defaultPostTTL    = time.Hour
	postCacheDeadline = 2 * time.Second
)

// RedisPostCache stores JSON encoded posts in redis. Failures are logged and treated as misses.
type RedisPostCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisPostCache creates a redis backed PostCache; ttl <= 0 means one hour.
func NewRedisPostCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisPostCache {
	if ttl <= 0 {
		ttl = defaultPostTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisPostCache{client: client, ttl: ttl, log: log}
}

func (c *RedisPostCache) List(ctx context.Context) ([]models.Post, bool) {
	var posts []models.Post
	if !c.get(ctx, postListKey, &posts) {
		return nil, false
	}
	return posts, true
}

func (c *RedisPostCache) SetList(ctx context.Context, posts []models.Post) {
	c.set(ctx, postListKey, posts)
}

func (c *RedisPostCache) Post(ctx context.Context, id uint) (*models.Post, bool) {
	var post models.Post
	if !c.get(ctx, postDetailKey(id), &post) {
		return nil, false
	}
	return &post, true
}

func (c *RedisPostCache) SetPost(ctx context.Context, post *models.Post) {
	c.set(ctx, postDetailKey(post.ID), post)
}

func (c *RedisPostCache) InvalidateList(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, postCacheDeadline)
	defer cancel()
	if err := c.client.Del(ctx, postListKey).Err(); err != nil {
		c.log.Warn("cache invalidate failed", zap.String("key", postListKey), zap.Error(err))
	}
}

func (c *RedisPostCache) get(ctx context.Context, key string, out interface{}) bool {
	ctx, cancel := context.WithTimeout(ctx, postCacheDeadline)
	defer cancel()
	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return json.Unmarshal(b, out) == nil
}

func (c *RedisPostCache) set(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, postCacheDeadline)
	defer cancel()
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func postDetailKey(id uint) string {
	return postDetailPrefix + strconv.FormatUint(uint64(id), 10)
}
