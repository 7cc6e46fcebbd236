package utils

import (
	"context"
	"time"

	"github.com/mojocn/base64Captcha"
	"github.com/redis/go-redis/v9"
)

// redisCaptchaStore keeps captcha answers in Redis so any instance can verify them.
type redisCaptchaStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCaptchaStore returns a base64Captcha.Store backed by client.
func NewRedisCaptchaStore(client *redis.Client, ttl time.Duration) base64Captcha.Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisCaptchaStore{client: client, ttl: ttl}
}

func (s *redisCaptchaStore) key(id string) string {
	return "captcha:" + id
}

func (s *redisCaptchaStore) Set(id string, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.client.Set(ctx, s.key(id), value, s.ttl).Err()
}

// Get returns the stored answer, deleting it when clear is set.
func (s *redisCaptchaStore) Get(id string, clear bool) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var (
		v   string
		err error
	)
	if clear {
		v, err = s.client.GetDel(ctx, s.key(id)).Result()
	} else {
		v, err = s.client.Get(ctx, s.key(id)).Result()
	}
	if err != nil {
		return ""
	}
	return v
}

func (s *redisCaptchaStore) Verify(id, answer string, clear bool) bool {
	v := s.Get(id, clear)
	return v != "" && v == answer
}
