package utils

import (
	"time"

	"github.com/mojocn/base64Captcha"
	"github.com/redis/go-redis/v9"
)

// Captcha issues digit captchas for the signup form.
type Captcha struct {
	store  base64Captcha.Store
	driver base64Captcha.Driver
}

// NewCaptcha creates a captcha generator. Answers live in Redis when client is set, in memory otherwise.
func NewCaptcha(client *redis.Client) *Captcha {
	var store base64Captcha.Store
	if client != nil {
		store = NewRedisCaptchaStore(client, 10*time.Minute)
	} else {
		store = base64Captcha.NewMemoryStore(10240, 10*time.Minute)
	}
	return &Captcha{
		store: store,
		// width 120, height 40, 5 digits
		driver: base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80),
	}
}

// Generate creates a captcha and returns its id and an image data URI.
func (c *Captcha) Generate() (string, string, error) {
	id, b64, _, err := base64Captcha.NewCaptcha(c.driver, c.store).Generate()
	return id, b64, err
}

// Verify checks the answer and consumes the captcha whatever the outcome.
func (c *Captcha) Verify(id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	return c.store.Verify(id, answer, true)
}
