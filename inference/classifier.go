// Package inference turns an uploaded chest X-ray into a PNEUMONIA / NORMAL label.
package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/webp" // register decoder
	"gorm.io/gorm"

	"github.com/cppla/pneumoscan/events"
	"github.com/cppla/pneumoscan/metrics"
	"github.com/cppla/pneumoscan/models"
)

const (
	// InputSize is the square resolution the model was trained on.
	InputSize = 64
	// Threshold splits the model's sigmoid output; scores above it are PNEUMONIA.
	Threshold = 0.5

	// MaxDimension bounds the declared width and height of an upload; larger images are
	// rejected before any pixel buffer is allocated.
	MaxDimension = 8192

	LabelPneumonia = "PNEUMONIA"
	LabelNormal    = "NORMAL"
)

var (
	// ErrDecode is returned when the upload is not a decodable image.
	ErrDecode = errors.New("invalid image")
	// ErrModel is returned when the model server fails to produce a score.
	ErrModel = errors.New("model inference failed")
)

// Result is the outcome of one classification.
type Result struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// LabelFor maps a model score to its class label.
func LabelFor(score float64) string {
	if score > Threshold {
		return LabelPneumonia
	}
	return LabelNormal
}

// Options configures the optional side effects of a Classifier.
type Options struct {
	// Archive and DB together enable keeping each classified image with a Scan row.
	Archive   Archive
	DB        *gorm.DB
	Retention time.Duration
	Events    events.Publisher
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Classifier runs the decode, preprocess, predict, label pipeline.
type Classifier struct {
	model     Model
	archive   Archive
	db        *gorm.DB
	retention time.Duration
	events    events.Publisher
	timeout   time.Duration
	log       *zap.Logger
	now       func() time.Time
}

// NewClassifier creates a Classifier around model.
func NewClassifier(model Model, opts Options) *Classifier {
	c := &Classifier{
		model:     model,
		archive:   opts.Archive,
		db:        opts.DB,
		retention: opts.Retention,
		events:    opts.Events,
		timeout:   opts.Timeout,
		log:       opts.Logger,
		now:       time.Now,
	}
	if c.events == nil {
		c.events = events.NopPublisher{}
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.retention <= 0 {
		c.retention = time.Hour
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Classify decodes data, runs one forward pass and labels the result.
// Nothing is stored when data is not an image.
func (c *Classifier) Classify(ctx context.Context, data []byte) (*Result, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, fmt.Errorf("%w: image is %dx%d, limit is %dx%d", ErrDecode, cfg.Width, cfg.Height, MaxDimension, MaxDimension)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	input := Preprocess(img)

	mctx, cancel := context.WithTimeout(ctx, c.timeout)
	start := time.Now()
	score, err := c.model.Predict(mctx, input)
	cancel()
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModel, err)
	}

	res := &Result{Key: uuid.NewString(), Label: LabelFor(score), Score: score}
	metrics.ClassificationsTotal.WithLabelValues(res.Label).Inc()

	c.keep(ctx, res, data, format)

	if err := c.events.Publish(ctx, events.ScanClassified{Key: res.Key, Label: res.Label, Score: res.Score, At: c.now()}); err != nil {
		c.log.Warn("publish scan event failed", zap.String("key", res.Key), zap.Error(err))
	}
	return res, nil
}

// keep archives the image under the request's own key. Failures are logged, the
// classification result stands regardless.
func (c *Classifier) keep(ctx context.Context, res *Result, data []byte, format string) {
	if c.archive == nil || c.db == nil {
		return
	}
	contentType := "image/" + format
	location, err := c.archive.Save(ctx, res.Key, format, contentType, data)
	if err != nil {
		c.log.Warn("archive scan failed", zap.String("key", res.Key), zap.Error(err))
		return
	}

	now := c.now().UTC()
	scan := models.Scan{
		Key:         res.Key,
		Label:       res.Label,
		Score:       res.Score,
		ContentType: contentType,
		Size:        int64(len(data)),
		Backend:     c.archive.Name(),
		Location:    location,
		ExpireAt:    now.Add(c.retention),
		CreatedAt:   now,
	}
	if err := c.db.WithContext(ctx).Create(&scan).Error; err != nil {
		c.log.Warn("record scan failed", zap.String("key", res.Key), zap.Error(err))
		_ = c.archive.Delete(ctx, location)
	}
}
