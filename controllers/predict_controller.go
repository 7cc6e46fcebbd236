package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/pneumoscan/inference"
)

// maxPredictBody caps the base64 JSON body of a predict request.
const maxPredictBody = 16 << 20

// PredictController exposes the image classifier.
type PredictController struct {
	classifier *inference.Classifier
	log        *zap.Logger
}

// NewPredictController creates a PredictController.
func NewPredictController(classifier *inference.Classifier, log *zap.Logger) *PredictController {
	return &PredictController{classifier: classifier, log: log}
}

// Page renders the upload page.
func (p *PredictController) Page(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "predict.html", gin.H{"Title": "Chest X-ray check"})
}

// Predict classifies a base64 image posted as JSON and answers {"result": label}.
// Any other method gets an empty 204.
func (p *PredictController) Predict(ctx *gin.Context) {
	if ctx.Request.Method != http.MethodPost {
		ctx.Status(http.StatusNoContent)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxPredictBody))
	if err != nil {
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}

	data, err := inference.DecodePayload(body)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := p.classifier.Classify(ctx.Request.Context(), data)
	switch {
	case err == nil:
	case errors.Is(err, inference.ErrDecode):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, inference.ErrModel):
		p.log.Error("inference failed", zap.Error(err))
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "model unavailable"})
		return
	default:
		p.log.Error("classify failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	p.log.Info("image classified", zap.String("key", res.Key), zap.String("label", res.Label), zap.Float64("score", res.Score))
	ctx.JSON(http.StatusOK, gin.H{"result": res.Label})
}
