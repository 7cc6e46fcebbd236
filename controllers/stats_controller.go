package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/pneumoscan/models"
	"github.com/cppla/pneumoscan/services"
	"github.com/cppla/pneumoscan/utils"
)

// StatsController reports counts of users, posts and archived scans.
type StatsController struct {
	db    *gorm.DB
	users *services.UserService
	posts *services.PostService
	log   *zap.Logger
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB, users *services.UserService, posts *services.PostService, log *zap.Logger) *StatsController {
	if log == nil {
		log = zap.NewNop()
	}
	return &StatsController{db: db, users: users, posts: posts, log: log}
}

// GetStats returns aggregate counts. Failing counters fall back to 0 instead of failing the endpoint.
func (s *StatsController) GetStats(ctx *gin.Context) {
	c := ctx.Request.Context()

	userCount, err := s.users.Count(c)
	if err != nil {
		s.log.Error("count users failed", zap.Error(err))
		userCount = 0
	}
	postCount, err := s.posts.Count(c)
	if err != nil {
		s.log.Error("count posts failed", zap.Error(err))
		postCount = 0
	}

	type labelCount struct {
		Label string
		Count int64
	}
	var rows []labelCount
	scans := map[string]int64{}
	if err := s.db.WithContext(c).Model(&models.Scan{}).
		Select("label, COUNT(*) AS count").
		Group("label").
		Scan(&rows).Error; err != nil {
		s.log.Error("count scans by label failed", zap.Error(err))
	} else {
		for _, r := range rows {
			scans[r.Label] = r.Count
		}
	}

	utils.Success(ctx, gin.H{
		"user_count": userCount,
		"post_count": postCount,
		"scans":      scans,
	})
}
