package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/pneumoscan/config"
	"github.com/cppla/pneumoscan/controllers"
	"github.com/cppla/pneumoscan/inference"
	"github.com/cppla/pneumoscan/metrics"
	"github.com/cppla/pneumoscan/middleware"
	"github.com/cppla/pneumoscan/services"
	"github.com/cppla/pneumoscan/utils"
	"github.com/cppla/pneumoscan/web"
)

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Config     config.AppConfig
	DB         *gorm.DB
	Users      *services.UserService
	Posts      *services.PostService
	Gate       *services.AuthGate
	Classifier *inference.Classifier
	// Captcha is nil when signup captchas are disabled.
	Captcha *utils.Captcha
	Guard   *utils.RegistrationGuard
	Logger  *zap.Logger
	// AccessLog receives one line per request. Logger is used when nil.
	AccessLog *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	access := deps.AccessLog
	if access == nil {
		access = log
	}

	r := gin.New()
	r.Use(middleware.Ginzap(access, time.RFC3339, true))
	r.Use(middleware.RecoveryWithZap(access, false))
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(web.Static()))

	authController := controllers.NewAuthController(deps.Users, deps.Gate, deps.Guard, deps.Captcha, cfg.SessionTTL(), log)
	postController := controllers.NewPostController(deps.Posts, log)
	predictController := controllers.NewPredictController(deps.Classifier, log)
	statsController := controllers.NewStatsController(deps.DB, deps.Users, deps.Posts, log)

	// separate buckets so login attempts do not eat into the predict budget
	authLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	predictLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/", predictController.Page)
	r.GET("/predict", predictController.Predict)
	r.POST("/predict", predictLimiter.Middleware(), predictController.Predict)

	r.GET("/signup", authController.SignupPage)
	r.POST("/signup", authLimiter.Middleware(), authController.Signup)
	r.GET("/login", authController.LoginPage)
	r.POST("/login", authLimiter.Middleware(), authController.Login)
	r.GET("/captcha", authLimiter.Middleware(), authController.Captcha)

	protected := r.Group("")
	protected.Use(middleware.SessionRequired(deps.Gate))
	protected.GET("/logout", authController.Logout)
	protected.POST("/logout", authController.Logout)
	for _, path := range []string{"/index", "/landing"} {
		protected.GET(path, postController.Landing)
		protected.POST(path, postController.Landing)
	}
	protected.GET("/article", postController.Article)
	protected.POST("/article", postController.Article)
	protected.GET("/post/:id", postController.Post)
	protected.POST("/post/:id", postController.Post)
	protected.GET("/add", postController.AddPage)
	protected.POST("/add", postController.AddPage)
	protected.POST("/addpost", postController.AddPost)

	api := r.Group("/api/v1")
	api.Use(middleware.APISessionRequired(deps.Gate))
	api.GET("/stats", statsController.GetStats)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.HTML(http.StatusNotFound, "error.html", gin.H{"Title": "Not Found", "Status": http.StatusNotFound, "Error": "Page not found"})
	})

	return r, nil
}
