package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/pneumoscan/metrics"
	"github.com/cppla/pneumoscan/middleware"
	"github.com/cppla/pneumoscan/services"
	"github.com/cppla/pneumoscan/utils"
)

// AuthController handles signup, login and logout.
type AuthController struct {
	users      *services.UserService
	gate       *services.AuthGate
	guard      *utils.RegistrationGuard
	captcha    *utils.Captcha
	sessionTTL time.Duration
	log        *zap.Logger
}

// NewAuthController creates an AuthController. captcha is nil when signup captchas are disabled.
func NewAuthController(users *services.UserService, gate *services.AuthGate, guard *utils.RegistrationGuard,
	captcha *utils.Captcha, sessionTTL time.Duration, log *zap.Logger) *AuthController {
	return &AuthController{users: users, gate: gate, guard: guard, captcha: captcha, sessionTTL: sessionTTL, log: log}
}

type credentialsForm struct {
	Username      string `form:"username" binding:"required,min=4,max=20"`
	Password      string `form:"password" binding:"required,min=4,max=20"`
	CaptchaID     string `form:"captcha_id"`
	CaptchaAnswer string `form:"captcha_answer"`
}

const credentialsHint = "Username and password must be 4-20 characters"

// SignupPage renders the registration form.
func (a *AuthController) SignupPage(ctx *gin.Context) {
	a.renderSignup(ctx, http.StatusOK, "")
}

// Signup registers a user and sends them to the login view.
func (a *AuthController) Signup(ctx *gin.Context) {
	var form credentialsForm
	if err := ctx.ShouldBind(&form); err != nil {
		a.renderSignup(ctx, http.StatusBadRequest, credentialsHint)
		return
	}

	if a.captcha != nil && !a.captcha.Verify(form.CaptchaID, form.CaptchaAnswer) {
		a.renderSignup(ctx, http.StatusBadRequest, "Captcha answer is wrong")
		return
	}

	ip := ctx.ClientIP()
	if !a.guard.Allow(ctx.Request.Context(), ip) {
		a.renderSignup(ctx, http.StatusTooManyRequests, "Too many registrations from this address today")
		return
	}

	user, err := a.users.Register(ctx.Request.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateUsername) {
			a.renderSignup(ctx, http.StatusConflict, "This username is taken please choose another")
			return
		}
		a.log.Error("register failed", zap.String("username", form.Username), zap.Error(err))
		renderError(ctx, http.StatusInternalServerError, "Registration failed")
		return
	}

	a.guard.Record(ctx.Request.Context(), ip)
	a.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	ctx.Redirect(http.StatusSeeOther, middleware.LoginPath)
}

// LoginPage renders the login form.
func (a *AuthController) LoginPage(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "login.html", gin.H{"Title": "Login"})
}

// Login verifies credentials, sets the session cookie and opens the landing page.
func (a *AuthController) Login(ctx *gin.Context) {
	var form credentialsForm
	if err := ctx.ShouldBind(&form); err != nil {
		ctx.HTML(http.StatusBadRequest, "login.html", gin.H{"Title": "Login", "Error": credentialsHint})
		return
	}

	sess, token, err := a.gate.Login(ctx.Request.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
			ctx.HTML(http.StatusUnauthorized, "login.html", gin.H{"Title": "Login", "Error": "Invalid username or password"})
			return
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		a.log.Error("login failed", zap.String("username", form.Username), zap.Error(err))
		renderError(ctx, http.StatusInternalServerError, "Login failed")
		return
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookieName, token, int(a.sessionTTL.Seconds()), "/", "", ctx.Request.TLS != nil, true)
	a.log.Info("user logged in", zap.Uint("user_id", sess.UserID), zap.String("session", sess.ID))
	ctx.Redirect(http.StatusSeeOther, "/index")
}

// Logout ends the current session.
func (a *AuthController) Logout(ctx *gin.Context) {
	if sess, ok := middleware.CurrentSession(ctx); ok {
		if err := a.gate.Logout(ctx.Request.Context(), sess); err != nil {
			a.log.Error("logout failed", zap.String("session", sess.ID), zap.Error(err))
			renderError(ctx, http.StatusInternalServerError, "Logout failed")
			return
		}
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.SessionCookieName, "", -1, "/", "", ctx.Request.TLS != nil, true)
	ctx.Redirect(http.StatusSeeOther, middleware.LoginPath)
}

// Captcha issues a signup captcha.
func (a *AuthController) Captcha(ctx *gin.Context) {
	if a.captcha == nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "captcha disabled")
		return
	}
	id, img, err := a.captcha.Generate()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"captcha_id": id, "image": img})
}

func (a *AuthController) renderSignup(ctx *gin.Context, status int, msg string) {
	ctx.HTML(status, "signup.html", gin.H{"Title": "Sign up", "Error": msg, "Captcha": a.captcha != nil})
}

func renderError(ctx *gin.Context, status int, msg string) {
	ctx.HTML(status, "error.html", gin.H{"Title": http.StatusText(status), "Status": status, "Error": msg})
}
