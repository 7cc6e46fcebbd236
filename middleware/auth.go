package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/pneumoscan/services"
	"github.com/cppla/pneumoscan/utils"
)

const (
	// ContextSessionKey is the key used to store the authenticated session in Gin context.
	ContextSessionKey = "session"
	// SessionCookieName names the cookie carrying the session token.
	SessionCookieName = "session"
	// LoginPath is where unauthenticated page requests are sent.
	LoginPath = "/login"
)

// SessionRequired lets the request through only with a valid session; otherwise it redirects
// to the login view without running the rest of the chain.
func SessionRequired(gate *services.AuthGate) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		sess, err := gate.RequireSession(ctx.Request.Context(), TokenFromRequest(ctx))
		if err != nil {
			ctx.Redirect(http.StatusFound, LoginPath)
			ctx.Abort()
			return
		}
		ctx.Set(ContextSessionKey, sess)
		ctx.Next()
	}
}

// APISessionRequired is SessionRequired for JSON endpoints: it answers 401 instead of redirecting.
func APISessionRequired(gate *services.AuthGate) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		sess, err := gate.RequireSession(ctx.Request.Context(), TokenFromRequest(ctx))
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "unauthenticated")
			ctx.Abort()
			return
		}
		ctx.Set(ContextSessionKey, sess)
		ctx.Next()
	}
}

// TokenFromRequest reads the session token from the session cookie or a Bearer header.
func TokenFromRequest(ctx *gin.Context) string {
	if c, err := ctx.Cookie(SessionCookieName); err == nil && c != "" {
		return c
	}
	parts := strings.SplitN(ctx.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// CurrentSession returns the session stored by SessionRequired.
func CurrentSession(ctx *gin.Context) (*services.Session, bool) {
	v, ok := ctx.Get(ContextSessionKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*services.Session)
	return sess, ok
}
