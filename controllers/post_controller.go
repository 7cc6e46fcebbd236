package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/pneumoscan/middleware"
	"github.com/cppla/pneumoscan/services"
)

// PostController serves the landing page and the blog.
type PostController struct {
	posts *services.PostService
	log   *zap.Logger
}

// NewPostController creates a new PostController instance.
func NewPostController(posts *services.PostService, log *zap.Logger) *PostController {
	return &PostController{posts: posts, log: log}
}

type postForm struct {
	Title    string `form:"title" binding:"required,max=100"`
	Subtitle string `form:"subtitle" binding:"max=100"`
	Author   string `form:"author" binding:"max=50"`
	Content  string `form:"content" binding:"required"`
}

// Landing renders the page shown right after login.
func (p *PostController) Landing(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "landing.html", gin.H{"Title": "Welcome", "User": username(ctx)})
}

// Article lists every post, newest first.
func (p *PostController) Article(ctx *gin.Context) {
	posts, err := p.posts.ListPosts(ctx.Request.Context())
	if err != nil {
		p.log.Error("list posts failed", zap.Error(err))
		renderError(ctx, http.StatusInternalServerError, "Failed to load articles")
		return
	}
	ctx.HTML(http.StatusOK, "article.html", gin.H{"Title": "Articles", "User": username(ctx), "Posts": posts})
}

// Post shows a single post.
func (p *PostController) Post(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		renderError(ctx, http.StatusNotFound, "Post not found")
		return
	}

	post, err := p.posts.GetPost(ctx.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			renderError(ctx, http.StatusNotFound, "Post not found")
			return
		}
		p.log.Error("get post failed", zap.Uint64("id", id), zap.Error(err))
		renderError(ctx, http.StatusInternalServerError, "Failed to load post")
		return
	}
	ctx.HTML(http.StatusOK, "post.html", gin.H{"Title": post.Title, "User": username(ctx), "Post": post})
}

// AddPage renders the new post form.
func (p *PostController) AddPage(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "add.html", gin.H{"Title": "New post", "User": username(ctx)})
}

// AddPost stores a new post and returns to the article list.
func (p *PostController) AddPost(ctx *gin.Context) {
	var form postForm
	if err := ctx.ShouldBind(&form); err != nil {
		ctx.HTML(http.StatusBadRequest, "add.html", gin.H{
			"Title": "New post",
			"User":  username(ctx),
			"Error": "Title and content are required",
			"Form":  form,
		})
		return
	}

	post, err := p.posts.CreatePost(ctx.Request.Context(), services.PostInput{
		Title:    form.Title,
		Subtitle: form.Subtitle,
		Author:   form.Author,
		Content:  form.Content,
	})
	if err != nil {
		p.log.Error("create post failed", zap.Error(err))
		renderError(ctx, http.StatusInternalServerError, "Failed to create post")
		return
	}
	p.log.Info("post created", zap.Uint("post_id", post.ID))
	ctx.Redirect(http.StatusSeeOther, "/article")
}

func username(ctx *gin.Context) string {
	if sess, ok := middleware.CurrentSession(ctx); ok {
		return sess.Username
	}
	return ""
}
