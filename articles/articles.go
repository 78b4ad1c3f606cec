package articles

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"

	"tribuna/common"
	"tribuna/models"
	"tribuna/writers"
)

type ArticleModule struct {
	db      *gorm.DB
	writers *writers.WriterModule
}

// markdown renderer configured with Goldmark and useful extensions
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithUnsafe(),
	),
)

func NewArticleModule(db *gorm.DB, writerModule *writers.WriterModule) *ArticleModule {
	return &ArticleModule{db: db, writers: writerModule}
}

func (a *ArticleModule) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/articles", a.createArticle)
		api.GET("/articles", a.listArticles)
		api.GET("/articles/id/:id", a.getArticleByID)
		api.GET("/articles/title/:title", a.getArticleByTitle)
		api.DELETE("/articles/id/:id", a.deleteArticle)
		api.POST("/articles/id/:id/like", a.likeArticle)
		api.DELETE("/articles/id/:id/like", a.unlikeArticle)
	}
}

type CreateArticleRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
	MainImage   string `json:"main_image"`
	Content     string `json:"content" binding:"required"`
	WriterIDs   []int  `json:"writer_ids" binding:"required,min=1"`
}

type ArticleSummary struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	MainImage    string    `json:"main_image"`
	PublishedAt  time.Time `json:"published_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LikeCount    int64     `json:"like_count"`
	CommentCount int64     `json:"comment_count"`
}

type ArticleFull struct {
	ArticleSummary
	Content     string `json:"content"`
	ContentHTML string `json:"content_html"`
	WriterIDs   []int  `json:"writer_ids"`
}

type likeRequest struct {
	UserID int `json:"user_id" binding:"required"`
}

type listQuery struct {
	common.PageQuery
	Categories []string `form:"categories"`
}

func (a *ArticleModule) createArticle(c *gin.Context) {
	var req CreateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	article, err := a.CreateArticle(req)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, article)
}

func (a *ArticleModule) listArticles(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.Normalize()

	items, total, err := a.ListArticles(q.Categories, q.PageQuery)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load articles"})
		return
	}

	c.JSON(http.StatusOK, common.NewPage(items, total, q.PageQuery))
}

func (a *ArticleModule) getArticleByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	article, lookupErr := a.GetArticleByID(id)
	if lookupErr != nil {
		common.AbortWithError(c, lookupErr)
		return
	}

	c.JSON(http.StatusOK, article)
}

func (a *ArticleModule) getArticleByTitle(c *gin.Context) {
	article, err := a.GetArticleByTitle(c.Param("title"))
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, article)
}

func (a *ArticleModule) deleteArticle(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := a.DeleteArticle(id); err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *ArticleModule) likeArticle(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	like, likeErr := a.LikeArticle(id, req.UserID)
	if likeErr != nil {
		common.AbortWithError(c, likeErr)
		return
	}

	c.JSON(http.StatusCreated, like)
}

func (a *ArticleModule) unlikeArticle(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var req likeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := a.UnlikeArticle(id, req.UserID); err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateArticle persists the summary row, the detail row and the writer
// byline links as one logical unit. Writer ids that do not resolve are
// silently dropped.
func (a *ArticleModule) CreateArticle(req CreateArticleRequest) (*ArticleFull, error) {
	var existing models.Article
	if err := a.db.Where("title = ?", req.Title).First(&existing).Error; err == nil {
		return nil, common.BadRequest("an article with this title already exists")
	}

	resolved, err := a.writers.ResolveWriters(req.WriterIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	article := models.Article{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		MainImage:   req.MainImage,
		PublishedAt: now,
		UpdatedAt:   now,
	}

	if err := a.db.Create(&article).Error; err != nil {
		return nil, common.BadRequest("could not create article")
	}

	detail := models.ArticleDetail{
		ArticleID: article.ID,
		Body:      req.Content,
	}
	if err := a.db.Create(&detail).Error; err != nil {
		a.db.Delete(&article)
		return nil, common.BadRequest("could not create article detail")
	}

	writerIDs := make([]int, 0, len(resolved))
	for _, w := range resolved {
		link := models.ArticleWriter{ArticleID: article.ID, WriterID: w.ID}
		if err := a.db.Create(&link).Error; err != nil {
			return nil, err
		}
		writerIDs = append(writerIDs, w.ID)
	}

	return &ArticleFull{
		ArticleSummary: ArticleSummary{
			ID:          article.ID,
			Title:       article.Title,
			Description: article.Description,
			Category:    article.Category,
			MainImage:   article.MainImage,
			PublishedAt: article.PublishedAt,
			UpdatedAt:   article.UpdatedAt,
		},
		Content:     detail.Body,
		ContentHTML: renderMarkdown(detail.Body),
		WriterIDs:   writerIDs,
	}, nil
}

// ListArticles returns one page of article summaries, optionally restricted
// to the given categories. An empty category list means all articles.
func (a *ArticleModule) ListArticles(categories []string, q common.PageQuery) ([]ArticleSummary, int64, error) {
	filtered := func() *gorm.DB {
		query := a.db.Model(&models.Article{})
		if len(categories) > 0 {
			query = query.Where("category IN ?", categories)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := filtered()
	switch q.OrderBy {
	case common.OrderLikes:
		query = query.Select("articles.*").
			Joins("LEFT JOIN article_likes ON article_likes.article_id = articles.id").
			Group("articles.id").
			Order("COUNT(article_likes.id) DESC")
	case common.OrderComments, common.OrderResponses:
		query = query.Select("articles.*").
			Joins("LEFT JOIN comments ON comments.article_id = articles.id AND comments.parent_comment_id IS NULL").
			Group("articles.id").
			Order("COUNT(comments.id) DESC")
	default:
		query = query.Order("published_at DESC")
	}

	var rows []models.Article
	if err := query.Limit(q.PageSize).Offset(q.Offset()).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	items := make([]ArticleSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, a.toSummary(row))
	}

	return items, total, nil
}

func (a *ArticleModule) GetArticleByID(id int) (*ArticleFull, error) {
	var article models.Article
	if err := a.db.First(&article, id).Error; err != nil {
		return nil, common.NotFound("article not found")
	}
	return a.toFull(article)
}

func (a *ArticleModule) GetArticleByTitle(title string) (*ArticleFull, error) {
	var article models.Article
	if err := a.db.Where("title = ?", title).First(&article).Error; err != nil {
		return nil, common.NotFound("article not found")
	}
	return a.toFull(article)
}

// DeleteArticle removes the article and every dependent row: the detail,
// the writer links, all comments with their likes, and the article likes.
func (a *ArticleModule) DeleteArticle(id int) error {
	var article models.Article
	if err := a.db.First(&article, id).Error; err != nil {
		return common.NotFound("article not found")
	}

	var commentIDs []int
	if err := a.db.Model(&models.Comment{}).Where("article_id = ?", id).
		Pluck("id", &commentIDs).Error; err != nil {
		return err
	}
	if len(commentIDs) > 0 {
		if err := a.db.Where("comment_id IN ?", commentIDs).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		if err := a.db.Where("article_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
	}

	if err := a.db.Where("article_id = ?", id).Delete(&models.ArticleLike{}).Error; err != nil {
		return err
	}
	if err := a.db.Where("article_id = ?", id).Delete(&models.ArticleWriter{}).Error; err != nil {
		return err
	}
	if err := a.db.Where("article_id = ?", id).Delete(&models.ArticleDetail{}).Error; err != nil {
		return err
	}

	return a.db.Delete(&article).Error
}

func (a *ArticleModule) LikeArticle(articleID, userID int) (*models.ArticleLike, error) {
	var article models.Article
	if err := a.db.First(&article, articleID).Error; err != nil {
		return nil, common.NotFound("article not found")
	}
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		return nil, common.NotFound("user not found")
	}

	var existing models.ArticleLike
	if err := a.db.Where("article_id = ? AND user_id = ?", articleID, userID).
		First(&existing).Error; err == nil {
		return nil, common.BadRequest("article already liked by this user")
	}

	like := models.ArticleLike{
		ArticleID: articleID,
		UserID:    userID,
		LikedAt:   time.Now(),
	}
	// The unique index turns a concurrent duplicate into a create error.
	if err := a.db.Create(&like).Error; err != nil {
		return nil, common.BadRequest("article already liked by this user")
	}

	return &like, nil
}

func (a *ArticleModule) UnlikeArticle(articleID, userID int) error {
	var article models.Article
	if err := a.db.First(&article, articleID).Error; err != nil {
		return common.NotFound("article not found")
	}
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		return common.NotFound("user not found")
	}

	result := a.db.Where("article_id = ? AND user_id = ?", articleID, userID).
		Delete(&models.ArticleLike{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.BadRequest("article is not liked by this user")
	}

	return nil
}

func (a *ArticleModule) toSummary(article models.Article) ArticleSummary {
	return ArticleSummary{
		ID:           article.ID,
		Title:        article.Title,
		Description:  article.Description,
		Category:     article.Category,
		MainImage:    article.MainImage,
		PublishedAt:  article.PublishedAt,
		UpdatedAt:    article.UpdatedAt,
		LikeCount:    a.countLikes(article.ID),
		CommentCount: a.countTopLevelComments(article.ID),
	}
}

func (a *ArticleModule) toFull(article models.Article) (*ArticleFull, error) {
	var detail models.ArticleDetail
	if err := a.db.Where("article_id = ?", article.ID).First(&detail).Error; err != nil {
		return nil, common.NotFound("article detail not found")
	}

	var writerIDs []int
	if err := a.db.Model(&models.ArticleWriter{}).Where("article_id = ?", article.ID).
		Pluck("writer_id", &writerIDs).Error; err != nil {
		return nil, err
	}

	return &ArticleFull{
		ArticleSummary: a.toSummary(article),
		Content:        detail.Body,
		ContentHTML:    renderMarkdown(detail.Body),
		WriterIDs:      writerIDs,
	}, nil
}

func (a *ArticleModule) countLikes(articleID int) int64 {
	var n int64
	a.db.Model(&models.ArticleLike{}).Where("article_id = ?", articleID).Count(&n)
	return n
}

func (a *ArticleModule) countTopLevelComments(articleID int) int64 {
	var n int64
	a.db.Model(&models.Comment{}).
		Where("article_id = ? AND parent_comment_id IS NULL", articleID).
		Count(&n)
	return n
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		// On render failure serve the raw body rather than nothing.
		return content
	}
	return buf.String()
}
