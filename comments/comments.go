package comments

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tribuna/common"
	"tribuna/models"
)

type CommentModule struct {
	db *gorm.DB
}

func NewCommentModule(db *gorm.DB) *CommentModule {
	return &CommentModule{db: db}
}

func (m *CommentModule) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/comments", m.addComment)
		api.GET("/articles/id/:id/comments", m.listArticleComments)
		api.GET("/comments/:id/replies", m.listReplies)
		api.DELETE("/comments/:id", m.deleteComment)
		api.POST("/comments/:id/like", m.likeComment)
		api.DELETE("/comments/:id/like", m.unlikeComment)
	}
}

type addCommentRequest struct {
	Content         string `json:"content" binding:"required"`
	ArticleID       int    `json:"article_id" binding:"required"`
	UserID          int    `json:"user_id" binding:"required"`
	ParentCommentID *int   `json:"parent_comment_id"`
}

type likeRequest struct {
	UserID int `json:"user_id" binding:"required"`
}

// CommentSummary is the per-node listing shape: the row itself plus its
// live aggregate counts.
type CommentSummary struct {
	ID              int       `json:"id"`
	ArticleID       int       `json:"article_id"`
	ParentCommentID *int      `json:"parent_comment_id,omitempty"`
	UserID          int       `json:"user_id"`
	Content         string    `json:"content"`
	PublishedAt     time.Time `json:"published_at"`
	LikeCount       int64     `json:"like_count"`
	ReplyCount      int64     `json:"reply_count"`
}

func (m *CommentModule) addComment(c *gin.Context) {
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, err := m.AddComment(req.Content, req.ArticleID, req.UserID, req.ParentCommentID)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func (m *CommentModule) listArticleComments(c *gin.Context) {
	articleID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var q common.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.Normalize()

	items, total, listErr := m.ListTopLevel(articleID, q)
	if listErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load comments"})
		return
	}

	c.JSON(http.StatusOK, common.NewPage(items, total, q))
}

func (m *CommentModule) listReplies(c *gin.Context) {
	parentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var q common.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.Normalize()

	items, total, listErr := m.ListReplies(parentID, q)
	if listErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load replies"})
		return
	}

	c.JSON(http.StatusOK, common.NewPage(items, total, q))
}

func (m *CommentModule) deleteComment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := m.DeleteComment(id); err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (m *CommentModule) likeComment(c *gin.Context) {
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

	like, likeErr := m.LikeComment(id, req.UserID)
	if likeErr != nil {
		common.AbortWithError(c, likeErr)
		return
	}

	c.JSON(http.StatusCreated, like)
}

func (m *CommentModule) unlikeComment(c *gin.Context) {
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

	if err := m.UnlikeComment(id, req.UserID); err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddComment validates every reference before inserting: the article and
// author must exist, and a parent comment must exist and sit under the
// same article.
func (m *CommentModule) AddComment(content string, articleID, userID int, parentID *int) (*CommentSummary, error) {
	var article models.Article
	if err := m.db.First(&article, articleID).Error; err != nil {
		return nil, common.NotFound("article not found")
	}
	var user models.User
	if err := m.db.First(&user, userID).Error; err != nil {
		return nil, common.NotFound("user not found")
	}
	if parentID != nil {
		var parent models.Comment
		if err := m.db.First(&parent, *parentID).Error; err != nil {
			return nil, common.NotFound("parent comment not found")
		}
		if parent.ArticleID != articleID {
			return nil, common.BadRequest("parent comment belongs to a different article")
		}
	}

	comment := models.Comment{
		ArticleID:       articleID,
		ParentCommentID: parentID,
		UserID:          userID,
		Content:         content,
		PublishedAt:     time.Now(),
	}

	if err := m.db.Create(&comment).Error; err != nil {
		return nil, err
	}

	return &CommentSummary{
		ID:              comment.ID,
		ArticleID:       comment.ArticleID,
		ParentCommentID: comment.ParentCommentID,
		UserID:          comment.UserID,
		Content:         comment.Content,
		PublishedAt:     comment.PublishedAt,
	}, nil
}

// ListTopLevel pages through the comments directly under an article,
// excluding replies. An unknown article id yields an empty page.
func (m *CommentModule) ListTopLevel(articleID int, q common.PageQuery) ([]CommentSummary, int64, error) {
	return m.list("comments.article_id = ? AND comments.parent_comment_id IS NULL", articleID, q)
}

// ListReplies pages through the direct children of one comment.
func (m *CommentModule) ListReplies(parentID int, q common.PageQuery) ([]CommentSummary, int64, error) {
	// Columns are qualified because the responses ordering self-joins the
	// comments table.
	return m.list("comments.parent_comment_id = ?", parentID, q)
}

func (m *CommentModule) list(scope string, scopeID int, q common.PageQuery) ([]CommentSummary, int64, error) {
	var total int64
	if err := m.db.Model(&models.Comment{}).Where(scope, scopeID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := m.db.Model(&models.Comment{}).Where(scope, scopeID)
	switch q.OrderBy {
	case common.OrderLikes:
		query = query.Select("comments.*").
			Joins("LEFT JOIN comment_likes ON comment_likes.comment_id = comments.id").
			Group("comments.id").
			Order("COUNT(comment_likes.id) DESC")
	case common.OrderResponses, common.OrderComments:
		query = query.Select("comments.*").
			Joins("LEFT JOIN comments AS replies ON replies.parent_comment_id = comments.id").
			Group("comments.id").
			Order("COUNT(replies.id) DESC")
	default:
		query = query.Order("published_at DESC")
	}

	var rows []models.Comment
	if err := query.Limit(q.PageSize).Offset(q.Offset()).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	items := make([]CommentSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, CommentSummary{
			ID:              row.ID,
			ArticleID:       row.ArticleID,
			ParentCommentID: row.ParentCommentID,
			UserID:          row.UserID,
			Content:         row.Content,
			PublishedAt:     row.PublishedAt,
			LikeCount:       m.countLikes(row.ID),
			ReplyCount:      m.countReplies(row.ID),
		})
	}

	return items, total, nil
}

// DeleteComment removes the comment, its whole reply subtree and every
// like attached to any removed node.
func (m *CommentModule) DeleteComment(id int) error {
	var comment models.Comment
	if err := m.db.First(&comment, id).Error; err != nil {
		return common.NotFound("comment not found")
	}

	ids := []int{id}
	frontier := []int{id}
	for len(frontier) > 0 {
		var children []int
		if err := m.db.Model(&models.Comment{}).
			Where("parent_comment_id IN ?", frontier).
			Pluck("id", &children).Error; err != nil {
			return err
		}
		if len(children) == 0 {
			break
		}
		ids = append(ids, children...)
		frontier = children
	}

	if err := m.db.Where("comment_id IN ?", ids).Delete(&models.CommentLike{}).Error; err != nil {
		return err
	}
	return m.db.Where("id IN ?", ids).Delete(&models.Comment{}).Error
}

func (m *CommentModule) LikeComment(commentID, userID int) (*models.CommentLike, error) {
	var comment models.Comment
	if err := m.db.First(&comment, commentID).Error; err != nil {
		return nil, common.NotFound("comment not found")
	}
	var user models.User
	if err := m.db.First(&user, userID).Error; err != nil {
		return nil, common.NotFound("user not found")
	}

	var existing models.CommentLike
	if err := m.db.Where("comment_id = ? AND user_id = ?", commentID, userID).
		First(&existing).Error; err == nil {
		return nil, common.BadRequest("comment already liked by this user")
	}

	like := models.CommentLike{
		CommentID: commentID,
		UserID:    userID,
		LikedAt:   time.Now(),
	}
	if err := m.db.Create(&like).Error; err != nil {
		return nil, common.BadRequest("comment already liked by this user")
	}

	return &like, nil
}

func (m *CommentModule) UnlikeComment(commentID, userID int) error {
	var comment models.Comment
	if err := m.db.First(&comment, commentID).Error; err != nil {
		return common.NotFound("comment not found")
	}
	var user models.User
	if err := m.db.First(&user, userID).Error; err != nil {
		return common.NotFound("user not found")
	}

	result := m.db.Where("comment_id = ? AND user_id = ?", commentID, userID).
		Delete(&models.CommentLike{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.BadRequest("comment is not liked by this user")
	}

	return nil
}

func (m *CommentModule) countLikes(commentID int) int64 {
	var n int64
	m.db.Model(&models.CommentLike{}).Where("comment_id = ?", commentID).Count(&n)
	return n
}

func (m *CommentModule) countReplies(commentID int) int64 {
	var n int64
	m.db.Model(&models.Comment{}).Where("parent_comment_id = ?", commentID).Count(&n)
	return n
}
