package writers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tribuna/common"
	"tribuna/models"
)

type WriterModule struct {
	db *gorm.DB
}

func NewWriterModule(db *gorm.DB) *WriterModule {
	return &WriterModule{db: db}
}

func (w *WriterModule) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/writers", w.createWriter)
		api.GET("/writers", w.listWriters)
		api.GET("/writers/:id", w.getWriter)
		api.DELETE("/writers/:id", w.deleteWriter)
	}
}

type createWriterRequest struct {
	Name        string `json:"name" binding:"required"`
	LastName    string `json:"last_name"`
	Description string `json:"description"`
	ProfilePic  string `json:"profile_pic"`
}

func (w *WriterModule) createWriter(c *gin.Context) {
	var req createWriterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	writer := models.Writer{
		Name:        req.Name,
		LastName:    req.LastName,
		Description: req.Description,
		ProfilePic:  req.ProfilePic,
	}

	if err := w.db.Create(&writer).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create writer"})
		return
	}

	c.JSON(http.StatusCreated, writer)
}

func (w *WriterModule) listWriters(c *gin.Context) {
	var writers []models.Writer
	if err := w.db.Order("name ASC").Find(&writers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load writers"})
		return
	}

	c.JSON(http.StatusOK, writers)
}

func (w *WriterModule) getWriter(c *gin.Context) {
	var writer models.Writer
	if err := w.db.First(&writer, "id = ?", c.Param("id")).Error; err != nil {
		common.AbortWithError(c, common.NotFound("writer not found"))
		return
	}

	c.JSON(http.StatusOK, writer)
}

func (w *WriterModule) deleteWriter(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	result := w.db.Delete(&models.Writer{}, id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete writer"})
		return
	}
	if result.RowsAffected == 0 {
		common.AbortWithError(c, common.NotFound("writer not found"))
		return
	}

	// Byline links to deleted writers are dropped with the writer.
	w.db.Where("writer_id = ?", id).Delete(&models.ArticleWriter{})

	c.Status(http.StatusNoContent)
}

// ResolveWriters returns the writers matching the given ids. Ids that do
// not resolve are silently dropped.
func (w *WriterModule) ResolveWriters(ids []int) ([]models.Writer, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var found []models.Writer
	if err := w.db.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}
