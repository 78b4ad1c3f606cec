package qa

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tribuna/common"
	"tribuna/models"
)

type QAModule struct {
	db *gorm.DB
}

func NewQAModule(db *gorm.DB) *QAModule {
	return &QAModule{db: db}
}

func (m *QAModule) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/questions", m.addQuestion)
		api.GET("/questions", m.listQuestions)
		api.GET("/questions/:id", m.getQuestion)
		api.DELETE("/questions/:id", m.deleteQuestion)
		api.POST("/questions/:id/like", m.likeQuestion)
		api.DELETE("/questions/:id/like", m.unlikeQuestion)
		api.GET("/questions/:id/answers", m.listQuestionAnswers)

		api.POST("/answers", m.addAnswer)
		api.DELETE("/answers/:id", m.deleteAnswer)
		api.GET("/answers/:id/replies", m.listAnswerReplies)
		api.POST("/answers/:id/like", m.likeAnswer)
		api.DELETE("/answers/:id/like", m.unlikeAnswer)
	}
}

type addQuestionRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	Category string `json:"category" binding:"required"`
	UserID   int    `json:"user_id" binding:"required"`
}

type addAnswerRequest struct {
	Content        string `json:"content" binding:"required"`
	QuestionID     int    `json:"question_id" binding:"required"`
	UserID         int    `json:"user_id" binding:"required"`
	ParentAnswerID *int   `json:"parent_answer_id"`
}

type likeRequest struct {
	UserID int `json:"user_id" binding:"required"`
}

type listQuery struct {
	common.PageQuery
	Categories []string `form:"categories"`
}

type QuestionSummary struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Category    string    `json:"category"`
	UserID      int       `json:"user_id"`
	PublishedAt time.Time `json:"published_at"`
	LikeCount   int64     `json:"like_count"`
	AnswerCount int64     `json:"answer_count"`
}

type AnswerSummary struct {
	ID             int       `json:"id"`
	QuestionID     int       `json:"question_id"`
	ParentAnswerID *int      `json:"parent_answer_id,omitempty"`
	UserID         int       `json:"user_id"`
	Content        string    `json:"content"`
	PublishedAt    time.Time `json:"published_at"`
	LikeCount      int64     `json:"like_count"`
	ReplyCount     int64     `json:"reply_count"`
}

func (m *QAModule) addQuestion(c *gin.Context) {
	var req addQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := m.AddQuestion(req.Title, req.Content, req.Category, req.UserID)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

func (m *QAModule) listQuestions(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.Normalize()

	items, total, err := m.ListQuestions(q.Categories, q.PageQuery)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load questions"})
		return
	}

	c.JSON(http.StatusOK, common.NewPage(items, total, q.PageQuery))
}

func (m *QAModule) getQuestion(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	question, lookupErr := m.GetQuestion(id)
	if lookupErr != nil {
		common.AbortWithError(c, lookupErr)
		return
	}

	c.JSON(http.StatusOK, question)
}

func (m *QAModule) deleteQuestion(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := m.DeleteQuestion(id); err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (m *QAModule) listQuestionAnswers(c *gin.Context) {
	questionID, err := strconv.Atoi(c.Param("id"))
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

	items, total, listErr := m.ListTopLevelAnswers(questionID, q)
	if listErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load answers"})
		return
	}

	c.JSON(http.StatusOK, common.NewPage(items, total, q))
}

func (m *QAModule) addAnswer(c *gin.Context) {
	var req addAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := m.AddAnswer(req.Content, req.QuestionID, req.UserID, req.ParentAnswerID)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, answer)
}

func (m *QAModule) deleteAnswer(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := m.DeleteAnswer(id); err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (m *QAModule) listAnswerReplies(c *gin.Context) {
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

	items, total, listErr := m.ListAnswerReplies(parentID, q)
	if listErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load replies"})
		return
	}

	c.JSON(http.StatusOK, common.NewPage(items, total, q))
}

func (m *QAModule) likeQuestion(c *gin.Context) {
	m.handleLike(c, func(id, userID int) (interface{}, error) {
		return m.LikeQuestion(id, userID)
	})
}

func (m *QAModule) unlikeQuestion(c *gin.Context) {
	m.handleUnlike(c, m.UnlikeQuestion)
}

func (m *QAModule) likeAnswer(c *gin.Context) {
	m.handleLike(c, func(id, userID int) (interface{}, error) {
		return m.LikeAnswer(id, userID)
	})
}

func (m *QAModule) unlikeAnswer(c *gin.Context) {
	m.handleUnlike(c, m.UnlikeAnswer)
}

func (m *QAModule) handleLike(c *gin.Context, like func(id, userID int) (interface{}, error)) {
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

	created, likeErr := like(id, req.UserID)
	if likeErr != nil {
		common.AbortWithError(c, likeErr)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (m *QAModule) handleUnlike(c *gin.Context, unlike func(id, userID int) error) {
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

	if err := unlike(id, req.UserID); err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (m *QAModule) AddQuestion(title, content, category string, userID int) (*QuestionSummary, error) {
	var user models.User
	if err := m.db.First(&user, userID).Error; err != nil {
		return nil, common.NotFound("user not found")
	}

	var existing models.Question
	if err := m.db.Where("title = ?", title).First(&existing).Error; err == nil {
		return nil, common.BadRequest("a question with this title already exists")
	}

	question := models.Question{
		Title:       title,
		Content:     content,
		Category:    category,
		UserID:      userID,
		PublishedAt: time.Now(),
	}

	if err := m.db.Create(&question).Error; err != nil {
		return nil, common.BadRequest("could not create question")
	}

	return m.toQuestionSummary(question), nil
}

func (m *QAModule) GetQuestion(id int) (*QuestionSummary, error) {
	var question models.Question
	if err := m.db.First(&question, id).Error; err != nil {
		return nil, common.NotFound("question not found")
	}
	return m.toQuestionSummary(question), nil
}

// ListQuestions mirrors the article listing: optional category filter, the
// three ordering modes, paged.
func (m *QAModule) ListQuestions(categories []string, q common.PageQuery) ([]QuestionSummary, int64, error) {
	filtered := func() *gorm.DB {
		query := m.db.Model(&models.Question{})
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
		query = query.Select("questions.*").
			Joins("LEFT JOIN question_likes ON question_likes.question_id = questions.id").
			Group("questions.id").
			Order("COUNT(question_likes.id) DESC")
	case common.OrderResponses, common.OrderComments:
		query = query.Select("questions.*").
			Joins("LEFT JOIN answers ON answers.question_id = questions.id AND answers.parent_answer_id IS NULL").
			Group("questions.id").
			Order("COUNT(answers.id) DESC")
	default:
		query = query.Order("published_at DESC")
	}

	var rows []models.Question
	if err := query.Limit(q.PageSize).Offset(q.Offset()).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	items := make([]QuestionSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, *m.toQuestionSummary(row))
	}

	return items, total, nil
}

// DeleteQuestion removes the question, its answer subtrees and all likes
// on the question or any of its answers.
func (m *QAModule) DeleteQuestion(id int) error {
	var question models.Question
	if err := m.db.First(&question, id).Error; err != nil {
		return common.NotFound("question not found")
	}

	var answerIDs []int
	if err := m.db.Model(&models.Answer{}).Where("question_id = ?", id).
		Pluck("id", &answerIDs).Error; err != nil {
		return err
	}
	if len(answerIDs) > 0 {
		if err := m.db.Where("answer_id IN ?", answerIDs).Delete(&models.AnswerLike{}).Error; err != nil {
			return err
		}
		if err := m.db.Where("question_id = ?", id).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
	}

	if err := m.db.Where("question_id = ?", id).Delete(&models.QuestionLike{}).Error; err != nil {
		return err
	}

	return m.db.Delete(&question).Error
}

func (m *QAModule) AddAnswer(content string, questionID, userID int, parentID *int) (*AnswerSummary, error) {
	var question models.Question
	if err := m.db.First(&question, questionID).Error; err != nil {
		return nil, common.NotFound("question not found")
	}
	var user models.User
	if err := m.db.First(&user, userID).Error; err != nil {
		return nil, common.NotFound("user not found")
	}
	if parentID != nil {
		var parent models.Answer
		if err := m.db.First(&parent, *parentID).Error; err != nil {
			return nil, common.NotFound("parent answer not found")
		}
		if parent.QuestionID != questionID {
			return nil, common.BadRequest("parent answer belongs to a different question")
		}
	}

	answer := models.Answer{
		QuestionID:     questionID,
		ParentAnswerID: parentID,
		UserID:         userID,
		Content:        content,
		PublishedAt:    time.Now(),
	}

	if err := m.db.Create(&answer).Error; err != nil {
		return nil, err
	}

	return &AnswerSummary{
		ID:             answer.ID,
		QuestionID:     answer.QuestionID,
		ParentAnswerID: answer.ParentAnswerID,
		UserID:         answer.UserID,
		Content:        answer.Content,
		PublishedAt:    answer.PublishedAt,
	}, nil
}

func (m *QAModule) ListTopLevelAnswers(questionID int, q common.PageQuery) ([]AnswerSummary, int64, error) {
	return m.listAnswers("answers.question_id = ? AND answers.parent_answer_id IS NULL", questionID, q)
}

func (m *QAModule) ListAnswerReplies(parentID int, q common.PageQuery) ([]AnswerSummary, int64, error) {
	// Columns are qualified because the responses ordering self-joins the
	// answers table.
	return m.listAnswers("answers.parent_answer_id = ?", parentID, q)
}

func (m *QAModule) listAnswers(scope string, scopeID int, q common.PageQuery) ([]AnswerSummary, int64, error) {
	var total int64
	if err := m.db.Model(&models.Answer{}).Where(scope, scopeID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := m.db.Model(&models.Answer{}).Where(scope, scopeID)
	switch q.OrderBy {
	case common.OrderLikes:
		query = query.Select("answers.*").
			Joins("LEFT JOIN answer_likes ON answer_likes.answer_id = answers.id").
			Group("answers.id").
			Order("COUNT(answer_likes.id) DESC")
	case common.OrderResponses, common.OrderComments:
		query = query.Select("answers.*").
			Joins("LEFT JOIN answers AS replies ON replies.parent_answer_id = answers.id").
			Group("answers.id").
			Order("COUNT(replies.id) DESC")
	default:
		query = query.Order("published_at DESC")
	}

	var rows []models.Answer
	if err := query.Limit(q.PageSize).Offset(q.Offset()).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	items := make([]AnswerSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, AnswerSummary{
			ID:             row.ID,
			QuestionID:     row.QuestionID,
			ParentAnswerID: row.ParentAnswerID,
			UserID:         row.UserID,
			Content:        row.Content,
			PublishedAt:    row.PublishedAt,
			LikeCount:      m.countAnswerLikes(row.ID),
			ReplyCount:     m.countAnswerReplies(row.ID),
		})
	}

	return items, total, nil
}

// DeleteAnswer removes the answer, its reply subtree and the likes on any
// removed node.
func (m *QAModule) DeleteAnswer(id int) error {
	var answer models.Answer
	if err := m.db.First(&answer, id).Error; err != nil {
		return common.NotFound("answer not found")
	}

	ids := []int{id}
	frontier := []int{id}
	for len(frontier) > 0 {
		var children []int
		if err := m.db.Model(&models.Answer{}).
			Where("parent_answer_id IN ?", frontier).
			Pluck("id", &children).Error; err != nil {
			return err
		}
		if len(children) == 0 {
			break
		}
		ids = append(ids, children...)
		frontier = children
	}

	if err := m.db.Where("answer_id IN ?", ids).Delete(&models.AnswerLike{}).Error; err != nil {
		return err
	}
	return m.db.Where("id IN ?", ids).Delete(&models.Answer{}).Error
}

func (m *QAModule) LikeQuestion(questionID, userID int) (*models.QuestionLike, error) {
	var question models.Question
	if err := m.db.First(&question, questionID).Error; err != nil {
		return nil, common.NotFound("question not found")
	}
	var user models.User
	if err := m.db.First(&user, userID).Error; err != nil {
		return nil, common.NotFound("user not found")
	}

	var existing models.QuestionLike
	if err := m.db.Where("question_id = ? AND user_id = ?", questionID, userID).
		First(&existing).Error; err == nil {
		return nil, common.BadRequest("question already liked by this user")
	}

	like := models.QuestionLike{
		QuestionID: questionID,
		UserID:     userID,
		LikedAt:    time.Now(),
	}
	if err := m.db.Create(&like).Error; err != nil {
		return nil, common.BadRequest("question already liked by this user")
	}

	return &like, nil
}

func (m *QAModule) UnlikeQuestion(questionID, userID int) error {
	var question models.Question
	if err := m.db.First(&question, questionID).Error; err != nil {
		return common.NotFound("question not found")
	}
	var user models.User
	if err := m.db.First(&user, userID).Error; err != nil {
		return common.NotFound("user not found")
	}

	result := m.db.Where("question_id = ? AND user_id = ?", questionID, userID).
		Delete(&models.QuestionLike{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.BadRequest("question is not liked by this user")
	}

	return nil
}

func (m *QAModule) LikeAnswer(answerID, userID int) (*models.AnswerLike, error) {
	var answer models.Answer
	if err := m.db.First(&answer, answerID).Error; err != nil {
		return nil, common.NotFound("answer not found")
	}
	var user models.User
	if err := m.db.First(&user, userID).Error; err != nil {
		return nil, common.NotFound("user not found")
	}

	var existing models.AnswerLike
	if err := m.db.Where("answer_id = ? AND user_id = ?", answerID, userID).
		First(&existing).Error; err == nil {
		return nil, common.BadRequest("answer already liked by this user")
	}

	like := models.AnswerLike{
		AnswerID: answerID,
		UserID:   userID,
		LikedAt:  time.Now(),
	}
	if err := m.db.Create(&like).Error; err != nil {
		return nil, common.BadRequest("answer already liked by this user")
	}

	return &like, nil
}

func (m *QAModule) UnlikeAnswer(answerID, userID int) error {
	var answer models.Answer
	if err := m.db.First(&answer, answerID).Error; err != nil {
		return common.NotFound("answer not found")
	}
	var user models.User
	if err := m.db.First(&user, userID).Error; err != nil {
		return common.NotFound("user not found")
	}

	result := m.db.Where("answer_id = ? AND user_id = ?", answerID, userID).
		Delete(&models.AnswerLike{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return common.BadRequest("answer is not liked by this user")
	}

	return nil
}

func (m *QAModule) toQuestionSummary(question models.Question) *QuestionSummary {
	return &QuestionSummary{
		ID:          question.ID,
		Title:       question.Title,
		Content:     question.Content,
		Category:    question.Category,
		UserID:      question.UserID,
		PublishedAt: question.PublishedAt,
		LikeCount:   m.countQuestionLikes(question.ID),
		AnswerCount: m.countTopLevelAnswers(question.ID),
	}
}

func (m *QAModule) countQuestionLikes(questionID int) int64 {
	var n int64
	m.db.Model(&models.QuestionLike{}).Where("question_id = ?", questionID).Count(&n)
	return n
}

func (m *QAModule) countTopLevelAnswers(questionID int) int64 {
	var n int64
	m.db.Model(&models.Answer{}).
		Where("question_id = ? AND parent_answer_id IS NULL", questionID).
		Count(&n)
	return n
}

func (m *QAModule) countAnswerLikes(answerID int) int64 {
	var n int64
	m.db.Model(&models.AnswerLike{}).Where("answer_id = ?", answerID).Count(&n)
	return n
}

func (m *QAModule) countAnswerReplies(answerID int) int64 {
	var n int64
	m.db.Model(&models.Answer{}).Where("parent_answer_id = ?", answerID).Count(&n)
	return n
}
