package comments

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tribuna/common"
	"tribuna/models"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.AutoMigrate(&models.User{}, &models.Article{}, &models.Comment{}, &models.CommentLike{})
	return db
}

func createTestUser(db *gorm.DB, username string) *models.User {
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hashedpassword",
	}
	db.Create(user)
	return user
}

func createTestArticle(db *gorm.DB, title string) *models.Article {
	article := &models.Article{
		Title:       title,
		Description: "Test Description",
		Category:    "Tech",
		PublishedAt: time.Now(),
		UpdatedAt:   time.Now(),
	}
	db.Create(article)
	return article
}

func createTestComment(db *gorm.DB, articleID, userID int, parentID *int, publishedAt time.Time) *models.Comment {
	comment := &models.Comment{
		ArticleID:       articleID,
		ParentCommentID: parentID,
		UserID:          userID,
		Content:         "test comment",
		PublishedAt:     publishedAt,
	}
	db.Create(comment)
	return comment
}

func defaultPage() common.PageQuery {
	q := common.PageQuery{}
	q.Normalize()
	return q
}

func TestAddComment_Success(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	user := createTestUser(db, "alice")
	article := createTestArticle(db, "First Article")

	comment, err := m.AddComment("great read", article.ID, user.ID, nil)

	assert.NoError(t, err)
	assert.Equal(t, article.ID, comment.ArticleID)
	assert.Nil(t, comment.ParentCommentID)
	assert.Equal(t, int64(0), comment.LikeCount)
	assert.Equal(t, int64(0), comment.ReplyCount)
}

func TestAddComment_ArticleNotFound(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	user := createTestUser(db, "alice")

	_, err := m.AddComment("orphan", 9999, user.ID, nil)

	assert.True(t, common.IsNotFound(err))

	var count int64
	db.Model(&models.Comment{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestAddComment_ParentFromDifferentArticle(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	user := createTestUser(db, "alice")
	a1 := createTestArticle(db, "Article One")
	a2 := createTestArticle(db, "Article Two")
	parent := createTestComment(db, a1.ID, user.ID, nil, time.Now())

	_, err := m.AddComment("cross-thread reply", a2.ID, user.ID, &parent.ID)

	assert.True(t, common.IsBadRequest(err))
}

func TestListTopLevel_ExcludesReplies(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	user := createTestUser(db, "alice")
	article := createTestArticle(db, "Threaded")

	top := createTestComment(db, article.ID, user.ID, nil, time.Now())
	createTestComment(db, article.ID, user.ID, &top.ID, time.Now())
	createTestComment(db, article.ID, user.ID, &top.ID, time.Now())

	items, total, err := m.ListTopLevel(article.ID, defaultPage())

	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, 1, len(items))
	assert.Nil(t, items[0].ParentCommentID)
	assert.Equal(t, int64(2), items[0].ReplyCount)
}

func TestListReplies_OnlyDirectChildren(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	user := createTestUser(db, "alice")
	article := createTestArticle(db, "Threaded")

	top := createTestComment(db, article.ID, user.ID, nil, time.Now())
	reply := createTestComment(db, article.ID, user.ID, &top.ID, time.Now())
	// grandchild must not appear among top's replies
	createTestComment(db, article.ID, user.ID, &reply.ID, time.Now())

	items, total, err := m.ListReplies(top.ID, defaultPage())

	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	for _, item := range items {
		assert.Equal(t, top.ID, *item.ParentCommentID)
	}
}

func TestListTopLevel_UnknownArticleIsEmptyPage(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	items, total, err := m.ListTopLevel(424242, defaultPage())

	assert.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Equal(t, 0, len(items))
}

func TestListTopLevel_OrderByLikes(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	article := createTestArticle(db, "Popular")
	author := createTestUser(db, "author")

	// four comments with like counts 5, 3, 3, 1
	likeCounts := []int{5, 3, 3, 1}
	for i, n := range likeCounts {
		comment := createTestComment(db, article.ID, author.ID, nil, time.Now())
		for j := 0; j < n; j++ {
			fan := createTestUser(db, fmt.Sprintf("fan-%d-%d", i, j))
			db.Create(&models.CommentLike{CommentID: comment.ID, UserID: fan.ID, LikedAt: time.Now()})
		}
	}

	q := common.PageQuery{OrderBy: common.OrderLikes}
	q.Normalize()
	items, _, err := m.ListTopLevel(article.ID, q)

	assert.NoError(t, err)
	assert.Equal(t, 4, len(items))
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].LikeCount, items[i].LikeCount)
	}
	assert.Equal(t, int64(5), items[0].LikeCount)
	assert.Equal(t, int64(1), items[3].LikeCount)
}

func TestListTopLevel_OrderByResponses(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	article := createTestArticle(db, "Busy")
	user := createTestUser(db, "alice")

	quiet := createTestComment(db, article.ID, user.ID, nil, time.Now())
	busy := createTestComment(db, article.ID, user.ID, nil, time.Now())
	for i := 0; i < 3; i++ {
		createTestComment(db, article.ID, user.ID, &busy.ID, time.Now())
	}
	createTestComment(db, article.ID, user.ID, &quiet.ID, time.Now())

	q := common.PageQuery{OrderBy: common.OrderResponses}
	q.Normalize()
	items, _, err := m.ListTopLevel(article.ID, q)

	assert.NoError(t, err)
	assert.Equal(t, busy.ID, items[0].ID)
	assert.Equal(t, int64(3), items[0].ReplyCount)
	assert.Equal(t, quiet.ID, items[1].ID)
}

func TestListTopLevel_UnknownOrderFallsBackToRecent(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	article := createTestArticle(db, "Chronology")
	user := createTestUser(db, "alice")

	old := createTestComment(db, article.ID, user.ID, nil, time.Now().Add(-2*time.Hour))
	newer := createTestComment(db, article.ID, user.ID, nil, time.Now().Add(-1*time.Hour))
	newest := createTestComment(db, article.ID, user.ID, nil, time.Now())

	q := common.PageQuery{OrderBy: "definitely-not-a-key"}
	q.Normalize()
	items, _, err := m.ListTopLevel(article.ID, q)

	assert.NoError(t, err)
	assert.Equal(t, newest.ID, items[0].ID)
	assert.Equal(t, newer.ID, items[1].ID)
	assert.Equal(t, old.ID, items[2].ID)
}

func TestListTopLevel_PaginationBoundary(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	article := createTestArticle(db, "Paged")
	user := createTestUser(db, "alice")

	for i := 0; i < 7; i++ {
		createTestComment(db, article.ID, user.ID, nil, time.Now().Add(time.Duration(i)*time.Minute))
	}

	q := common.PageQuery{PageSize: 5, PageNum: 0}
	q.Normalize()
	page0, total, err := m.ListTopLevel(article.ID, q)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Equal(t, 5, len(page0))

	q.PageNum = 1
	page1, total, err := m.ListTopLevel(article.ID, q)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.Equal(t, 2, len(page1))
}

func TestLikeComment_TwiceFails(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	user := createTestUser(db, "alice")
	article := createTestArticle(db, "Liked")
	comment := createTestComment(db, article.ID, user.ID, nil, time.Now())

	_, err := m.LikeComment(comment.ID, user.ID)
	assert.NoError(t, err)

	_, err = m.LikeComment(comment.ID, user.ID)
	assert.True(t, common.IsBadRequest(err))

	var count int64
	db.Model(&models.CommentLike{}).
		Where("comment_id = ? AND user_id = ?", comment.ID, user.ID).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestUnlikeComment_NeverLiked(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	user := createTestUser(db, "alice")
	article := createTestArticle(db, "Unliked")
	comment := createTestComment(db, article.ID, user.ID, nil, time.Now())

	err := m.UnlikeComment(comment.ID, user.ID)

	assert.True(t, common.IsBadRequest(err))
}

func TestLikeUnlikeCycle(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	user := createTestUser(db, "alice")
	article := createTestArticle(db, "Cycle")
	comment := createTestComment(db, article.ID, user.ID, nil, time.Now())

	_, err := m.LikeComment(comment.ID, user.ID)
	assert.NoError(t, err)

	err = m.UnlikeComment(comment.ID, user.ID)
	assert.NoError(t, err)

	var count int64
	db.Model(&models.CommentLike{}).
		Where("comment_id = ? AND user_id = ?", comment.ID, user.ID).
		Count(&count)
	assert.Equal(t, int64(0), count)

	// a fresh like after unlike is valid again
	_, err = m.LikeComment(comment.ID, user.ID)
	assert.NoError(t, err)
}

func TestLikeComment_SubjectOrUserMissing(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	user := createTestUser(db, "alice")
	article := createTestArticle(db, "Missing")
	comment := createTestComment(db, article.ID, user.ID, nil, time.Now())

	_, err := m.LikeComment(9999, user.ID)
	assert.True(t, common.IsNotFound(err))

	_, err = m.LikeComment(comment.ID, 9999)
	assert.True(t, common.IsNotFound(err))
}

func TestDeleteComment_CascadesSubtreeAndLikes(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	user := createTestUser(db, "alice")
	article := createTestArticle(db, "Cascade")

	top := createTestComment(db, article.ID, user.ID, nil, time.Now())
	reply := createTestComment(db, article.ID, user.ID, &top.ID, time.Now())
	grandchild := createTestComment(db, article.ID, user.ID, &reply.ID, time.Now())
	other := createTestComment(db, article.ID, user.ID, nil, time.Now())

	db.Create(&models.CommentLike{CommentID: grandchild.ID, UserID: user.ID, LikedAt: time.Now()})

	err := m.DeleteComment(top.ID)
	assert.NoError(t, err)

	var remaining int64
	db.Model(&models.Comment{}).Count(&remaining)
	assert.Equal(t, int64(1), remaining)

	var survivor models.Comment
	db.First(&survivor)
	assert.Equal(t, other.ID, survivor.ID)

	var likes int64
	db.Model(&models.CommentLike{}).Count(&likes)
	assert.Equal(t, int64(0), likes)
}

func TestDeleteComment_NotFound(t *testing.T) {
	db := setupTestDB()
	m := NewCommentModule(db)

	err := m.DeleteComment(9999)

	assert.True(t, common.IsNotFound(err))
}
