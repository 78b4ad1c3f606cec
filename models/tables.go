package models

import "time"

type User struct {
	ID           int    `gorm:"primary_key;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null;index" json:"username"`
	Email        string `gorm:"unique;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"` // json:"-" prevents password from being exposed in API
	ProfilePic   string `json:"profile_pic"`
}

type Writer struct {
	ID          int    `gorm:"primary_key;autoIncrement" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	LastName    string `json:"last_name"`
	Description string `gorm:"type:text" json:"description"`
	ProfilePic  string `json:"profile_pic"`
}

type Article struct {
	ID          int       `gorm:"primary_key;autoIncrement" json:"id"`
	Title       string    `gorm:"unique;not null;index" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Category    string    `gorm:"index" json:"category"`
	MainImage   string    `json:"main_image"`
	PublishedAt time.Time `json:"published_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ArticleDetail holds the long-form body, stored apart from the summary row.
type ArticleDetail struct {
	ID        int    `gorm:"primary_key;autoIncrement" json:"id"`
	ArticleID int    `gorm:"not null;uniqueIndex" json:"article_id"`
	Body      string `gorm:"type:text" json:"body"`
}

type ArticleWriter struct {
	ID        int `gorm:"primary_key;autoIncrement" json:"id"`
	ArticleID int `gorm:"not null;index" json:"article_id"`
	WriterID  int `gorm:"not null;index" json:"writer_id"`
}

type Question struct {
	ID          int       `gorm:"primary_key;autoIncrement" json:"id"`
	Title       string    `gorm:"unique;not null;index" json:"title"`
	Content     string    `gorm:"type:text" json:"content"`
	Category    string    `gorm:"index" json:"category"`
	UserID      int       `gorm:"not null;index" json:"user_id"`
	PublishedAt time.Time `json:"published_at"`
}

// Comment belongs to an article. A nil ParentCommentID means a top-level
// comment; otherwise it is a reply to another comment on the same article.
type Comment struct {
	ID              int       `gorm:"primary_key;autoIncrement" json:"id"`
	ArticleID       int       `gorm:"not null;index" json:"article_id"`
	ParentCommentID *int      `gorm:"index" json:"parent_comment_id,omitempty"`
	UserID          int       `gorm:"not null;index" json:"user_id"`
	Content         string    `gorm:"type:text" json:"content"`
	PublishedAt     time.Time `json:"published_at"`
}

// Answer mirrors Comment, rooted at a question instead of an article.
type Answer struct {
	ID             int       `gorm:"primary_key;autoIncrement" json:"id"`
	QuestionID     int       `gorm:"not null;index" json:"question_id"`
	ParentAnswerID *int      `gorm:"index" json:"parent_answer_id,omitempty"`
	UserID         int       `gorm:"not null;index" json:"user_id"`
	Content        string    `gorm:"type:text" json:"content"`
	PublishedAt    time.Time `json:"published_at"`
}

// Like tables. The composite unique index keeps at most one like row per
// (subject, user) pair even when two identical requests race past the
// application-level existence check.
type ArticleLike struct {
	ID        int       `gorm:"primary_key;autoIncrement" json:"id"`
	ArticleID int       `gorm:"not null;uniqueIndex:idx_article_like" json:"article_id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_article_like" json:"user_id"`
	LikedAt   time.Time `json:"liked_at"`
}

type CommentLike struct {
	ID        int       `gorm:"primary_key;autoIncrement" json:"id"`
	CommentID int       `gorm:"not null;uniqueIndex:idx_comment_like" json:"comment_id"`
	UserID    int       `gorm:"not null;uniqueIndex:idx_comment_like" json:"user_id"`
	LikedAt   time.Time `json:"liked_at"`
}

type AnswerLike struct {
	ID       int       `gorm:"primary_key;autoIncrement" json:"id"`
	AnswerID int       `gorm:"not null;uniqueIndex:idx_answer_like" json:"answer_id"`
	UserID   int       `gorm:"not null;uniqueIndex:idx_answer_like" json:"user_id"`
	LikedAt  time.Time `json:"liked_at"`
}

type QuestionLike struct {
	ID         int       `gorm:"primary_key;autoIncrement" json:"id"`
	QuestionID int       `gorm:"not null;uniqueIndex:idx_question_like" json:"question_id"`
	UserID     int       `gorm:"not null;uniqueIndex:idx_question_like" json:"user_id"`
	LikedAt    time.Time `json:"liked_at"`
}
