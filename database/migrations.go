package database

import (
	"log"

	"tribuna/models"

	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Writer{},
		&models.Article{},
		&models.ArticleDetail{},
		&models.ArticleWriter{},
		&models.Question{},
		&models.Comment{},
		&models.Answer{},
		&models.ArticleLike{},
		&models.CommentLike{},
		&models.AnswerLike{},
		&models.QuestionLike{},
	)

	if err != nil {
		log.Printf("Error running migrations: %v", err)
		return err
	}

	log.Println("Migrations completed successfully")
	return nil
}
