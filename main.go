package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"tribuna/articles"
	"tribuna/comments"
	"tribuna/common"
	"tribuna/database"
	"tribuna/qa"
	"tribuna/users"
	"tribuna/writers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	db := common.ConnectDb()
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	router := gin.Default()

	userModule := users.NewUserModule(db)
	userModule.RegisterRoutes(router)

	writerModule := writers.NewWriterModule(db)
	writerModule.RegisterRoutes(router)

	articleModule := articles.NewArticleModule(db, writerModule)
	articleModule.RegisterRoutes(router)

	commentModule := comments.NewCommentModule(db)
	commentModule.RegisterRoutes(router)

	qaModule := qa.NewQAModule(db)
	qaModule.RegisterRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
