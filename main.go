package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"merge-schedule/handlers"
	"merge-schedule/models"
	"merge-schedule/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found")
	}

	db, err := gorm.Open(sqlite.Open("merge_schedules.db"), &gorm.Config{})
	if err != nil {
		log.Fatal(err)
	}
	if err := db.AutoMigrate(&models.MergeSchedule{}); err != nil {
		log.Fatal(err)
	}

	// 期限が来た予定を定期的に処理する
	interval := os.Getenv("SWEEP_INTERVAL")
	if interval == "" {
		interval = "1m"
	}

	c := cron.New()
	_, err = c.AddFunc("@every "+interval, func() {
		services.ProcessDueSchedules(db, services.NewGitHubClient())
	})
	if err != nil {
		log.Fatal(err)
	}
	c.Start()

	r := gin.Default()
	r.POST("/webhook", handlers.HandleGitHubWebhook(db))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
