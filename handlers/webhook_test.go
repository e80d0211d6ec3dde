package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v71/github"
	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"merge-schedule/models"
	"merge-schedule/services"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("fail to open test db: %v", err)
	}

	if err := db.AutoMigrate(&models.MergeSchedule{}); err != nil {
		t.Fatalf("fail to migrate test db: %v", err)
	}

	return db
}

func makeWebhookPayload(action, body string) github.PullRequestEvent {
	return github.PullRequestEvent{
		Action: github.String(action),
		Installation: &github.Installation{
			ID: github.Int64(100),
		},
		PullRequest: &github.PullRequest{
			Number: github.Int(1),
			Body:   github.String(body),
			State:  github.String("open"),
		},
		Repo: &github.Repository{
			Name: github.String("repo"),
			Owner: &github.User{
				Login: github.String("test"),
			},
		},
	}
}

func postWebhook(db *gorm.DB, payload []byte) *httptest.ResponseRecorder {
	router := gin.New()
	router.POST("/webhook", HandleGitHubWebhook(db))

	req, _ := http.NewRequest("POST", "/webhook", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "pull_request")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleWebhookOpenedEvent(t *testing.T) {
	db := setupTestDB(t)
	gin.SetMode(gin.TestMode)

	originalSecret := os.Getenv("GITHUB_WEBHOOK_SECRET")
	defer os.Setenv("GITHUB_WEBHOOK_SECRET", originalSecret)
	os.Setenv("GITHUB_WEBHOOK_SECRET", "")

	defer gock.Off()

	gock.New("https://api.github.com").
		Post("/repos/test/repo/issues/1/comments").
		Reply(201).
		JSON(map[string]interface{}{"id": 1})

	payload := makeWebhookPayload("opened", "aaaa\n/merge-schedule 2021-03-01T11:00:00+09:00\nbbbb")
	jsonPayload, _ := json.Marshal(payload)

	w := postWebhook(db, jsonPayload)
	assert.Equal(t, http.StatusOK, w.Code)

	// 予定が登録されている
	var schedule models.MergeSchedule
	err := db.Where("repository_owner = ? AND repository_name = ? AND pull_request_number = ?",
		"test", "repo", 1).First(&schedule).Error
	assert.NoError(t, err)
	assert.Equal(t, int64(100), schedule.InstallationID)
	assert.Equal(t, "2021-03-01T02:00:00.000Z", schedule.WillMergeAt)
}

func TestHandleWebhookClosedEvent(t *testing.T) {
	db := setupTestDB(t)
	gin.SetMode(gin.TestMode)

	originalSecret := os.Getenv("GITHUB_WEBHOOK_SECRET")
	defer os.Setenv("GITHUB_WEBHOOK_SECRET", originalSecret)
	os.Setenv("GITHUB_WEBHOOK_SECRET", "")

	key := services.ScheduleKey{
		InstallationID:    100,
		RepositoryOwner:   "test",
		RepositoryName:    "repo",
		PullRequestNumber: 1,
	}
	_, err := services.InsertSchedule(db, key, "2021-03-01T02:00:00.000Z")
	assert.NoError(t, err)

	payload := makeWebhookPayload("closed", "")
	jsonPayload, _ := json.Marshal(payload)

	w := postWebhook(db, jsonPayload)
	assert.Equal(t, http.StatusOK, w.Code)

	schedules, err := services.FindSchedules(db, key)
	assert.NoError(t, err)
	assert.Len(t, schedules, 0)
}

func TestHandleWebhookIgnoredAction(t *testing.T) {
	db := setupTestDB(t)
	gin.SetMode(gin.TestMode)

	originalSecret := os.Getenv("GITHUB_WEBHOOK_SECRET")
	defer os.Setenv("GITHUB_WEBHOOK_SECRET", originalSecret)
	os.Setenv("GITHUB_WEBHOOK_SECRET", "")

	payload := makeWebhookPayload("labeled", "/merge-schedule 2021-03-01T11:00:00+09:00")
	jsonPayload, _ := json.Marshal(payload)

	w := postWebhook(db, jsonPayload)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.MergeSchedule{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestHandleWebhookMissingInstallation(t *testing.T) {
	db := setupTestDB(t)
	gin.SetMode(gin.TestMode)

	originalSecret := os.Getenv("GITHUB_WEBHOOK_SECRET")
	defer os.Setenv("GITHUB_WEBHOOK_SECRET", originalSecret)
	os.Setenv("GITHUB_WEBHOOK_SECRET", "")

	payload := makeWebhookPayload("opened", "/merge-schedule 2021-03-01T11:00:00+09:00")
	payload.Installation = nil
	jsonPayload, _ := json.Marshal(payload)

	// installationが取れないイベントは無視する
	w := postWebhook(db, jsonPayload)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&models.MergeSchedule{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	db := setupTestDB(t)
	gin.SetMode(gin.TestMode)

	// secretを設定した状態で署名なしのリクエストを送ると400になる
	originalSecret := os.Getenv("GITHUB_WEBHOOK_SECRET")
	defer os.Setenv("GITHUB_WEBHOOK_SECRET", originalSecret)
	os.Setenv("GITHUB_WEBHOOK_SECRET", "test-secret")

	payload := makeWebhookPayload("opened", "/merge-schedule 2021-03-01T11:00:00+09:00")
	jsonPayload, _ := json.Marshal(payload)

	w := postWebhook(db, jsonPayload)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	db.Model(&models.MergeSchedule{}).Count(&count)
	assert.Equal(t, int64(0), count)
}
