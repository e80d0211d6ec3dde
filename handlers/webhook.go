package handlers

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v71/github"
	"gorm.io/gorm"

	"merge-schedule/services"
)

// HandleGitHubWebhook はGitHubのwebhookを処理するハンドラを返す
func HandleGitHubWebhook(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 署名（HMAC-SHA-256）の検証もここで行われる
		// GITHUB_WEBHOOK_SECRETが未設定の場合は検証をスキップする
		payload, err := github.ValidatePayload(c.Request, []byte(os.Getenv("GITHUB_WEBHOOK_SECRET")))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}

		// リクエストヘッダーの "X-GitHub-Event" からイベントの種類を判別して構造体に格納する
		event, err := github.ParseWebHook(github.WebHookType(c.Request), payload)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot parse webhook"})
			return
		}

		switch e := event.(type) {
		case *github.PullRequestEvent:
			handlePullRequestEvent(db, e)
		}

		// reconcile内のエラーはログに出して握りつぶすので、
		// パースまで通ったリクエストには常に200を返す
		c.Status(http.StatusOK)
	}
}

func handlePullRequestEvent(db *gorm.DB, e *github.PullRequestEvent) {
	if e.GetInstallation().GetID() == 0 {
		log.Println("installation not found")
		return
	}

	client := services.NewGitHubClient()

	switch e.GetAction() {
	case "opened":
		services.HandlePullRequestOpened(db, client, e)
	case "edited":
		services.HandlePullRequestEdited(db, client, e)
	case "closed":
		services.HandlePullRequestClosed(db, client, e)
	}
}
