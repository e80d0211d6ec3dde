package services

import (
	"log"
	"os"

	"github.com/slack-go/slack"
)

// NotifySlack は運用向けのSlack通知を送る
// SLACK_WEBHOOK_URLが未設定なら何もしない 失敗してもログに出すだけ
func NotifySlack(message string) {
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")
	if webhookURL == "" {
		return
	}

	msg := &slack.WebhookMessage{Text: message}
	if err := slack.PostWebhook(webhookURL, msg); err != nil {
		log.Printf("slack notify error: %v", err)
	}
}
