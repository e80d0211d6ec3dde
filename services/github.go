package services

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/go-github/v71/github"
	"golang.org/x/oauth2"
)

// GitHubクライアントを作成する関数
func NewGitHubClient() *github.Client {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		log.Println("GITHUB_TOKEN is not set")
		return github.NewClient(nil) // 認証なしのクライアント
	}

	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	return github.NewClient(tc)
}

// PRの現在の状態（open/closed）を取得する関数
func GetPullRequestState(client *github.Client, owner, repo string, number int) (string, error) {
	ctx := context.Background()

	pr, _, err := client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return "", fmt.Errorf("failed to get pull request: %v", err)
	}

	return pr.GetState(), nil
}

// PRをマージする関数 マージ方法は指定しない（リポジトリのデフォルトに従う）
func MergePullRequest(client *github.Client, owner, repo string, number int) error {
	ctx := context.Background()

	_, _, err := client.PullRequests.Merge(ctx, owner, repo, number, "", &github.PullRequestOptions{})
	if err != nil {
		return fmt.Errorf("failed to merge pull request: %v", err)
	}

	return nil
}

// PRにコメントを投稿する関数 呼び出し側はエラーをログに出して握りつぶしてよい
func AddPullRequestComment(client *github.Client, owner, repo string, number int, body string) error {
	ctx := context.Background()

	comment := &github.IssueComment{Body: github.String(body)}
	_, _, err := client.Issues.CreateComment(ctx, owner, repo, number, comment)
	if err != nil {
		return fmt.Errorf("failed to add comment: %v", err)
	}

	return nil
}
