package services

import (
	"fmt"
	"log"

	"github.com/google/go-github/v71/github"
	"gorm.io/gorm"
)

func scheduleKeyFromEvent(e *github.PullRequestEvent) ScheduleKey {
	return ScheduleKey{
		InstallationID:    e.GetInstallation().GetID(),
		RepositoryOwner:   e.GetRepo().GetOwner().GetLogin(),
		RepositoryName:    e.GetRepo().GetName(),
		PullRequestNumber: e.GetPullRequest().GetNumber(),
	}
}

// HandlePullRequestOpened はPR作成時に本文のマージ予定を登録する
// DBやAPIのエラーはログに出すだけでwebhookのレスポンスには影響させない
func HandlePullRequestOpened(db *gorm.DB, client *github.Client, e *github.PullRequestEvent) {
	key := scheduleKeyFromEvent(e)

	input, err := ParseSchedule(e.GetPullRequest().GetBody())
	if err != nil {
		postScheduleComment(client, key, "Merge schedule error: "+err.Error())
		return
	}
	if input == nil {
		return
	}

	existing, err := FindSchedule(db, key)
	if err != nil {
		log.Printf("schedule lookup error: %v", err)
		return
	}

	if existing != nil && IsSameSchedule(existing.WillMergeAt, input.WillMergeAtUTC) {
		log.Println("same schedule exists, ignore")
		return
	}

	// いったん削除してから登録し直す
	// トランザクションは張っていないので、間でクラッシュすると
	// 次のeditedイベントが来るまで予定が消えたままになる
	if err := DeleteSchedules(db, key); err != nil {
		log.Printf("schedule delete error: %v", err)
		return
	}
	if _, err := InsertSchedule(db, key, input.WillMergeAtUTC); err != nil {
		log.Printf("schedule insert error: %v", err)
		return
	}

	log.Printf("schedule created: %s/%s#%d at %s",
		key.RepositoryOwner, key.RepositoryName, key.PullRequestNumber, input.WillMergeAtUTC)

	postScheduleComment(client, key,
		fmt.Sprintf("Merge schedule created. : %s (%s)", input.WillMergeAtOriginal, input.WillMergeAtUTC))
}

// HandlePullRequestEdited はPR本文の編集に予定を追従させる
func HandlePullRequestEdited(db *gorm.DB, client *github.Client, e *github.PullRequestEvent) {
	if e.GetPullRequest().GetState() == "closed" {
		log.Println("pull request is closed, ignore")
		return
	}

	key := scheduleKeyFromEvent(e)

	input, err := ParseSchedule(e.GetPullRequest().GetBody())
	if err != nil {
		postScheduleComment(client, key, "Merge schedule error: "+err.Error())
		return
	}

	// 指定行が消えていたら予定を削除する
	if input == nil {
		schedules, err := FindSchedules(db, key)
		if err != nil {
			log.Printf("schedule lookup error: %v", err)
			return
		}
		if len(schedules) == 0 {
			return
		}

		log.Println("try to delete schedule")

		if err := DeleteSchedules(db, key); err != nil {
			log.Printf("schedule delete error: %v", err)
			return
		}

		postScheduleComment(client, key, "Merge schedule deleted.")
		return
	}

	existing, err := FindSchedule(db, key)
	if err != nil {
		log.Printf("schedule lookup error: %v", err)
		return
	}

	if existing != nil {
		if IsSameSchedule(existing.WillMergeAt, input.WillMergeAtUTC) {
			log.Println("same schedule exists, ignore")
			return
		}

		log.Println("schedule changed, update")

		if err := UpdateScheduleTime(db, existing.ID, input.WillMergeAtUTC); err != nil {
			log.Printf("schedule update error: %v", err)
			return
		}

		postScheduleComment(client, key,
			fmt.Sprintf("Merge schedule updated : %s (%s)", input.WillMergeAtOriginal, input.WillMergeAtUTC))
		return
	}

	if _, err := InsertSchedule(db, key, input.WillMergeAtUTC); err != nil {
		log.Printf("schedule insert error: %v", err)
		return
	}

	postScheduleComment(client, key,
		fmt.Sprintf("Merge schedule created. : %s (%s)", input.WillMergeAtOriginal, input.WillMergeAtUTC))
}

// HandlePullRequestClosed はPRが閉じられたときに予定を片付ける
// ユーザーへの通知はしない
func HandlePullRequestClosed(db *gorm.DB, client *github.Client, e *github.PullRequestEvent) {
	key := scheduleKeyFromEvent(e)

	existing, err := FindSchedule(db, key)
	if err != nil {
		log.Printf("schedule lookup error: %v", err)
		return
	}
	if existing == nil {
		return
	}

	if err := DeleteScheduleByID(db, existing.ID); err != nil {
		log.Printf("schedule delete error: %v", err)
		return
	}

	log.Printf("schedule deleted: %s/%s#%d",
		key.RepositoryOwner, key.RepositoryName, key.PullRequestNumber)
}

// コメント投稿はベストエフォート 失敗してもログに出すだけ
func postScheduleComment(client *github.Client, key ScheduleKey, body string) {
	err := AddPullRequestComment(client, key.RepositoryOwner, key.RepositoryName, key.PullRequestNumber, body)
	if err != nil {
		log.Printf("comment post error (%s/%s#%d): %v",
			key.RepositoryOwner, key.RepositoryName, key.PullRequestNumber, err)
	}
}
