package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/go-github/v71/github"
	"gorm.io/gorm"

	"merge-schedule/models"
)

// ProcessDueSchedules は予定時刻を過ぎたマージ予定を順に処理する
// 1件の失敗が他の予定の処理を止めないようにする
func ProcessDueSchedules(db *gorm.DB, client *github.Client) {
	now := time.Now()

	schedules, err := FindDueSchedules(db, now)
	if err != nil {
		log.Printf("due schedule check error: %v", err)
		return
	}

	if len(schedules) == 0 {
		return
	}

	log.Printf("due schedules found: %d", len(schedules))

	for _, schedule := range schedules {
		processDueSchedule(db, client, schedule)
	}
}

func processDueSchedule(db *gorm.DB, client *github.Client, schedule models.MergeSchedule) {
	key := ScheduleKey{
		InstallationID:    schedule.InstallationID,
		RepositoryOwner:   schedule.RepositoryOwner,
		RepositoryName:    schedule.RepositoryName,
		PullRequestNumber: schedule.PullRequestNumber,
	}

	state, err := GetPullRequestState(client, key.RepositoryOwner, key.RepositoryName, key.PullRequestNumber)
	if err != nil {
		// 取得に失敗した予定は残しておいて次のtickでやり直す
		log.Printf("pull request fetch error (schedule id: %s): %v", schedule.ID, err)
		return
	}

	if state != "open" {
		log.Printf("pull request is not open, cancel schedule (schedule id: %s)", schedule.ID)

		if err := DeleteScheduleByID(db, schedule.ID); err != nil {
			log.Printf("schedule delete error (schedule id: %s): %v", schedule.ID, err)
			return
		}

		postScheduleComment(client, key,
			"⚠ Scheduled merge canceled because pull request is not open. (Schedule is deleted)")
		NotifySlack(fmt.Sprintf("merge schedule canceled: %s/%s#%d",
			key.RepositoryOwner, key.RepositoryName, key.PullRequestNumber))
		return
	}

	if err := MergePullRequest(client, key.RepositoryOwner, key.RepositoryName, key.PullRequestNumber); err != nil {
		// マージできなかった場合はいったん無視 予定は残るので次のtickで再試行される
		log.Printf("merge error (schedule id: %s): %v", schedule.ID, err)
		return
	}

	if err := DeleteScheduleByID(db, schedule.ID); err != nil {
		log.Printf("schedule delete error (schedule id: %s): %v", schedule.ID, err)
	}

	log.Printf("pull request merged (schedule id: %s)", schedule.ID)

	postScheduleComment(client, key, "Pull request merged by Scheduled-merge.")
	NotifySlack(fmt.Sprintf("pull request merged: %s/%s#%d",
		key.RepositoryOwner, key.RepositoryName, key.PullRequestNumber))
}
