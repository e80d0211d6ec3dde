package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"merge-schedule/models"
)

// ScheduleKey はマージ予定を特定するためのキー
// 同じキーに対して有効な予定は常に1件だけになるように運用する
// （DBの制約ではなくreconcile側で維持している）
type ScheduleKey struct {
	InstallationID    int64
	RepositoryOwner   string
	RepositoryName    string
	PullRequestNumber int
}

func scheduleScope(db *gorm.DB, key ScheduleKey) *gorm.DB {
	return db.Where(
		"installation_id = ? AND repository_owner = ? AND repository_name = ? AND pull_request_number = ?",
		key.InstallationID, key.RepositoryOwner, key.RepositoryName, key.PullRequestNumber,
	)
}

// FindSchedule は該当キーの予定を1件返す（なければnil）
func FindSchedule(db *gorm.DB, key ScheduleKey) (*models.MergeSchedule, error) {
	var schedule models.MergeSchedule
	err := scheduleScope(db, key).First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindSchedules は該当キーの予定を全件返す
func FindSchedules(db *gorm.DB, key ScheduleKey) ([]models.MergeSchedule, error) {
	var schedules []models.MergeSchedule
	err := scheduleScope(db, key).Find(&schedules).Error
	return schedules, err
}

// InsertSchedule は新しいマージ予定を登録する IDはここで採番する
func InsertSchedule(db *gorm.DB, key ScheduleKey, willMergeAt string) (*models.MergeSchedule, error) {
	schedule := models.MergeSchedule{
		ID:                uuid.NewString(),
		InstallationID:    key.InstallationID,
		RepositoryOwner:   key.RepositoryOwner,
		RepositoryName:    key.RepositoryName,
		PullRequestNumber: key.PullRequestNumber,
		WillMergeAt:       willMergeAt,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}

	if err := db.Create(&schedule).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

// UpdateScheduleTime は予定時刻だけを書き換える
func UpdateScheduleTime(db *gorm.DB, id string, willMergeAt string) error {
	return db.Model(&models.MergeSchedule{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"will_merge_at": willMergeAt,
			"updated_at":    time.Now(),
		}).Error
}

// DeleteSchedules は該当キーの予定を全て削除する
func DeleteSchedules(db *gorm.DB, key ScheduleKey) error {
	return scheduleScope(db, key).Delete(&models.MergeSchedule{}).Error
}

// DeleteScheduleByID はIDを指定して予定を削除する
func DeleteScheduleByID(db *gorm.DB, id string) error {
	return db.Where("id = ?", id).Delete(&models.MergeSchedule{}).Error
}

// FindDueSchedules は予定時刻がnowより前（未満）の予定を全件返す
// 保存フォーマットが固定なので文字列比較がそのまま時刻比較になる
func FindDueSchedules(db *gorm.DB, now time.Time) ([]models.MergeSchedule, error) {
	var schedules []models.MergeSchedule
	err := db.Where("will_merge_at < ?", now.UTC().Format(WillMergeAtFormat)).
		Find(&schedules).Error
	return schedules, err
}

// IsSameSchedule は2つの予定時刻を秒単位で比較する
// パース時のミリ秒の揺れで予定が作り直されるのを防ぐため、ミリ秒は見ない
func IsSameSchedule(a, b string) bool {
	ta, errA := parseISOInstant(a)
	tb, errB := parseISOInstant(b)
	if errA != nil || errB != nil {
		return false
	}
	return ta.UTC().Truncate(time.Second).Equal(tb.UTC().Truncate(time.Second))
}
