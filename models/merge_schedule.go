package models

import (
	"time"

	"gorm.io/gorm"
)

// MergeSchedule は1つのPRに対するマージ予定を表す
// WillMergeAt はミリ秒精度・UTCオフセット0のISO-8601文字列で保存する
// （フォーマットが固定なので文字列の辞書順と時刻順が一致する）
type MergeSchedule struct {
	ID                string `gorm:"primaryKey"`
	InstallationID    int64  `gorm:"index:idx_schedule_key"`
	RepositoryOwner   string `gorm:"index:idx_schedule_key"`
	RepositoryName    string `gorm:"index:idx_schedule_key"`
	PullRequestNumber int    `gorm:"index:idx_schedule_key"`
	WillMergeAt       string `gorm:"index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}
