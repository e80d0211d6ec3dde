package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// PR本文に埋め込むマージ予定の指定行の先頭トークン
const magicComment = "/merge-schedule"

// WillMergeAtFormat はDBに保存する時刻のフォーマット
// ミリ秒精度・UTCオフセット0で固定する
const WillMergeAtFormat = "2006-01-02T15:04:05.000Z"

// ScheduleInput はPR本文からパースしたマージ予定
type ScheduleInput struct {
	WillMergeAtUTC      string // 正規化済み（WillMergeAtFormat）
	WillMergeAtOriginal string // ユーザーが入力したままの文字列
}

var newlinePattern = regexp.MustCompile(`\r\n|\n`)

var scheduleLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseSchedule はPR本文からマージ予定の指定行を取り出す
// 指定行がなければ (nil, nil) を返す
// 指定行が複数ある場合は最後の行が有効になる
func ParseSchedule(body string) (*ScheduleInput, error) {
	lines := newlinePattern.Split(body, -1)

	var input *ScheduleInput
	var parseErr error

	for _, line := range lines {
		if !strings.HasPrefix(line, magicComment) {
			continue
		}

		raw := strings.TrimSpace(strings.TrimPrefix(line, magicComment))

		t, err := parseISOInstant(raw)
		if err != nil {
			input = nil
			parseErr = fmt.Errorf("ParseError : %v", err)
			continue
		}

		input = &ScheduleInput{
			WillMergeAtUTC:      t.UTC().Format(WillMergeAtFormat),
			WillMergeAtOriginal: raw,
		}
		parseErr = nil
	}

	if parseErr != nil {
		return nil, parseErr
	}
	return input, nil
}

// ISO-8601の時刻文字列をパースする タイムゾーン表記がない場合はUTCとみなす
func parseISOInstant(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range scheduleLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
