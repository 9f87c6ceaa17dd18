// Package post owns outbound publishing: the rate-limited queue, the text
// helpers, and the concrete post builders for every message the bot sends.
package post

import (
	"fmt"
	"math"
	"time"
)

const chatHeader = "【新着コメント😎】"

// BuildChatPost formats a republished chat message.
func BuildChatPost(message string) string {
	return Truncate(chatHeader+"\n\n"+message, MaxPostLength)
}

// BuildUpcomingPost formats a scheduled-stream announcement.
func BuildUpcomingPost(scheduledStart time.Time, now time.Time, channelTitle, title, url string) string {
	if channelTitle == "" {
		channelTitle = "チャンネル"
	}
	if title == "" {
		title = "タイトル未設定"
	} else {
		title = Truncate(title, 40)
	}
	msg := fmt.Sprintf("【🔴%sに%sの配信が始まります】\n\n開始予定: %s\nタイトル: %s\n\n%s",
		formatTimeUntil(scheduledStart, now),
		channelTitle,
		scheduledStart.Local().Format("2006-01-02 15:04"),
		title,
		url,
	)
	return Truncate(msg, MaxPostLength)
}

// SummaryStats carries the per-source viewer statistics for a finished session.
type SummaryStats struct {
	PrimaryMax   int
	PrimaryAvg   int
	SecondaryMax int
	SecondaryAvg int
	HasSecondary bool
}

// BuildSummaryPost formats the end-of-stream viewer trend summary.
func BuildSummaryPost(endedAt time.Time, stats SummaryStats) string {
	lines := []string{
		fmt.Sprintf("【%s 同接推移📈】", formatMonthDay(endedAt)),
		"",
		"Twitch",
		fmt.Sprintf("最大同時接続者数：%d人", stats.PrimaryMax),
		fmt.Sprintf("平均同時接続者数：%d人", stats.PrimaryAvg),
	}
	if stats.HasSecondary {
		lines = append(lines,
			"",
			"YouTube",
			fmt.Sprintf("最大同時接続者数：%d人", stats.SecondaryMax),
			fmt.Sprintf("平均同時接続者数：%d人", stats.SecondaryAvg),
			"",
			fmt.Sprintf("最大同時接続者数（総計）：%d人", stats.PrimaryMax+stats.SecondaryMax),
		)
	}
	msg := ""
	for i, l := range lines {
		if i > 0 {
			msg += "\n"
		}
		msg += l
	}
	return Truncate(msg, MaxPostLength)
}

// BuildEmptySummaryPost is used when a session ended without a single sample.
func BuildEmptySummaryPost() string {
	return Truncate("配信同接推移\n\n同接データが取得できませんでした。", MaxPostLength)
}

// BuildMonthlyStatsPost formats the month-over-month streaming statistics.
// The window is [start, end); the displayed end date is end − 1s.
func BuildMonthlyStatsPost(start, end time.Time, totalDays int, totalSeconds float64, diffDays int, diffSeconds float64) string {
	totalMinutes := int(math.Round(totalSeconds / 60))
	hours := totalMinutes / 60
	minutes := totalMinutes % 60
	msg := fmt.Sprintf("【配信統計📊】\n\n%s〜%s\n\n配信日数：%d日（先月比 %s）\n総配信時間：%d時間%d分（先月比 %s）",
		formatMonthDay(start),
		formatMonthDay(end.Add(-time.Second)),
		totalDays,
		formatSignedInt(diffDays),
		hours, minutes,
		formatSignedDuration(diffSeconds),
	)
	return Truncate(msg, MaxPostLength)
}

func formatMonthDay(t time.Time) string {
	t = t.Local()
	return fmt.Sprintf("%d月%d日", int(t.Month()), t.Day())
}

func formatSignedInt(v int) string {
	if v >= 0 {
		return fmt.Sprintf("+%d", v)
	}
	return fmt.Sprintf("-%d", -v)
}

func formatSignedDuration(seconds float64) string {
	totalMinutes := int(math.Round(math.Abs(seconds) / 60))
	sign := "+"
	if seconds < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s%d時間%d分", sign, totalMinutes/60, totalMinutes%60)
}

// formatTimeUntil renders the remaining time to target in the coarsest unit
// that fits, never below one minute.
func formatTimeUntil(target, now time.Time) string {
	remaining := target.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	minutes := int(math.Ceil(remaining.Seconds() / 60))
	if minutes < 1 {
		minutes = 1
	}
	if minutes < 60 {
		return fmt.Sprintf("%d分後", minutes)
	}
	hours := (minutes + 59) / 60
	if hours < 24 {
		return fmt.Sprintf("%d時間後", hours)
	}
	days := (hours + 23) / 24
	return fmt.Sprintf("%d日後", days)
}
