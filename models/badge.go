package models

import (
	"time"
)

type BadgeMetric string

const (
	BadgeMetricScore        BadgeMetric = "score"
	BadgeMetricStreak       BadgeMetric = "streak"
	BadgeMetricWins         BadgeMetric = "wins"
	BadgeMetricCertificates BadgeMetric = "certificates"
)

// BadgeRule: static milestone config, evaluated on every snapshot sync.
type BadgeRule struct {
	Code        string
	Metric      BadgeMetric
	Threshold   int
	Name        string
	Icon        string
	Description string
}

// BadgeRules are checked in order on each sync. A rule fires once per
// student; grants are never revoked even if the metric later drops.
var BadgeRules = []BadgeRule{
	{Code: "score_10", Metric: BadgeMetricScore, Threshold: 10, Name: "Boshlang'ich", Icon: "military_tech", Description: "10 ball to'plandi"},
	{Code: "score_30", Metric: BadgeMetricScore, Threshold: 30, Name: "Faol o'quvchi", Icon: "workspace_premium", Description: "30 ball to'plandi"},
	{Code: "score_60", Metric: BadgeMetricScore, Threshold: 60, Name: "Kuchli natija", Icon: "emoji_events", Description: "60 ball to'plandi"},
	{Code: "score_100", Metric: BadgeMetricScore, Threshold: 100, Name: "Yuqori liga", Icon: "stars", Description: "100 ball to'plandi"},
	{Code: "streak_2", Metric: BadgeMetricStreak, Threshold: 2, Name: "Barqarorlik", Icon: "local_fire_department", Description: "2 hafta ketma-ket faollik"},
	{Code: "streak_4", Metric: BadgeMetricStreak, Threshold: 4, Name: "Temir intizom", Icon: "bolt", Description: "4 hafta ketma-ket faollik"},
	{Code: "challenge_winner", Metric: BadgeMetricWins, Threshold: 1, Name: "Challenge g'olibi", Icon: "trophy", Description: "Haftalik challenge'da 1-o'rin"},
	{Code: "certified", Metric: BadgeMetricCertificates, Threshold: 1, Name: "Sertifikatli", Icon: "verified", Description: "Kamida bitta sertifikat olindi"},
}

// StudentBadge is an awarded instance. The unique pair keeps a grant
// idempotent under concurrent syncs.
type StudentBadge struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StudentID        string    `gorm:"uniqueIndex:uk_student_badge;type:varchar(36);not null" json:"student_id"`
	BadgeCode        string    `gorm:"uniqueIndex:uk_student_badge;type:varchar(100);not null" json:"badge_code"`
	BadgeName        string    `gorm:"not null" json:"badge_name"`
	BadgeIcon        string    `gorm:"type:varchar(100)" json:"badge_icon"`
	BadgeDescription string    `gorm:"type:text" json:"badge_description"`
	AwardedAt        time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}
