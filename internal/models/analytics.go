package models

import "time"

// DepartmentCredits aggregates approved credit totals per department.
type DepartmentCredits struct {
	Department        string  `db:"department" json:"department"`
	StudentCount      int     `db:"student_count" json:"student_count"`
	TotalCredits      float64 `db:"total_credits" json:"total_credits"`
	AchievementsCount int     `db:"achievements_count" json:"achievements_count"`
}

// SkillCount is a skill tag with its frequency across approved achievements.
type SkillCount struct {
	Skill string `db:"skill" json:"skill"`
	Count int    `db:"count" json:"count"`
}

// SystemMetrics is a lightweight aggregate snapshot of runtime health,
// served alongside the Prometheus endpoint for dashboard consumption.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// InstitutionAnalytics is the aggregated view served to institution admins
// and recruiters.
type InstitutionAnalytics struct {
	InstitutionID        string              `json:"institution_id"`
	Departments          []DepartmentCredits `json:"departments"`
	PendingAchievements  int                 `json:"pending_achievements"`
	ApprovedAchievements int                 `json:"approved_achievements"`
	RejectedAchievements int                 `json:"rejected_achievements"`
	ActiveEvents         int                 `json:"active_events"`
	TopSkills            []SkillCount        `json:"top_skills"`
}
