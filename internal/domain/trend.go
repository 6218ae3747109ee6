package domain

import (
	"math"
	"time"
)

// TrendItem is one hot-list entry as returned by a platform scanner.
type TrendItem struct {
	Title       string   `json:"title"`
	HeatValue   *float64 `json:"heatValue,omitempty"`
	URL         string   `json:"url,omitempty"`
	Description string   `json:"description,omitempty"`
	Rank        int      `json:"rank"`
}

// TrendSnapshot is an immutable observation of a trend item on one platform.
type TrendSnapshot struct {
	Platform   string
	Title      string
	URL        string
	Rank       int
	HeatValue  *float64
	CapturedAt time.Time
}

// Heat returns the heat value, or zero when it is missing or not finite.
func (s TrendSnapshot) Heat() float64 {
	if s.HeatValue == nil {
		return 0
	}
	h := *s.HeatValue
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	return h
}

// Evidence is a representative snapshot kept on a topic cluster.
type Evidence struct {
	Platform   string    `json:"platform"`
	Title      string    `json:"title"`
	URL        string    `json:"url,omitempty"`
	Rank       int       `json:"rank"`
	HeatValue  *float64  `json:"heatValue,omitempty"`
	CapturedAt time.Time `json:"capturedAt"`
}

// TopicCluster groups snapshots sharing a title fingerprint inside a sync window.
type TopicCluster struct {
	ID               string     `json:"id"`
	Fingerprint      string     `json:"fingerprint"`
	Title            string     `json:"title"`
	Keywords         []string   `json:"keywords"`
	Evidence         []Evidence `json:"evidence"`
	ResonanceCount   int        `json:"resonanceCount"`
	GrowthScore      float64    `json:"growthScore"`
	PersistenceScore float64    `json:"persistenceScore"`
	LatestSnapshotAt time.Time  `json:"latestSnapshotAt"`
	WindowStart      time.Time  `json:"windowStart"`
	WindowEnd        time.Time  `json:"windowEnd"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// SnapshotSaveResult tallies a per-item snapshot write for one platform.
type SnapshotSaveResult struct {
	Platform     string `json:"platform"`
	SuccessCount int    `json:"successCount"`
	FailCount    int    `json:"failCount"`
	Error        string `json:"error,omitempty"`
}

// TrendSyncResult aggregates an ingestion pass over every configured platform.
type TrendSyncResult struct {
	Platforms    []SnapshotSaveResult `json:"platforms"`
	TotalSuccess int                  `json:"totalSuccess"`
	TotalFailed  int                  `json:"totalFailed"`
	CapturedAt   time.Time            `json:"capturedAt"`
}
