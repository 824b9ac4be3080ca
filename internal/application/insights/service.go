package insights

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/clinwell/checkin-api/internal/application"
	"github.com/clinwell/checkin-api/internal/domain/ai"
	domain "github.com/clinwell/checkin-api/internal/domain/checkins"
)

// Service computes trend/streak/compliance statistics over stored
// assessments. Pure arithmetic over repository data; the optional Narrator
// adds a clinician-facing paragraph on top.
type Service struct {
	CheckIns domain.Repository
	Narrator ai.Narrator // optional
	Clock    application.Clock
}

// RiskCounts sums raised flags across the window
type RiskCounts struct {
	Suicidality    int `json:"suicidality"`
	SelfHarm       int `json:"self_harm"`
	SevereDistress int `json:"severe_distress"`
}

// Summary rekap insight per pasien
type Summary struct {
	PatientID      string     `json:"patient_id"`
	Days           int        `json:"days"`
	CheckInCount   int        `json:"checkin_count"`
	AverageMood    float64    `json:"average_mood"`
	TrendDelta     float64    `json:"trend_delta"`
	MoodTrend      string     `json:"mood_trend"` // improving | stable | declining
	StreakDays     int        `json:"streak_days"`
	ComplianceRate float64    `json:"compliance_rate"`
	RiskFlagCounts RiskCounts `json:"risk_flag_counts"`
	Narrative      string     `json:"narrative,omitempty"`
}

// trendThreshold: mood delta below this counts as stable
const trendThreshold = 0.5

// Summarize computes the window statistics for one patient and, when a
// narrator is wired, asks it for a narrative. Narrative failures are logged
// and dropped; stats always come back.
func (s *Service) Summarize(ctx context.Context, tenant, patient string, days int) (*Summary, error) {
	if days <= 0 {
		days = 7
	}
	now := s.Clock.Now()
	since := now.AddDate(0, 0, -days)

	list, err := s.CheckIns.ListSince(ctx, tenant, patient, since)
	if err != nil {
		return nil, err
	}

	sum := &Summary{PatientID: patient, Days: days}
	sum.CheckInCount = len(list)
	sum.AverageMood = averageMood(list)
	sum.TrendDelta = trendDelta(list)
	sum.MoodTrend = trendLabel(sum.TrendDelta)
	sum.StreakDays = streakDays(list, now)
	sum.ComplianceRate = complianceRate(list, days)
	sum.RiskFlagCounts = riskCounts(list)

	if s.Narrator != nil && sum.CheckInCount > 0 {
		stats, err := json.Marshal(sum)
		if err == nil {
			text, nerr := s.Narrator.Narrate(ctx, string(stats))
			if nerr != nil {
				log.Printf("insights narrative for %s skipped: %v", patient, nerr)
			} else {
				sum.Narrative = text
			}
		}
	}
	return sum, nil
}

func averageMood(list []*domain.CheckIn) float64 {
	var total, n int
	for _, c := range list {
		if c.Assessment == nil {
			continue
		}
		total += c.Assessment.MoodScore
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// trendDelta compares the average mood of the two halves of the window,
// oldest first. Positive delta means the later half is better.
func trendDelta(list []*domain.CheckIn) float64 {
	var scores []int
	for _, c := range list {
		if c.Assessment != nil {
			scores = append(scores, c.Assessment.MoodScore)
		}
	}
	if len(scores) < 2 {
		return 0
	}
	mid := len(scores) / 2
	return avg(scores[mid:]) - avg(scores[:mid])
}

func avg(scores []int) float64 {
	total := 0
	for _, v := range scores {
		total += v
	}
	return float64(total) / float64(len(scores))
}

func trendLabel(delta float64) string {
	switch {
	case delta >= trendThreshold:
		return "improving"
	case delta <= -trendThreshold:
		return "declining"
	default:
		return "stable"
	}
}

// streakDays counts consecutive calendar days with at least one check-in,
// walking back from today.
func streakDays(list []*domain.CheckIn, now time.Time) int {
	seen := make(map[string]bool, len(list))
	for _, c := range list {
		seen[c.SubmittedAt.Format("2006-01-02")] = true
	}
	streak := 0
	day := now
	for seen[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// complianceRate: distinct check-in days over the window size, capped at 1
func complianceRate(list []*domain.CheckIn, days int) float64 {
	seen := make(map[string]bool, len(list))
	for _, c := range list {
		seen[c.SubmittedAt.Format("2006-01-02")] = true
	}
	rate := float64(len(seen)) / float64(days)
	if rate > 1 {
		rate = 1
	}
	return rate
}

func riskCounts(list []*domain.CheckIn) RiskCounts {
	var rc RiskCounts
	for _, c := range list {
		if c.Assessment == nil {
			continue
		}
		if c.Assessment.RiskFlags.Suicidality {
			rc.Suicidality++
		}
		if c.Assessment.RiskFlags.SelfHarm {
			rc.SelfHarm++
		}
		if c.Assessment.RiskFlags.SevereDistress {
			rc.SevereDistress++
		}
	}
	return rc
}
