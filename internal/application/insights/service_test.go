package insights

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	domanalysis "github.com/clinwell/checkin-api/internal/domain/analysis"
	domain "github.com/clinwell/checkin-api/internal/domain/checkins"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

type stubRepo struct {
	list      []*domain.CheckIn
	err       error
	gotSince  time.Time
	gotTenant string
}

func (s *stubRepo) Save(ctx context.Context, c *domain.CheckIn) error { return nil }
func (s *stubRepo) Get(ctx context.Context, tenant string, id domain.CheckInID) (*domain.CheckIn, error) {
	return nil, nil
}
func (s *stubRepo) Latest(ctx context.Context, tenant string, limit int) ([]*domain.CheckIn, error) {
	return nil, nil
}
func (s *stubRepo) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.CheckIn, error) {
	return nil, nil
}
func (s *stubRepo) ListSince(ctx context.Context, tenant, patient string, since time.Time) ([]*domain.CheckIn, error) {
	s.gotTenant = tenant
	s.gotSince = since
	return s.list, s.err
}

type stubNarrator struct {
	text     string
	err      error
	gotStats string
}

func (s *stubNarrator) Narrate(ctx context.Context, statsJSON string) (string, error) {
	s.gotStats = statsJSON
	return s.text, s.err
}

var testNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

func checkinAt(daysAgo int, mood int) *domain.CheckIn {
	return &domain.CheckIn{
		Status:      domain.StatusAnalyzed,
		SubmittedAt: testNow.AddDate(0, 0, -daysAgo),
		Assessment: &domanalysis.ClinicalAnalysis{
			MoodScore:       mood,
			ClinicalSummary: "ok",
		},
	}
}

func newTestService(repo *stubRepo) *Service {
	return &Service{CheckIns: repo, Clock: fixedClock{now: testNow}}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSummarizeWindowAndAverages(t *testing.T) {
	repo := &stubRepo{list: []*domain.CheckIn{
		checkinAt(6, 4),
		checkinAt(4, 5),
		checkinAt(2, 7),
		checkinAt(1, 8),
	}}
	svc := newTestService(repo)

	sum, err := svc.Summarize(context.Background(), "clinic-a", "patient-7", 7)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if repo.gotTenant != "clinic-a" {
		t.Errorf("tenant = %s", repo.gotTenant)
	}
	if want := testNow.AddDate(0, 0, -7); !repo.gotSince.Equal(want) {
		t.Errorf("since = %v, want %v", repo.gotSince, want)
	}
	if sum.CheckInCount != 4 {
		t.Errorf("count = %d, want 4", sum.CheckInCount)
	}
	if !almostEqual(sum.AverageMood, 6.0) {
		t.Errorf("average = %v, want 6.0", sum.AverageMood)
	}
	// later half (7,8) vs earlier half (4,5): +3
	if !almostEqual(sum.TrendDelta, 3.0) {
		t.Errorf("delta = %v, want 3.0", sum.TrendDelta)
	}
	if sum.MoodTrend != "improving" {
		t.Errorf("trend = %s, want improving", sum.MoodTrend)
	}
}

func TestSummarizeTrendLabels(t *testing.T) {
	tests := []struct {
		name  string
		moods [][2]int // daysAgo, mood (oldest first)
		want  string
	}{
		{"declining", [][2]int{{6, 9}, {4, 8}, {2, 4}, {1, 3}}, "declining"},
		{"stable", [][2]int{{6, 6}, {4, 6}, {2, 6}, {1, 6}}, "stable"},
		{"single checkin is stable", [][2]int{{1, 2}}, "stable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var list []*domain.CheckIn
			for _, m := range tt.moods {
				list = append(list, checkinAt(m[0], m[1]))
			}
			svc := newTestService(&stubRepo{list: list})

			sum, err := svc.Summarize(context.Background(), "t", "p", 7)
			if err != nil {
				t.Fatalf("Summarize: %v", err)
			}
			if sum.MoodTrend != tt.want {
				t.Errorf("trend = %s, want %s", sum.MoodTrend, tt.want)
			}
		})
	}
}

func TestSummarizeStreakAndCompliance(t *testing.T) {
	// today, yesterday, 2 days ago, then a gap
	repo := &stubRepo{list: []*domain.CheckIn{
		checkinAt(5, 5),
		checkinAt(2, 5),
		checkinAt(1, 6),
		checkinAt(0, 6),
		checkinAt(0, 7), // second check-in same day must not double-count
	}}
	svc := newTestService(repo)

	sum, err := svc.Summarize(context.Background(), "t", "p", 7)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.StreakDays != 3 {
		t.Errorf("streak = %d, want 3", sum.StreakDays)
	}
	// 4 distinct days over a 7 day window
	if !almostEqual(sum.ComplianceRate, 4.0/7.0) {
		t.Errorf("compliance = %v, want %v", sum.ComplianceRate, 4.0/7.0)
	}
}

func TestSummarizeStreakBrokenYesterday(t *testing.T) {
	repo := &stubRepo{list: []*domain.CheckIn{checkinAt(2, 5), checkinAt(3, 5)}}
	svc := newTestService(repo)

	sum, err := svc.Summarize(context.Background(), "t", "p", 7)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.StreakDays != 0 {
		t.Errorf("streak = %d, want 0 without a check-in today", sum.StreakDays)
	}
}

func TestSummarizeRiskCounts(t *testing.T) {
	a := checkinAt(3, 4)
	a.Assessment.RiskFlags = domanalysis.RiskFlags{Suicidality: true, SevereDistress: true}
	b := checkinAt(1, 5)
	b.Assessment.RiskFlags = domanalysis.RiskFlags{SevereDistress: true}
	c := checkinAt(0, 6) // no flags
	repo := &stubRepo{list: []*domain.CheckIn{a, b, c}}
	svc := newTestService(repo)

	sum, err := svc.Summarize(context.Background(), "t", "p", 7)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	want := RiskCounts{Suicidality: 1, SevereDistress: 2}
	if sum.RiskFlagCounts != want {
		t.Errorf("risk counts = %+v, want %+v", sum.RiskFlagCounts, want)
	}
}

func TestSummarizeEmptyWindow(t *testing.T) {
	svc := newTestService(&stubRepo{})
	n := &stubNarrator{text: "should not be called"}
	svc.Narrator = n

	sum, err := svc.Summarize(context.Background(), "t", "p", 7)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.CheckInCount != 0 || sum.AverageMood != 0 || sum.StreakDays != 0 {
		t.Errorf("empty window stats = %+v", sum)
	}
	if sum.Narrative != "" {
		t.Errorf("narrative = %q, want none for an empty window", sum.Narrative)
	}
	if n.gotStats != "" {
		t.Error("narrator was called for an empty window")
	}
}

func TestSummarizeNarrative(t *testing.T) {
	repo := &stubRepo{list: []*domain.CheckIn{checkinAt(1, 7)}}
	svc := newTestService(repo)
	n := &stubNarrator{text: "Mood has been steady this week."}
	svc.Narrator = n

	sum, err := svc.Summarize(context.Background(), "t", "patient-7", 7)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Narrative != n.text {
		t.Errorf("narrative = %q, want %q", sum.Narrative, n.text)
	}

	// the narrator gets the computed stats as JSON
	var echo Summary
	if err := json.Unmarshal([]byte(n.gotStats), &echo); err != nil {
		t.Fatalf("narrator stats are not JSON: %v", err)
	}
	if echo.PatientID != "patient-7" || echo.CheckInCount != 1 {
		t.Errorf("narrator stats = %+v", echo)
	}
}

func TestSummarizeNarratorFailureIsDropped(t *testing.T) {
	repo := &stubRepo{list: []*domain.CheckIn{checkinAt(1, 7)}}
	svc := newTestService(repo)
	svc.Narrator = &stubNarrator{err: errors.New("quota exceeded")}

	sum, err := svc.Summarize(context.Background(), "t", "p", 7)
	if err != nil {
		t.Fatalf("narrator failures must not fail the summary: %v", err)
	}
	if sum.Narrative != "" {
		t.Errorf("narrative = %q, want empty", sum.Narrative)
	}
}

func TestSummarizeRepoErrorPropagates(t *testing.T) {
	boom := errors.New("db gone")
	svc := newTestService(&stubRepo{err: boom})

	if _, err := svc.Summarize(context.Background(), "t", "p", 7); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want repo error", err)
	}
}
