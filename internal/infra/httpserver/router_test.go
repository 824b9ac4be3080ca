package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	appcheckins "github.com/clinwell/checkin-api/internal/application/checkins"
	appinsights "github.com/clinwell/checkin-api/internal/application/insights"
	domanalysis "github.com/clinwell/checkin-api/internal/domain/analysis"
	domain "github.com/clinwell/checkin-api/internal/domain/checkins"
	"github.com/clinwell/checkin-api/internal/domain/faults"
	"github.com/clinwell/checkin-api/internal/domain/pipeline"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

type memRepo struct {
	byID map[domain.CheckInID]*domain.CheckIn
}

func (m *memRepo) Save(ctx context.Context, c *domain.CheckIn) error {
	if m.byID == nil {
		m.byID = map[domain.CheckInID]*domain.CheckIn{}
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}
func (m *memRepo) Get(ctx context.Context, tenant string, id domain.CheckInID) (*domain.CheckIn, error) {
	return m.byID[id], nil
}
func (m *memRepo) Latest(ctx context.Context, tenant string, limit int) ([]*domain.CheckIn, error) {
	out := make([]*domain.CheckIn, 0, len(m.byID))
	for _, c := range m.byID {
		out = append(out, c)
	}
	return out, nil
}
func (m *memRepo) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.CheckIn, error) {
	return m.Latest(ctx, tenant, pageSize)
}
func (m *memRepo) ListSince(ctx context.Context, tenant, patient string, since time.Time) ([]*domain.CheckIn, error) {
	return m.Latest(ctx, tenant, 0)
}

type memFaults struct{ saved []*faults.PipelineFault }

func (m *memFaults) Save(ctx context.Context, f *faults.PipelineFault) error {
	m.saved = append(m.saved, f)
	return nil
}
func (m *memFaults) ListByCheckIn(ctx context.Context, tenant, checkinID string, limit int) ([]*faults.PipelineFault, error) {
	return m.saved, nil
}

type passthroughScratch struct{}

func (passthroughScratch) WithScopedFile(media domain.UploadedMedia, op func(path string) error) error {
	return op("/scratch/scan_test.mp4")
}

type stubAnalyzer struct {
	rec *domanalysis.ClinicalAnalysis
	err error
}

func (s *stubAnalyzer) ProcessVideo(ctx context.Context, path string) (*domanalysis.ClinicalAnalysis, error) {
	return s.rec, s.err
}

func testHandler(an *stubAnalyzer) (http.Handler, *memRepo) {
	repo := &memRepo{}
	clock := fixedClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	checkinsSvc := &appcheckins.Service{
		Repo:     repo,
		Faults:   &memFaults{},
		Scratch:  passthroughScratch{},
		Analyzer: an,
		Clock:    clock,
	}
	insightsSvc := &appinsights.Service{CheckIns: repo, Clock: clock}
	return NewRouter(checkinsSvc, insightsSvc, Options{}), repo
}

func multipartVideo(t *testing.T, patient string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="video"; filename="checkin.mp4"`)
	h.Set("Content-Type", "video/mp4")
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := io.WriteString(part, "fake video bytes"); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if patient != "" {
		if err := w.WriteField("patient_id", patient); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func goodAssessment() *domanalysis.ClinicalAnalysis {
	return &domanalysis.ClinicalAnalysis{
		MoodScore:       7,
		Biomarkers:      domanalysis.Biomarkers{SpeechLatency: "normal", Affect: "congruent", EyeContact: "good"},
		ClinicalSummary: "Calm and cooperative.",
	}
}

func TestSubmitReturns201(t *testing.T) {
	h, _ := testHandler(&stubAnalyzer{rec: goodAssessment()})

	body, ctype := multipartVideo(t, "patient-7")
	req := httptest.NewRequest(http.MethodPost, "/v1/clinic-a/checkins", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body)
	}
	var c domain.CheckIn
	if err := json.Unmarshal(rr.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if c.Status != domain.StatusAnalyzed {
		t.Errorf("status = %s, want %s", c.Status, domain.StatusAnalyzed)
	}
	if c.TenantID != "clinic-a" || c.PatientID != "patient-7" {
		t.Errorf("identity wrong: %+v", c)
	}
	if c.Assessment == nil || c.Assessment.MoodScore != 7 {
		t.Errorf("assessment missing: %+v", c.Assessment)
	}
}

func TestSubmitRejectsMissingVideo(t *testing.T) {
	h, _ := testHandler(&stubAnalyzer{rec: goodAssessment()})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("patient_id", "patient-7")
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/clinic-a/checkins", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestSubmitRejectsMissingPatientID(t *testing.T) {
	h, _ := testHandler(&stubAnalyzer{rec: goodAssessment()})

	body, ctype := multipartVideo(t, "")
	req := httptest.NewRequest(http.MethodPost, "/v1/clinic-a/checkins", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestSubmitRejectsBadTenant(t *testing.T) {
	h, _ := testHandler(&stubAnalyzer{rec: goodAssessment()})

	body, ctype := multipartVideo(t, "patient-7")
	req := httptest.NewRequest(http.MethodPost, "/v1/bad%20tenant/checkins", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestSubmitErrorCodeMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			"poll timeout",
			pipeline.E(pipeline.CodeProcessingTimeout, "not active after 30 attempts"),
			http.StatusGatewayTimeout,
			"FILE_PROCESSING_TIMEOUT",
		},
		{
			"invalid response",
			pipeline.Wrap(pipeline.CodeInvalidResponse,
				pipeline.E(pipeline.CodeValidationFailed, "mood_score out of range"),
				"provider response rejected"),
			http.StatusBadGateway,
			"INVALID_RESPONSE",
		},
		{
			"security error",
			pipeline.E(pipeline.CodeSecurityError, "refusing to delete outside temp root"),
			http.StatusBadRequest,
			"SECURITY_ERROR",
		},
		{
			"upload failed",
			pipeline.E(pipeline.CodeUploadFailed, "connection reset"),
			http.StatusInternalServerError,
			"UPLOAD_FAILED",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := testHandler(&stubAnalyzer{err: tt.err})

			body, ctype := multipartVideo(t, "patient-7")
			req := httptest.NewRequest(http.MethodPost, "/v1/clinic-a/checkins", body)
			req.Header.Set("Content-Type", ctype)
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body)
			}
			var e struct {
				ErrorCode string `json:"error_code"`
				Message   string `json:"message"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if e.ErrorCode != tt.wantCode {
				t.Errorf("error_code = %s, want %s", e.ErrorCode, tt.wantCode)
			}
			if e.Message == "" {
				t.Error("error body has no message")
			}
		})
	}
}

func TestGetCheckIn(t *testing.T) {
	h, repo := testHandler(&stubAnalyzer{rec: goodAssessment()})

	c := &domain.CheckIn{
		ID:       domain.CheckInID("3b241101-e2bb-4255-8caf-4136c566a962"),
		TenantID: "clinic-a",
		Status:   domain.StatusAnalyzed,
	}
	if err := repo.Save(context.Background(), c); err != nil {
		t.Fatalf("seed repo: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/clinic-a/checkins/3b241101-e2bb-4255-8caf-4136c566a962", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}

	// unknown but well-formed id
	req = httptest.NewRequest(http.MethodGet, "/v1/clinic-a/checkins/00000000-0000-4000-8000-000000000000", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want 404", rr.Code)
	}

	// malformed id
	req = httptest.NewRequest(http.MethodGet, "/v1/clinic-a/checkins/not-a-uuid", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed id status = %d, want 400", rr.Code)
	}
}

func TestInsightsEndpoint(t *testing.T) {
	h, repo := testHandler(&stubAnalyzer{rec: goodAssessment()})
	_ = repo.Save(context.Background(), &domain.CheckIn{
		ID:          domain.CheckInID("3b241101-e2bb-4255-8caf-4136c566a962"),
		TenantID:    "clinic-a",
		PatientID:   "patient-7",
		SubmittedAt: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
		Status:      domain.StatusAnalyzed,
		Assessment:  goodAssessment(),
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/clinic-a/insights?patient_id=patient-7&days=7", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body)
	}

	var sum appinsights.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.CheckInCount != 1 || sum.AverageMood != 7 {
		t.Errorf("summary = %+v", sum)
	}

	// missing patient_id
	req = httptest.NewRequest(http.MethodGet, "/v1/clinic-a/insights", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := testHandler(&stubAnalyzer{rec: goodAssessment()})

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rr.Code)
		}
	}
}
