package checkins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clinwell/checkin-api/internal/application"
	domanalysis "github.com/clinwell/checkin-api/internal/domain/analysis"
	domain "github.com/clinwell/checkin-api/internal/domain/checkins"
	"github.com/clinwell/checkin-api/internal/domain/faults"
	"github.com/clinwell/checkin-api/internal/domain/pipeline"
)

// Pre-pipeline rejections from the optional media probe.
var (
	ErrNotAVideo    = errors.New("uploaded file has no video stream")
	ErrVideoTooLong = errors.New("video exceeds the configured duration cap")
)

// ScratchStore port: ephemeral local storage scoped to one pipeline run.
// Implemented by the temp file store.
type ScratchStore interface {
	WithScopedFile(media domain.UploadedMedia, op func(path string) error) error
}

// VideoAnalyzer port: the remote analysis pipeline (upload/poll/analyze/
// remote cleanup) behind a single entry point.
type VideoAnalyzer interface {
	ProcessVideo(ctx context.Context, path string) (*domanalysis.ClinicalAnalysis, error)
}

// Service implements use-cases untuk CheckIn.
// Invocations share no mutable state, so the service is safe to run
// concurrently for different check-ins.
type Service struct {
	Repo     domain.Repository
	Faults   faults.Repository
	Scratch  ScratchStore
	Analyzer VideoAnalyzer
	Archive  domain.ArchiveStore // optional
	Prober   domain.Prober       // optional
	Clock    application.Clock

	// MaxDurationSeconds caps probed video length; 0 disables the cap.
	MaxDurationSeconds float64
}

//
// ==== USE CASES ====
//

// Command untuk submit check-in
type SubmitCommand struct {
	TenantID  string
	PatientID string
	FileName  string
	MimeType  string
	Notes     string
	Data      []byte
}

// Submit runs the whole pipeline for one check-in video: save to temp,
// upload, wait, analyze, validate, then persist and archive the assessment.
// The temp file and the remote asset are both gone by the time this returns,
// success or failure; the first hard error along the way is the one the
// caller sees.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*domain.CheckIn, error) {
	now := s.Clock.Now()
	id := domain.CheckInID(uuid.New().String())

	c := &domain.CheckIn{
		ID:          id,
		TenantID:    cmd.TenantID,
		PatientID:   cmd.PatientID,
		FileName:    cmd.FileName,
		MimeType:    cmd.MimeType,
		SizeBytes:   int64(len(cmd.Data)),
		SubmittedAt: now,
		Status:      domain.StatusRunning,
		Notes:       cmd.Notes,
	}
	if err := s.Repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save initial check-in row: %w", err)
	}

	media := domain.UploadedMedia{Data: cmd.Data, FileName: cmd.FileName, MimeType: cmd.MimeType}

	var rec *domanalysis.ClinicalAnalysis
	err := s.Scratch.WithScopedFile(media, func(path string) error {
		if err := s.probe(ctx, path); err != nil {
			return err
		}
		var perr error
		rec, perr = s.Analyzer.ProcessVideo(ctx, path)
		return perr
	})
	c.DurationMS = s.Clock.Now().Sub(now).Milliseconds()

	if err != nil {
		c.Status = domain.StatusFailed
		c.ErrorCode = string(pipeline.CodeOf(err))
		// bookkeeping failures must not replace the pipeline error
		bg := context.WithoutCancel(ctx)
		if serr := s.Repo.Save(bg, c); serr != nil {
			log.Printf("save failed check-in %s: %v", id, serr)
		}
		s.recordFault(bg, c, err)
		return nil, err
	}

	c.Status = domain.StatusAnalyzed
	c.Assessment = rec
	s.archive(ctx, c)

	if err := s.Repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save analyzed check-in: %w", err)
	}
	return c, nil
}

// probe jalankan ffprobe kalau diaktifkan; probe errors are soft, only a
// configured duration cap rejects the upload.
func (s *Service) probe(ctx context.Context, path string) error {
	if s.Prober == nil {
		return nil
	}
	res, err := s.Prober.Probe(ctx, path)
	if err != nil {
		log.Printf("media probe failed for %s: %v", path, err)
		return nil
	}
	if !res.HasVideoStream {
		return ErrNotAVideo
	}
	if s.MaxDurationSeconds > 0 && res.DurationSeconds > s.MaxDurationSeconds {
		return ErrVideoTooLong
	}
	return nil
}

// archive stores the assessment JSON, best-effort
func (s *Service) archive(ctx context.Context, c *domain.CheckIn) {
	if s.Archive == nil || c.Assessment == nil {
		return
	}
	payload, err := json.Marshal(c.Assessment)
	if err != nil {
		log.Printf("marshal assessment %s: %v", c.ID, err)
		return
	}
	key := fmt.Sprintf("%s/%s/%s.json", c.TenantID, c.PatientID, c.ID)
	url, err := s.Archive.PutJSON(ctx, key, payload)
	if err != nil {
		log.Printf("archive assessment %s: %v", c.ID, err)
		return
	}
	c.ArchiveURL = url
}

func (s *Service) recordFault(ctx context.Context, c *domain.CheckIn, cause error) {
	if s.Faults == nil {
		return
	}
	f := &faults.PipelineFault{
		TenantID:  c.TenantID,
		CheckInID: string(c.ID),
		Stage:     stageOf(pipeline.CodeOf(cause)),
		Code:      string(pipeline.CodeOf(cause)),
		Message:   cause.Error(),
		CreatedAt: s.Clock.Now(),
	}
	if err := s.Faults.Save(ctx, f); err != nil {
		log.Printf("record pipeline fault for %s: %v", c.ID, err)
	}
}

// Get ambil 1 check-in by id
func (s *Service) Get(ctx context.Context, tenant string, id domain.CheckInID) (*domain.CheckIn, error) {
	return s.Repo.Get(ctx, tenant, id)
}

// Latest ambil N check-in terakhir
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*domain.CheckIn, error) {
	return s.Repo.Latest(ctx, tenant, limit)
}

// Paginate halaman check-in
func (s *Service) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.CheckIn, error) {
	return s.Repo.Paginate(ctx, tenant, page, pageSize)
}

// FaultsFor lists the audit entries recorded for one check-in
func (s *Service) FaultsFor(ctx context.Context, tenant string, id domain.CheckInID, limit int) ([]*faults.PipelineFault, error) {
	if s.Faults == nil {
		return nil, nil
	}
	return s.Faults.ListByCheckIn(ctx, tenant, string(id), limit)
}

// ListSince feeds the insights engine
func (s *Service) ListSince(ctx context.Context, tenant, patient string, since time.Time) ([]*domain.CheckIn, error) {
	return s.Repo.ListSince(ctx, tenant, patient, since)
}

// helper: map an error code to the pipeline stage that produced it
func stageOf(code pipeline.Code) string {
	switch code {
	case pipeline.CodeSaveFailed:
		return "save"
	case pipeline.CodeUploadFailed:
		return "upload"
	case pipeline.CodeProcessingFailed, pipeline.CodeProcessingTimeout:
		return "poll"
	case pipeline.CodeAnalysisFailed:
		return "analyze"
	case pipeline.CodeInvalidResponse, pipeline.CodeParseFailed, pipeline.CodeValidationFailed:
		return "validate"
	case pipeline.CodeDeleteFailed, pipeline.CodeSecurityError:
		return "cleanup"
	default:
		return "other"
	}
}
