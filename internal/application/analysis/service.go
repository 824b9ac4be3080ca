package analysis

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinwell/checkin-api/internal/application"
	domain "github.com/clinwell/checkin-api/internal/domain/analysis"
	"github.com/clinwell/checkin-api/internal/domain/pipeline"
)

const (
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxPollAttempts = 30
)

// Service drives one uploaded video through the remote provider:
// upload, wait until usable, request the clinical analysis, delete the
// remote copy. One invocation owns its remote asset exclusively.
//
// Service is stateless and safe for concurrent use.
type Service struct {
	Provider pipeline.Provider
	Sleeper  application.Sleeper

	PollInterval    time.Duration
	MaxPollAttempts int

	// Instruction is the fixed clinical-examination prompt sent with every
	// generation request.
	Instruction string
}

// UploadFile reads the local file and pushes it to the provider, then waits
// for the remote copy to become ACTIVE. The returned RemoteFile is non-nil
// whenever the provider accepted the upload, even if the wait afterwards
// failed; the caller still has to delete the asset in that case.
func (s *Service) UploadFile(ctx context.Context, path string) (*pipeline.RemoteFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.CodeUploadFailed, err, "open local file %s", path)
	}
	defer f.Close()

	displayName := "checkin-" + uuid.New().String()
	remote, err := s.Provider.Upload(ctx, f, MimeForPath(path), displayName)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.CodeUploadFailed, err, "upload %s", filepath.Base(path))
	}

	if err := s.WaitForActive(ctx, remote.Name); err != nil {
		return remote, err
	}
	remote.State = pipeline.StateActive
	return remote, nil
}

// WaitForActive polls the provider's status at a fixed interval until the
// file reaches ACTIVE, the provider reports FAILED, or the attempt bound is
// exhausted. The bound is what keeps the pipeline from waiting forever on an
// unresponsive provider.
func (s *Service) WaitForActive(ctx context.Context, name string) error {
	attempts := s.MaxPollAttempts
	if attempts <= 0 {
		attempts = DefaultMaxPollAttempts
	}
	interval := s.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := s.Sleeper.Sleep(ctx, interval); err != nil {
				// caller gave up mid-wait; cleanup still runs upstream
				return pipeline.Wrap(pipeline.CodeProcessingTimeout, err, "wait for %s aborted", name)
			}
		}

		state, err := s.Provider.GetState(ctx, name)
		if err != nil {
			// status polling belongs to the upload handshake, so a transport
			// fault here is UPLOAD_FAILED; FILE_PROCESSING_FAILED is reserved
			// for the provider reporting the file itself as FAILED
			return pipeline.Wrap(pipeline.CodeUploadFailed, err, "poll state of %s", name)
		}
		switch state {
		case pipeline.StateActive:
			return nil
		case pipeline.StateFailed:
			return pipeline.E(pipeline.CodeProcessingFailed, "provider failed to process %s", name)
		}
		// UPLOADING / PROCESSING: keep waiting
	}

	return pipeline.E(pipeline.CodeProcessingTimeout, "%s not active after %d attempts", name, attempts)
}

// AnalyzeVideo issues one generation request against the uploaded asset and
// validates the raw text that comes back. A validator rejection is surfaced
// as INVALID_RESPONSE carrying the PARSE_FAILED/VALIDATION_FAILED detail.
func (s *Service) AnalyzeVideo(ctx context.Context, fileURI, mimeType string) (*domain.ClinicalAnalysis, error) {
	text, err := s.Provider.GenerateText(ctx, fileURI, mimeType, s.Instruction)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.CodeAnalysisFailed, err, "generation request for %s", fileURI)
	}

	rec, err := domain.Parse(text)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.CodeInvalidResponse, err, "provider response rejected")
	}
	return rec, nil
}

// DeleteFile removes the remote copy, best-effort. Failures are logged and
// swallowed; they never replace the pipeline's primary result.
func (s *Service) DeleteFile(ctx context.Context, name string) {
	if err := s.Provider.Delete(ctx, name); err != nil {
		log.Printf("remote cleanup failed for %s: %v", name, err)
	}
}

// ProcessVideo is the pipeline entry: upload, analyze, and always delete the
// remote asset once one exists, whatever the outcome.
func (s *Service) ProcessVideo(ctx context.Context, path string) (*domain.ClinicalAnalysis, error) {
	remote, err := s.UploadFile(ctx, path)
	if remote != nil {
		// cleanup must survive caller cancellation
		defer s.DeleteFile(context.WithoutCancel(ctx), remote.Name)
	}
	if err != nil {
		return nil, err
	}
	return s.AnalyzeVideo(ctx, remote.URI, MimeForPath(path))
}

// MimeForPath infers the upload mime type from the file extension.
// Unknown extensions fall back to video/mp4, matching the temp store's
// default extension.
func MimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "video/mp4"
	}
}
