package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appcheckins "github.com/clinwell/checkin-api/internal/application/checkins"
	appinsights "github.com/clinwell/checkin-api/internal/application/insights"
	domai "github.com/clinwell/checkin-api/internal/domain/ai"
	domain "github.com/clinwell/checkin-api/internal/domain/checkins"
	"github.com/clinwell/checkin-api/internal/domain/pipeline"
	"github.com/clinwell/checkin-api/internal/middleware"
)

const defaultMaxUploadBytes = 100 << 20 // 100 MiB

type Router struct {
	checkinsSvc    *appcheckins.Service
	insightsSvc    *appinsights.Service
	maxUploadBytes int64
}

// Options for surfaces the router wires beyond the services themselves.
type Options struct {
	MaxUploadBytes int64
	HealthCheckers map[string]middleware.HealthChecker
}

func NewRouter(checkinsSvc *appcheckins.Service, insightsSvc *appinsights.Service, opts Options) http.Handler {
	r := &Router{
		checkinsSvc:    checkinsSvc,
		insightsSvc:    insightsSvc,
		maxUploadBytes: opts.MaxUploadBytes,
	}
	if r.maxUploadBytes <= 0 {
		r.maxUploadBytes = defaultMaxUploadBytes
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Post("/checkins", r.wrap(r.handleSubmit))
		rt.Get("/checkins", r.wrap(r.handleList))
		rt.Get("/checkins/latest", r.wrap(r.handleLatest))
		rt.Get("/checkins/{id}", r.wrap(r.handleGet))
		rt.Get("/checkins/{id}/faults", r.wrap(r.handleFaults))
		rt.Get("/insights", r.wrap(r.handleInsights))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError carries an explicit status for request-level rejections
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var he *httpError
		if errors.As(err, &he) {
			writeError(w, he.status, "", he.msg)
			return
		}
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "", "not found")
			return
		}
		if errors.Is(err, domai.ErrQuotaExceeded) {
			writeError(w, http.StatusTooManyRequests, "", "ai quota exceeded")
			return
		}
		if errors.Is(err, appcheckins.ErrNotAVideo) || errors.Is(err, appcheckins.ErrVideoTooLong) {
			writeError(w, http.StatusBadRequest, "", err.Error())
			return
		}
		if code := pipeline.CodeOf(err); code != "" {
			writeError(w, statusForCode(code), string(code), err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "", err.Error())
	}
}

// statusForCode maps pipeline error codes onto HTTP statuses. Provider
// misbehavior is a gateway problem, not a client one.
func statusForCode(code pipeline.Code) int {
	switch code {
	case pipeline.CodeSecurityError:
		return http.StatusBadRequest
	case pipeline.CodeProcessingTimeout:
		return http.StatusGatewayTimeout
	case pipeline.CodeInvalidResponse, pipeline.CodeParseFailed, pipeline.CodeValidationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error_code": code,
		"message":    msg,
	})
}

// tenant resolves and authorizes the URL tenant
func tenant(req *http.Request) (string, error) {
	t := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(t); err != nil {
		return "", badRequest("%v", err)
	}
	if !middleware.TenantMatches(req.Context(), t) {
		return "", &httpError{status: http.StatusForbidden, msg: "tenant mismatch"}
	}
	return t, nil
}

// POST /v1/{tenant}/checkins
// multipart/form-data: video (file, required), patient_id, notes
func (r *Router) handleSubmit(w http.ResponseWriter, req *http.Request) error {
	t, err := tenant(req)
	if err != nil {
		return err
	}

	req.Body = http.MaxBytesReader(w, req.Body, r.maxUploadBytes)
	if err := req.ParseMultipartForm(r.maxUploadBytes); err != nil {
		return badRequest("invalid multipart upload: %v", err)
	}

	file, header, err := req.FormFile("video")
	if err != nil {
		return badRequest("video file is required")
	}
	defer file.Close()

	patient := middleware.SanitizeString(req.FormValue("patient_id"))
	if err := middleware.ValidatePatientID(patient); err != nil {
		return badRequest("%v", err)
	}
	if err := middleware.ValidateFileName(header.Filename); err != nil {
		return badRequest("%v", err)
	}
	mimeType := header.Header.Get("Content-Type")
	if err := middleware.ValidateVideoType(mimeType); err != nil {
		return badRequest("%v", err)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return badRequest("read upload: %v", err)
	}

	middleware.IncrementAnalyses()
	middleware.IncrementAnalysesRunning()
	defer middleware.DecrementAnalysesRunning()

	c, err := r.checkinsSvc.Submit(req.Context(), appcheckins.SubmitCommand{
		TenantID:  t,
		PatientID: patient,
		FileName:  header.Filename,
		MimeType:  mimeType,
		Notes:     middleware.SanitizeString(req.FormValue("notes")),
		Data:      data,
	})
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	return json.NewEncoder(w).Encode(c)
}

// GET /v1/{tenant}/checkins?page=&page_size=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	t, err := tenant(req)
	if err != nil {
		return err
	}
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.checkinsSvc.Paginate(req.Context(), t, page, middleware.ValidatePageSize(size))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/checkins/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	t, err := tenant(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.checkinsSvc.Latest(req.Context(), t, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/checkins/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	t, err := tenant(req)
	if err != nil {
		return err
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateCheckInID(id); err != nil {
		return badRequest("%v", err)
	}

	c, err := r.checkinsSvc.Get(req.Context(), t, domain.CheckInID(id))
	if err != nil {
		return err
	}
	if c == nil {
		return sql.ErrNoRows
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(c)
}

// GET /v1/{tenant}/checkins/{id}/faults?limit=
func (r *Router) handleFaults(w http.ResponseWriter, req *http.Request) error {
	t, err := tenant(req)
	if err != nil {
		return err
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateCheckInID(id); err != nil {
		return badRequest("%v", err)
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.checkinsSvc.FaultsFor(req.Context(), t, domain.CheckInID(id), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/insights?patient_id=&days=7
func (r *Router) handleInsights(w http.ResponseWriter, req *http.Request) error {
	t, err := tenant(req)
	if err != nil {
		return err
	}
	patient := req.URL.Query().Get("patient_id")
	if err := middleware.ValidatePatientID(patient); err != nil {
		return badRequest("%v", err)
	}
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))

	sum, err := r.insightsSvc.Summarize(req.Context(), t, patient, middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(sum)
}
