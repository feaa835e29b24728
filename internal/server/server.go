// Package server exposes the cleaning service over HTTP for the browser UI.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/datacleaner/internal/clean"
	"github.com/sells-group/datacleaner/internal/domain"
	"github.com/sells-group/datacleaner/internal/model"
	"github.com/sells-group/datacleaner/internal/recommend"
	"github.com/sells-group/datacleaner/internal/service"
	"github.com/sells-group/datacleaner/internal/store"
	"github.com/sells-group/datacleaner/internal/tabular"
)

const previewRows = 100

// Config configures a Server.
type Config struct {
	// SnapshotDir holds uploads and cleaned snapshots.
	SnapshotDir    string
	MaxUploadBytes int64
	AllowedOrigins []string
}

// Server serves the upload, clean, download and run-history endpoints.
type Server struct {
	cfg Config
	svc *service.Service
	now func() time.Time
}

// New creates a Server.
func New(cfg Config, svc *service.Service) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 16 << 20
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	return &Server{cfg: cfg, svc: svc, now: time.Now}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/upload", s.handleUpload)
	r.Post("/clean", s.handleClean)
	r.Get("/download/{filename}", s.handleDownload)
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Get("/{id}", s.handleGetRun)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type uploadResponse struct {
	Filename      string                   `json:"filename"`
	Rows          int                      `json:"rows"`
	Columns       int                      `json:"columns"`
	ColumnNames   []string                 `json:"column_names"`
	MissingValues map[string]int           `json:"missing_values"`
	Preview       []map[string]model.Value `json:"preview"`
	Domain        domain.Result            `json:"domain"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file part")
		return
	}
	defer file.Close() //nolint:errcheck

	name := filepath.Base(header.Filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		writeError(w, http.StatusBadRequest, "no selected file")
		return
	}
	if _, err := tabular.DetectFormat(name); err != nil {
		writeError(w, http.StatusBadRequest, "file type not allowed")
		return
	}

	stored := s.now().Format("20060102_150405") + "_" + name
	path := filepath.Join(s.cfg.SnapshotDir, stored)
	if err := saveUpload(path, file); err != nil {
		zap.L().Error("server: save upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not store upload")
		return
	}

	ds, cls, err := s.svc.Load(r.Context(), path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Filename:      stored,
		Rows:          ds.NumRows(),
		Columns:       ds.NumColumns(),
		ColumnNames:   ds.Columns,
		MissingValues: ds.MissingCounts(),
		Preview:       ds.Records(previewRows),
		Domain:        cls,
	})
}

func saveUpload(path string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "create upload dir")
	}
	dst, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create upload file")
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close() //nolint:errcheck
		return eris.Wrap(err, "write upload file")
	}
	return eris.Wrap(dst.Close(), "close upload file")
}

type cleanRequest struct {
	Filename        string          `json:"filename"`
	CleaningOptions json.RawMessage `json:"cleaning_options"`
	UseAI           bool            `json:"use_ai"`
}

type cleanResponse struct {
	RunID           string                   `json:"run_id,omitempty"`
	CleanedFilename string                   `json:"cleaned_filename"`
	Report          *model.CleaningReport    `json:"report"`
	Preview         []map[string]model.Value `json:"preview"`
	Recommendation  *recommend.Payload       `json:"recommendation,omitempty"`
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	var req cleanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name, ok := s.snapshotName(req.Filename)
	if !ok {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}
	input := filepath.Join(s.cfg.SnapshotDir, name)
	if _, err := os.Stat(input); err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	opts, err := model.ParseOptions(req.CleaningOptions)
	if err != nil {
		writeCleaningError(w, err)
		return
	}

	res, err := s.svc.Clean(r.Context(), service.Request{
		InputPath:  input,
		Options:    opts,
		UseAI:      req.UseAI,
		OutputPath: filepath.Join(s.cfg.SnapshotDir, tabular.CleanedName(name)),
	})
	if err != nil {
		writeCleaningError(w, err)
		return
	}

	resp := cleanResponse{
		RunID:           res.RunID,
		CleanedFilename: filepath.Base(res.OutputPath),
		Report:          res.Report,
		Preview:         res.Dataset.Records(previewRows),
		Recommendation:  res.Recommendation,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name, ok := s.snapshotName(chi.URLParam(r, "filename"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	path := filepath.Join(s.cfg.SnapshotDir, name)
	if st, err := os.Stat(path); err != nil || st.IsDir() {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}

// snapshotName rejects names that would escape the snapshot directory.
func (s *Server) snapshotName(name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", false
	}
	return name, true
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}
	q := r.URL.Query()
	filter := store.RunFilter{
		Status:   model.RunStatus(q.Get("status")),
		FileName: q.Get("file"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	runs, err := s.svc.Store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store == nil {
		writeError(w, http.StatusNotFound, "run history is disabled")
		return
	}
	run, err := s.svc.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("server: get run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

type errorResponse struct {
	Error       string             `json:"error"`
	Kind        model.ErrorKind    `json:"kind,omitempty"`
	Column      string             `json:"column,omitempty"`
	Strategy    string             `json:"strategy,omitempty"`
	FailedState model.RunState     `json:"failed_state,omitempty"`
	AuditLog    []model.AuditEntry `json:"audit_log,omitempty"`
}

// writeCleaningError maps the error taxonomy onto status codes:
// configuration errors are the caller's to fix (400), invariant violations
// are ours (500), and any other failed run is 422.
func writeCleaningError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	var ce *model.CleaningError
	if errors.As(err, &ce) {
		resp.Kind, resp.Column, resp.Strategy = ce.Kind, ce.Column, ce.Strategy
	}
	var f *clean.RunFailure
	if errors.As(err, &f) {
		resp.FailedState = f.State
		resp.AuditLog = f.AuditLog
	}

	status := http.StatusInternalServerError
	switch {
	case model.IsKind(err, model.ErrConfiguration):
		status = http.StatusBadRequest
	case model.IsKind(err, model.ErrInternalInvariant):
		zap.L().Error("server: invariant violated during clean", zap.Error(err))
		resp.Error = "internal error"
	case f != nil:
		status = http.StatusUnprocessableEntity
	case errors.Is(err, tabular.ErrUnsupportedFormat):
		status = http.StatusBadRequest
	default:
		zap.L().Error("server: clean", zap.Error(err))
		resp.Error = "cleaning failed"
	}
	writeJSON(w, status, resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: write response", zap.Error(err))
	}
}
