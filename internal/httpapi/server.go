package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/conectasei/core/internal/apperrors"
	"github.com/conectasei/core/internal/logger"
	"github.com/conectasei/core/internal/repository"
)

// Config configures the thin task-status API.
type Config struct {
	JWTSecret   string
	CORSOrigin  string
	RequireAuth bool
}

// Server serves GET /internal/tasks/{id}, resolving against either
// the extraction_tasks or download_tasks table, in that order — task
// ids are random UUIDs, so collision across the two tables is not a
// practical concern.
type Server struct {
	extractionTasks *repository.ExtractionTaskRepo
	downloadTasks   *repository.DownloadTaskRepo
	log             *logger.Logger
	cfg             Config
}

// New builds the HTTP handler for the task-status API.
func New(extractionTasks *repository.ExtractionTaskRepo, downloadTasks *repository.DownloadTaskRepo, log *logger.Logger, cfg Config) http.Handler {
	s := &Server{extractionTasks: extractionTasks, downloadTasks: downloadTasks, log: log, cfg: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("/internal/tasks/", s.handleGetTask)

	var h http.Handler = mux
	if cfg.RequireAuth {
		h = authWrap(cfg.JWTSecret, h)
	}
	return chain(h, requestID, requestLogger(log), cors(cfg.CORSOrigin), recoverPanic(log))
}

func authWrap(secret string, next http.Handler) http.Handler {
	return auth(secret, next)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/internal/tasks/")
	if id == "" {
		apperrors.WriteJSON(w, apperrors.NewNotFoundError("task"))
		return
	}

	if task, err := s.extractionTasks.Get(r.Context(), id); err == nil {
		writeJSON(w, task)
		return
	}

	task, err := s.downloadTasks.Get(r.Context(), id)
	if err != nil {
		apperrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, task)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
