// Package web is the local presentation shell: it serves the browser UI,
// exposes the core pipeline as a small JSON API, and proxies cross-origin
// requests the browser cannot make itself. All real work happens in the core
// package; this is glue.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alanbriolat/peertube-dl"
	"github.com/alanbriolat/peertube-dl/generic"
	"github.com/alanbriolat/peertube-dl/internal/history"
	"github.com/alanbriolat/peertube-dl/internal/httputil"
)

//go:embed static
var staticFS embed.FS

type Config struct {
	ListenAddr string
	TargetDir  string
	// History is optional; completed jobs are recorded when it is set.
	History *history.Store
}

type Server struct {
	config  Config
	log     *zap.Logger
	jobs    *jobList
	mux     *http.ServeMux
	baseCtx context.Context
}

func NewServer(config Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.L()
	}
	s := &Server{
		config:  config,
		log:     logger.Named("web"),
		jobs:    newJobList(),
		mux:     http.NewServeMux(),
		baseCtx: context.Background(),
	}
	s.mux.HandleFunc("/api/resolve", s.handleResolve)
	s.mux.HandleFunc("/api/meta", s.handleMeta)
	s.mux.HandleFunc("/api/downloads", s.handleDownloads)
	s.mux.HandleFunc("/api/downloads/", s.handleDownload)
	s.mux.HandleFunc("/proxy", s.handleProxy)
	s.mux.Handle("/", http.FileServer(http.FS(generic.Unwrap(fs.Sub(staticFS, "static")))))
	return s
}

// Handler returns the server's root handler, CORS headers included.
func (s *Server) Handler() http.Handler {
	return withCORS(s.mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.baseCtx = ctx
	server := &http.Server{
		Addr:        s.config.ListenAddr,
		Handler:     s.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	s.log.Info("listening", zap.String("addr", s.config.ListenAddr))
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("url")
	if input == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}
	ref, err := peertube_dl.ResolveInput(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"host": ref.Host, "id": ref.ID})
}

type metaResponse struct {
	Host         string              `json:"host"`
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description,omitempty"`
	ThumbnailURL string              `json:"thumbnailUrl,omitempty"`
	Candidates   []candidateResponse `json:"candidates"`
}

type candidateResponse struct {
	Kind      string  `json:"kind"`
	FileURL   string  `json:"fileUrl"`
	MimeType  string  `json:"mimeType,omitempty"`
	SizeBytes int64   `json:"sizeBytes,omitempty"`
	Height    int     `json:"height,omitempty"`
	FPS       float64 `json:"fps,omitempty"`
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	input := r.URL.Query().Get("url")
	if input == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}
	ref, err := peertube_dl.ResolveInput(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	meta, err := peertube_dl.FetchVideoMeta(r.Context(), ref)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	resp := metaResponse{
		Host:        ref.Host,
		ID:          ref.ID,
		Title:       meta.Title(),
		Description: meta.Description(),
	}
	if thumb := meta.ThumbnailPath(); thumb != "" {
		resp.ThumbnailURL = strings.TrimRight(ref.Host, "/") + thumb
	}
	for _, c := range peertube_dl.FlattenCandidates(meta) {
		resp.Candidates = append(resp.Candidates, candidateResponse{
			Kind:      string(c.Kind),
			FileURL:   c.FileURL,
			MimeType:  c.MimeType,
			SizeBytes: c.SizeBytes,
			Height:    c.Height,
			FPS:       c.FPS,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type createDownloadRequest struct {
	URL       string `json:"url"`
	MaxHeight int    `json:"maxHeight"`
	AudioOnly bool   `json:"audioOnly"`
}

type jobResponse struct {
	ID    string   `json:"id"`
	Input string   `json:"input"`
	JobState
}

func (s *Server) handleDownloads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jobs := s.jobs.list()
		sort.Slice(jobs, func(i, j int) bool { return jobs[i].createdAt.Before(jobs[j].createdAt) })
		resp := make([]jobResponse, 0, len(jobs))
		for _, j := range jobs {
			resp = append(resp, jobResponse{ID: j.ID.String(), Input: j.Input, JobState: j.State()})
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		s.createDownload(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createDownload(w http.ResponseWriter, r *http.Request) {
	var req createDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ref, err := peertube_dl.ResolveInput(r.Context(), req.URL)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	meta, err := peertube_dl.FetchVideoMeta(r.Context(), ref)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	chosen := peertube_dl.SelectFile(meta, peertube_dl.SelectionConstraints{
		MaxHeight: req.MaxHeight,
		AudioOnly: req.AudioOnly,
	})
	if chosen == nil {
		writeError(w, http.StatusNotFound, "no suitable file for the requested constraints")
		return
	}
	filename := peertube_dl.DeriveOutputName(meta, chosen)
	job := newJob(req.URL, filename, s.log)
	s.jobs.add(job)
	s.runJob(job, ref, meta, chosen, filename)
	writeJSON(w, http.StatusAccepted, jobResponse{ID: job.ID.String(), Input: job.Input, JobState: job.State()})
}

// runJob performs the transfer in the background; job state is the only way
// its outcome is observed.
func (s *Server) runJob(job *Job, ref peertube_dl.Reference, meta peertube_dl.VideoMetadata, chosen *peertube_dl.Candidate, filename string) {
	go func() {
		job.updateState(func(st *JobState) { st.Status = JobRunning })
		d, err := peertube_dl.NewDownloadBuilder().
			WithContext(s.baseCtx).
			WithTargetDir(s.config.TargetDir).
			WithProgressCallback(func(downloaded, expected int64) {
				job.updateState(func(st *JobState) {
					st.DownloadedBytes = downloaded
					st.ExpectedBytes = expected
				})
			}).
			Build()
		if err == nil {
			defer d.Close()
			err = d.SaveURL(filename, chosen.FileURL)
		}
		if err != nil {
			job.updateState(func(st *JobState) {
				st.Status = JobFailed
				st.Error = err.Error()
			})
			return
		}
		job.updateState(func(st *JobState) { st.Status = JobComplete })
		s.recordHistory(job, ref, meta, chosen, filename)
	}()
}

func (s *Server) recordHistory(job *Job, ref peertube_dl.Reference, meta peertube_dl.VideoMetadata, chosen *peertube_dl.Candidate, filename string) {
	if s.config.History == nil {
		return
	}
	downloaded := job.State().DownloadedBytes
	err := s.config.History.Add(s.baseCtx, history.Record{
		Host:      ref.Host,
		VideoID:   ref.ID,
		Title:     meta.Title(),
		FileURL:   chosen.FileURL,
		Filename:  filename,
		Kind:      string(chosen.Kind),
		Height:    chosen.Height,
		SizeBytes: downloaded,
	})
	if err != nil {
		s.log.Warn("failed to record download history", zap.Error(err))
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/downloads/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	job, ok := s.jobs.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "no such job")
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{ID: job.ID.String(), Input: job.Input, JobState: job.State()})
}

// handleProxy fetches a remote resource on the browser's behalf, so thumbnails
// and metadata from arbitrary PeerTube hosts can be shown without their CORS
// cooperation.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		writeError(w, http.StatusBadRequest, "invalid proxy target")
		return
	}
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid proxy target")
		return
	}
	resp, err := httputil.DefaultClient().Do(req)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer resp.Body.Close()
	for _, header := range []string{"Content-Type", "Content-Length"} {
		if v := resp.Header.Get(header); v != "" {
			w.Header().Set(header, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
