// Package printsrv implements an HTTP print server that forwards ESC/POS
// frames and images to a printer.
package printsrv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rusq/posprint"
	"github.com/rusq/posprint/bitmap"
	"github.com/rusq/posprint/escpos"
	"github.com/rusq/posprint/transport"
)

// MaxDocumentSize is the default limit of the request body.
var MaxDocumentSize int64 = 16 << 20

// DefaultJobHistory is the number of jobs kept for the status endpoints.
const DefaultJobHistory = 100

const (
	hdrContentType = "Content-Type"
	hdrJobID       = "X-Job-Id"
	textMIMEType   = "text/plain; charset=utf-8"
	jsonMIMEType   = "application/json"
)

type Server struct {
	sender  transport.Sender
	cfg     posprint.Config
	jobs    *jobStore
	maxSize int64
	srv     *http.Server

	sendMu sync.Mutex // one frame at a time

	mdnsName string
	mdns     *mdnsSvc
}

// Option is the server option.
type Option func(*Server)

// WithConfig sets the pipeline configuration used by the image endpoint.
func WithConfig(cfg posprint.Config) Option {
	return func(s *Server) {
		s.cfg = cfg
	}
}

// WithMDNS enables mDNS advertising under the instance name.
func WithMDNS(instance string) Option {
	return func(s *Server) {
		s.mdnsName = instance
	}
}

// WithJobHistory sets the number of jobs kept in memory.
func WithJobHistory(n int) Option {
	return func(s *Server) {
		s.jobs = newJobStore(n)
	}
}

// WithMaxDocumentSize sets the request body limit.
func WithMaxDocumentSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// New returns a new print server that sends jobs to sender.
func New(sender transport.Sender, opt ...Option) (*Server, error) {
	if sender == nil {
		return nil, errors.New("sender must be provided")
	}
	s := &Server{
		sender:  sender,
		cfg:     posprint.DefaultConfig(),
		jobs:    newJobStore(DefaultJobHistory),
		maxSize: MaxDocumentSize,
	}
	for _, o := range opt {
		o(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}

	m := http.NewServeMux()
	m.HandleFunc("POST /print", s.handlePrint)
	m.HandleFunc("POST /image", s.handleImage)
	m.HandleFunc("GET /jobs", s.handleJobs)
	m.HandleFunc("GET /jobs/{id}", s.handleJob)
	m.HandleFunc("GET /{$}", s.handleIndex)
	s.srv = &http.Server{
		Handler:           m,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func httpError(w http.ResponseWriter, code int) {
	http.Error(w, fmt.Sprintf("%d %s", code, http.StatusText(code)), code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set(hdrContentType, jsonMIMEType)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// readBody reads the request body up to the size limit.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Body == nil {
		http.Error(w, "empty body", http.StatusBadRequest)
		return nil, false
	}
	defer r.Body.Close()
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxSize))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			httpError(w, http.StatusRequestEntityTooLarge)
			return nil, false
		}
		slog.WarnContext(r.Context(), "failed to read the payload", "error", err)
		httpError(w, http.StatusBadRequest)
		return nil, false
	}
	if len(data) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return nil, false
	}
	return data, true
}

// handlePrint forwards a raw ESC/POS frame to the printer.
func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}
	slog.InfoContext(r.Context(), "print request", "bytes", len(data), "remote", r.RemoteAddr)
	job := newJob(jobName(r, "raw"))
	s.jobs.add(job)
	s.run(w, r, job, data)
}

// handleImage renders an image with the pipeline and prints it.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	cfg, err := imageConfig(s.cfg, r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, ok := s.readBody(w, r)
	if !ok {
		return
	}
	job := newJob(jobName(r, "image"), JSRJobTransforming)
	s.jobs.add(job)

	img, format, err := posprint.Decode(bytes.NewReader(data))
	if err != nil {
		job.Abort(r.Context(), JSRDocumentFormatError, err)
		w.Header().Set(hdrJobID, job.ID.String())
		http.Error(w, "unsupported image: "+err.Error(), http.StatusBadRequest)
		return
	}
	frame, err := posprint.Build(img, cfg)
	if err != nil {
		job.Abort(r.Context(), JSRDocumentFormatError, err)
		w.Header().Set(hdrJobID, job.ID.String())
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	slog.InfoContext(r.Context(), "image rendered", "format", format, "size", img.Bounds().Size(), "dither", cfg.Dither, "bytes", len(frame))
	s.run(w, r, job, frame)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request, job *Job, frame []byte) {
	w.Header().Set(hdrJobID, job.ID.String())

	s.sendMu.Lock()
	err := job.Run(r.Context(), s.sender, frame)
	s.sendMu.Unlock()
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to print", "job_id", job.ID, "error", err)
		http.Error(w, "printer error: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.Header().Set(hdrContentType, textMIMEType)
	fmt.Fprintf(w, "OK %d bytes\n", len(frame))
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobs.list()
	infos := make([]JobInfo, 0, len(jobs))
	for _, j := range jobs {
		infos = append(infos, j.Info())
	}
	writeJSON(w, infos)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		slog.DebugContext(r.Context(), "invalid job ID", "error", err, "job", r.PathValue("id"))
		httpError(w, http.StatusBadRequest)
		return
	}
	job, ok := s.jobs.get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, job.Info())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(hdrContentType, textMIMEType)
	fmt.Fprintf(w, "posprint server\n\nPOST %s      raw ESC/POS frame\nPOST /image      image (dither, equalize, prefix, timestamp, width, encoding, gamma)\nGET  /jobs       job status\n", transport.PrintPath)
}

// jobName returns the job name from the query or the fallback.
func jobName(r *http.Request, fallback string) string {
	if name := r.URL.Query().Get("name"); name != "" {
		return name
	}
	return fallback
}

// imageConfig applies the query parameters to the pipeline configuration.
func imageConfig(cfg posprint.Config, q url.Values) (posprint.Config, error) {
	var err error
	if v := q.Get("dither"); v != "" {
		if cfg.Dither, err = bitmap.ParseDitherMode(v); err != nil {
			return cfg, err
		}
	}
	if v := q.Get("equalize"); v != "" {
		if cfg.AutoEqualize, err = strconv.ParseBool(v); err != nil {
			return cfg, fmt.Errorf("invalid equalize: %w", err)
		}
	}
	if q.Has("prefix") {
		cfg.PrefixText = q.Get("prefix")
	}
	if v := q.Get("timestamp"); v != "" {
		if cfg.IncludeTimestamp, err = strconv.ParseBool(v); err != nil {
			return cfg, fmt.Errorf("invalid timestamp: %w", err)
		}
	}
	if v := q.Get("width"); v != "" {
		if cfg.MaxRasterWidth, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("invalid width: %w", err)
		}
	}
	if v := q.Get("encoding"); v != "" {
		if cfg.Encoding, err = escpos.ParseEncoding(v); err != nil {
			return cfg, err
		}
	}
	if v := q.Get("gamma"); v != "" {
		if cfg.Gamma, err = strconv.ParseFloat(v, 64); err != nil {
			return cfg, fmt.Errorf("invalid gamma: %w", err)
		}
	}
	return cfg, cfg.Validate()
}

// Info writes the job summary, used by the status reporter.
func (s *Server) Info(w io.Writer) {
	jobs := s.jobs.list()
	fmt.Fprintf(w, "jobs: %d\n", len(jobs))
	for _, j := range jobs {
		fmt.Fprintf(w, "  %s\n", j)
	}
}

func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if s.mdnsName != "" {
		port := ln.Addr().(*net.TCPAddr).Port
		svc, err := newMDNS(s.mdnsName, port)
		if err != nil {
			slog.Warn("mDNS advertising disabled", "error", err)
		} else {
			s.mdns = svc
			slog.Info("advertising over mDNS", "instance", s.mdnsName, "port", port)
		}
	}
	return s.srv.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil // nothing to shutdown
	}
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if s.mdns != nil {
		s.mdns.Shutdown()
	}
	return s.srv.Shutdown(sctx)
}
