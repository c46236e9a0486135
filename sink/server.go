package sink

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/porticus-lab/go-screencapture/chunk"
	"github.com/porticus-lab/go-screencapture/dispatch"
)

// AcceptedTypes are the content types an upload may declare.
var AcceptedTypes = []string{"image/png", "image/jpeg", "application/pdf"}

// Options configures a [Server].
type Options struct {
	// Token, when set, is required as a bearer token on /captures routes.
	Token string
	// MaxBodyBytes limits the request body both as sent and after gzip
	// decoding. Defaults to 64 MiB.
	MaxBodyBytes int64
	Logger       *log.Logger
	// Now stamps records. Defaults to time.Now.
	Now func() time.Time
}

// Server is the upload receiver's HTTP API.
type Server struct {
	router chi.Router
	store  Store
	opts   Options
}

// NewServer returns a server backed by store.
func NewServer(store Store, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 64 << 20
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{store: store, opts: opts}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.opts.Logger))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.opts.Token != "" {
			r.Use(authMiddleware(s.opts.Token))
		}
		r.Post("/captures", s.handleUpload)
		r.Get("/captures", s.handleList)
		r.Get("/captures/{id}", s.handleGet)
		r.Get("/captures/{id}/meta", s.handleMeta)
		r.Delete("/captures/{id}", s.handleDelete)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var body io.Reader = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid gzip body")
			return
		}
		defer zr.Close()
		body = http.MaxBytesReader(w, zr, s.opts.MaxBodyBytes)
	}

	var p dispatch.Payload
	if err := json.NewDecoder(body).Decode(&p); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("payload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return
	}
	if len(p.Chunks) == 0 {
		writeError(w, http.StatusBadRequest, "f01 must contain at least one chunk")
		return
	}
	ct, _, err := mime.ParseMediaType(p.ContentType)
	if err != nil || !accepted(ct) {
		writeError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported content type %q", p.ContentType))
		return
	}

	data, err := base64.StdEncoding.DecodeString(chunk.Join(p.Chunks))
	if err != nil {
		writeError(w, http.StatusBadRequest, "chunks are not valid base64")
		return
	}

	rec := &Record{
		Meta: Meta{
			ID:          uuid.NewString(),
			FileName:    p.FileName,
			ContentType: ct,
			Size:        len(data),
			Digest:      Digest(data),
			Chunks:      len(p.Chunks),
			CreatedAt:   s.opts.Now().UTC(),
		},
		Data: data,
	}
	if err := s.store.Put(r.Context(), rec); err != nil {
		s.opts.Logger.Error("storing capture", "err", err)
		writeError(w, http.StatusInternalServerError, "could not store capture")
		return
	}

	s.opts.Logger.Info("capture stored", "id", rec.ID, "name", rec.FileName, "type", ct, "size", rec.Size, "chunks", rec.Chunks)
	writeJSON(w, http.StatusCreated, dispatch.Receipt{ID: rec.ID, Digest: rec.Digest, Size: rec.Size})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	metas, err := s.store.List(r.Context())
	if err != nil {
		s.opts.Logger.Error("listing captures", "err", err)
		writeError(w, http.StatusInternalServerError, "could not list captures")
		return
	}
	if metas == nil {
		metas = []Meta{}
	}
	writeJSON(w, http.StatusOK, metas)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(rec.Data)))
	w.Header().Set("ETag", `"`+rec.Digest+`"`)
	if rec.FileName != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": rec.FileName}))
	}
	w.Write(rec.Data)
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec.Meta)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := s.store.Delete(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "capture not found")
		return
	}
	if err != nil {
		s.opts.Logger.Error("deleting capture", "err", err)
		writeError(w, http.StatusInternalServerError, "could not delete capture")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Record, bool) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "capture not found")
		return nil, false
	}
	if err != nil {
		s.opts.Logger.Error("reading capture", "err", err)
		writeError(w, http.StatusInternalServerError, "could not read capture")
		return nil, false
	}
	return rec, true
}

func accepted(ct string) bool {
	for _, a := range AcceptedTypes {
		if ct == a {
			return true
		}
	}
	return false
}

func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing authorization")
				return
			}
			if subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(auth, "Bearer ")), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
