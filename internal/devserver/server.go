package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-errors/errors"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Options configures a Server.
type Options struct {
	// Root is the directory served by the file API.
	Root string
	// Addr is the listen address for ListenAndServe.
	Addr string
	// Shell is the command started for each terminal. Defaults to $SHELL, then /bin/sh.
	Shell string
}

// Server is the development backend.
type Server struct {
	fs     *FS
	shell  string
	addr   string
	router *mux.Router
	terms  *terminals

	httpServer *http.Server
}

// New creates a server for opts.Root.
func New(opts Options) (*Server, error) {
	fs, err := NewFS(opts.Root)
	if err != nil {
		return nil, err
	}
	shell := opts.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	s := &Server{
		fs:    fs,
		shell: shell,
		addr:  opts.Addr,
		terms: newTerminals(),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogging)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/list", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/read", s.handleRead).Methods(http.MethodGet)
	api.HandleFunc("/update", s.handleUpdate).Methods(http.MethodPost)
	api.HandleFunc("/createFile", s.handleCreateFile).Methods(http.MethodPost)
	api.HandleFunc("/createFolder", s.handleCreateFolder).Methods(http.MethodPost)
	api.HandleFunc("/rename", s.handleRename).Methods(http.MethodPost)
	api.HandleFunc("/delete", s.handleDelete).Methods(http.MethodDelete)

	router.HandleFunc("/ws/terminal/{id}", s.handleTerminal)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	return router
}

// Handler returns the HTTP handler, for use with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is canceled, then shuts down and closes
// open terminals.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Str("root", s.fs.Root()).Msg("devserver listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.terms.closeAll()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.WrapPrefix(err, "shutdown", 0)
	}
	log.Info().Msg("devserver stopped")
	return nil
}

// Close terminates all open terminals.
func (s *Server) Close() {
	s.terms.closeAll()
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := s.fs.List(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	content, err := s.fs.Read(r.URL.Query().Get("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.fs.Update(req.Path, req.Content); err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("path", req.Path).Int("bytes", len(req.Content)).Msg("file updated")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.fs.CreateFile(req.Path); err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("path", req.Path).Msg("file created")
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.fs.CreateFolder(req.Path); err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("path", req.Path).Msg("folder created")
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OldPath string `json:"oldPath"`
		NewPath string `json:"newPath"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := s.fs.Rename(req.OldPath, req.NewPath); err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("from", req.OldPath).Str("to", req.NewPath).Msg("renamed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if err := s.fs.Delete(path); err != nil {
		writeError(w, err)
		return
	}
	log.Info().Str("path", path).Msg("deleted")
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrOutsideRoot):
		status = http.StatusForbidden
	case errors.Is(err, ErrExists):
		status = http.StatusConflict
	case errors.Is(err, os.ErrNotExist):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		log.Warn().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
