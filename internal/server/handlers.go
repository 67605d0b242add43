package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kplus/internal/config"
	"github.com/hyperjump/kplus/internal/export"
	"github.com/hyperjump/kplus/internal/indexer"
	"github.com/hyperjump/kplus/internal/models"
	"github.com/hyperjump/kplus/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// decodeText reads an act from the request: a JSON TextInput when the content
// type is JSON, otherwise the raw body as text.
func decodeText(r *http.Request, w http.ResponseWriter) (*indexer.TextInput, error) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var input indexer.TextInput
		if err := json.NewDecoder(body).Decode(&input); err != nil {
			return nil, err
		}
		return &input, nil
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	return &indexer.TextInput{Title: r.URL.Query().Get("title"), Text: string(data)}, nil
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	input, err := decodeText(r, w)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(input.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "text cannot be empty")
		return
	}
	doc := s.pipeline.ParseText(input.Text, "", input.Title)
	doc.ID = input.ID
	s.logger.Debug("parse request", zap.Int("articles", len(doc.AllArticles())))

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		s.respondJSON(w, http.StatusOK, export.NewDocumentView(doc))
	default:
		s.respondExport(w, doc, format)
	}
}

func (s *Server) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	input, err := decodeText(r, w)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(input.Text) == "" {
		s.respondError(w, http.StatusBadRequest, "text cannot be empty")
		return
	}
	s.logger.Debug("index document request", zap.String("id", input.ID), zap.String("title", input.Title))
	doc, err := s.indexer.IndexText(r.Context(), input)
	if err != nil {
		s.logger.Error("indexing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	st := doc.Statistics()
	s.respondJSON(w, http.StatusCreated, map[string]any{
		"id":       doc.ID,
		"status":   "indexed",
		"chapters": st.Chapters,
		"articles": st.Articles,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	limit = min(limit, maxListLimit)
	docs, err := s.storage.ListDocuments(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*storage.DocumentSummary{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"documents": docs, "offset": offset, "limit": limit})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, export.NewDocumentView(doc))
}

func (s *Server) handleExportDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(export.FormatMarkdown)
	}
	s.respondExport(w, doc, format)
}

// loadDocument fetches the {id} document, writing the error response itself on failure.
func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (*models.Document, bool) {
	id := chi.URLParam(r, "id")
	doc, err := s.storage.GetDocument(r.Context(), id)
	if err != nil {
		s.respondStorageError(w, "document not found", err)
		return nil, false
	}
	return doc, true
}

var contentTypes = map[export.Format]string{
	export.FormatMarkdown: "text/markdown; charset=utf-8",
	export.FormatJSON:     "application/json",
	export.FormatXLSX:     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// respondExport writes doc in the named export format. "stats" answers with the
// document statistics as JSON.
func (s *Server) respondExport(w http.ResponseWriter, doc *models.Document, name string) {
	if strings.EqualFold(strings.TrimSpace(name), "stats") {
		s.respondJSON(w, http.StatusOK, doc.Statistics())
		return
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, doc, format); err != nil {
		s.logger.Error("export failed", zap.String("format", string(format)), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	if format == export.FormatXLSX {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", export.SafeFileName(doc.Metadata.Number)+".xlsx"))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	number := chi.URLParam(r, "number")
	article, err := s.storage.GetArticle(r.Context(), id, number)
	if err != nil {
		s.respondStorageError(w, "article not found", err)
		return
	}
	s.respondJSON(w, http.StatusOK, article)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req statusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := models.ParseStatus(req.Status, s.policy)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.storage.UpdateStatus(r.Context(), id, status); err != nil {
		s.respondStorageError(w, "document not found", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(status)})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete document request", zap.String("id", id))
	if _, err := s.storage.GetSourceStamp(r.Context(), id); err != nil {
		s.respondStorageError(w, "document not found", err)
		return
	}
	if err := s.indexer.DeleteDocument(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(query.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	articleCount, err := s.storage.CountArticles(ctx)
	if err != nil {
		s.logger.Error("status: count articles failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]any{
		"documents": docCount,
		"articles":  articleCount,
	}

	paths := append(storage.DatabaseFiles(s.cfg.Storage.DatabasePath), s.cfg.Storage.BleveIndexPath)
	if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = map[string]any{
		"database_path":    s.cfg.Storage.DatabasePath,
		"bleve_index_path": s.cfg.Storage.BleveIndexPath,
		"status_policy":    s.policy.String(),
		"watch_enabled":    s.watch != nil,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	dirs := s.watch.Directories()
	s.respondJSON(w, http.StatusOK, map[string]any{"directories": dirs})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories saves the current watch roots to the config file, if any.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" {
		return
	}
	s.watchConfigMu.Lock()
	defer s.watchConfigMu.Unlock()
	s.cfg.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.cfg); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondStorageError maps storage.ErrNotFound to 404 and anything else to 500.
func (s *Server) respondStorageError(w http.ResponseWriter, notFound string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, notFound)
		return
	}
	s.logger.Error("storage error", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}
