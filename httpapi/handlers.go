package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"go.uber.org/zap"

	"github.com/arvik/shopsearch/storage"
)

// SearchService is the autocomplete collaborator: term in, summaries out.
type SearchService interface {
	Search(ctx context.Context, term string) ([]storage.EntitySummary, error)
}

// RegisterSearch mounts GET /{base}/search?term= backed by svc.
func (s *Server) RegisterSearch(base string, svc SearchService) {
	s.mux.HandleFunc("GET /"+base+"/search", func(w http.ResponseWriter, r *http.Request) {
		term := r.URL.Query().Get("term")
		if term == "" {
			writeError(w, http.StatusBadRequest, "term is required")
			return
		}
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "search rate limit exceeded")
			return
		}

		results, err := svc.Search(r.Context(), term)
		if err != nil {
			s.logger.Error("search failed", zap.String("term", term), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}
		if results == nil {
			results = []storage.EntitySummary{}
		}
		writeData(w, http.StatusOK, results)
	})
}

// RegisterResource mounts the CRUD routes for one entity under /{base}.
func RegisterResource[T any](s *Server, base string, repo storage.Repository[T]) {
	h := resource[T]{server: s, repo: repo}
	s.mux.HandleFunc("GET /"+base, h.list)
	s.mux.HandleFunc("POST /"+base, h.create)
	s.mux.HandleFunc("GET /"+base+"/{id}", h.get)
	s.mux.HandleFunc("PUT /"+base+"/{id}", h.update)
	s.mux.HandleFunc("DELETE /"+base+"/{id}", h.delete)
}

type resource[T any] struct {
	server *Server
	repo   storage.Repository[T]
}

func (h resource[T]) list(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.List(r.Context())
	if err != nil {
		h.server.logger.Error("list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if records == nil {
		records = []T{}
	}
	writeData(w, http.StatusOK, records)
}

func (h resource[T]) create(w http.ResponseWriter, r *http.Request) {
	var record T
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.repo.Create(r.Context(), record)
	if err != nil {
		h.server.logger.Error("create failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create failed")
		return
	}
	writeData(w, http.StatusCreated, created)
}

func (h resource[T]) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	record, err := h.repo.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.server.logger.Error("get failed", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get failed")
		return
	}
	writeData(w, http.StatusOK, record)
}

func (h resource[T]) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var record T
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	record = withID(record, id)
	updated, err := h.repo.Update(r.Context(), record)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.server.logger.Error("update failed", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	writeData(w, http.StatusOK, updated)
}

func (h resource[T]) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	err := h.repo.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.server.logger.Error("delete failed", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// withID stamps the path id onto the decoded record so PUT bodies do not
// need to repeat it.
func withID[T any](record T, id int64) T {
	v := reflect.ValueOf(&record).Elem()
	if v.Kind() != reflect.Struct {
		return record
	}
	f := v.FieldByName("ID")
	if f.IsValid() && f.CanSet() && f.Kind() == reflect.Int64 {
		f.SetInt(id)
	}
	return record
}
