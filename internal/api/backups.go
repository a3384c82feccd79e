package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/laguz/internal/models"
)

func (h *Handler) backupEvent(kind, id string) {
	if h.broker != nil {
		h.broker.PublishBackupEvent(kind, id)
	}
}

// CreateBackup handles POST /api/backups.
func (h *Handler) CreateBackup(w http.ResponseWriter, _ *http.Request) {
	meta, err := h.engine.Create(models.BackupSourceManual)
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.backupEvent("created", meta.ID)
	writeData(w, http.StatusCreated, meta)
}

// ListBackups handles GET /api/backups.
func (h *Handler) ListBackups(w http.ResponseWriter, _ *http.Request) {
	list, err := h.engine.List()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeData(w, http.StatusOK, BackupListResponse{Backups: list})
}

// RestoreBackup handles POST /api/backups/{id}/restore. The snapshot
// fully overwrites the live collection and settings.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.Restore(id); err != nil {
		writeFailure(w, err)
		return
	}
	h.backupEvent("restored", id)
	writeData(w, http.StatusOK, nil)
}

// DeleteBackup handles DELETE /api/backups/{id}. Idempotent.
func (h *Handler) DeleteBackup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.engine.Delete(id); err != nil {
		writeFailure(w, err)
		return
	}
	h.backupEvent("deleted", id)
	writeData(w, http.StatusOK, nil)
}

// ExportBackup handles GET /api/backups/{id}/export, returning the raw
// record JSON.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	data, err := h.engine.Export(chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(data))
}

// ImportBackup handles POST /api/backups/import with the exported JSON
// as the request body.
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 50<<20)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	meta, err := h.engine.Import(string(body))
	if err != nil {
		writeFailure(w, err)
		return
	}
	h.backupEvent("created", meta.ID)
	writeData(w, http.StatusCreated, meta)
}
