package handler

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"docvault/internal/auth"
	"docvault/internal/service"
)

type ArchiveHandler struct {
	archiveService *service.ArchiveService
}

func NewArchiveHandler(archiveService *service.ArchiveService) *ArchiveHandler {
	return &ArchiveHandler{archiveService: archiveService}
}

// LocalArchive собирает zip-архив поддерева и отдает его вложением
func (h *ArchiveHandler) LocalArchive(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	buf, filename, err := h.archiveService.LocalArchive(r.Context(), folderID, identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Error streaming archive for folder %d: %v", folderID, err)
	}
}

// CloudArchive выгружает архив поддерева в холодное хранилище
func (h *ArchiveHandler) CloudArchive(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	rec, err := h.archiveService.CloudArchive(r.Context(), folderID, identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// MarkArchived запускает окончательную зачистку заархивированного поддерева
func (h *ArchiveHandler) MarkArchived(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	if err := h.archiveService.MarkArchived(r.Context(), folderID, identity.UserID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ListArchives отдает записи архивов измерения
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	records, err := h.archiveService.ListArchives(r.Context(), identity.DimensionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// DownloadURL выдает подписанную ссылку на скачивание архива
func (h *ArchiveHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.VerifyToken(r); err != nil {
		writeError(w, err)
		return
	}

	archiveID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid archive ID", http.StatusBadRequest)
		return
	}

	url, err := h.archiveService.SignedURL(r.Context(), archiveID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		URL string `json:"url"`
	}{URL: url})
}
