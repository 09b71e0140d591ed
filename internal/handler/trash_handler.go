package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docvault/internal/auth"
	"docvault/internal/service"
)

type TrashHandler struct {
	trashService *service.TrashService
}

func NewTrashHandler(trashService *service.TrashService) *TrashHandler {
	return &TrashHandler{trashService: trashService}
}

// DeleteFolder переводит поддерево папки в корзину
func (h *TrashHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
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

	if err := h.trashService.DeleteFolderToTrash(r.Context(), folderID, identity.UserID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeleteFile переводит одиночный файл в корзину
func (h *TrashHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	if err := h.trashService.DeleteFileToTrash(r.Context(), fileID, identity.UserID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// ListTrash отдает корневые записи корзины измерения
func (h *TrashHandler) ListTrash(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	records, err := h.trashService.ListTrash(r.Context(), identity.DimensionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// Recover восстанавливает группу записей корзины
func (h *TrashHandler) Recover(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.VerifyToken(r); err != nil {
		writeError(w, err)
		return
	}

	trashID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid trash record ID", http.StatusBadRequest)
		return
	}

	var req struct {
		ItemType string `json:"item_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.trashService.Recover(r.Context(), trashID, req.ItemType); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// PermanentlyDelete окончательно удаляет группу записей корзины
func (h *TrashHandler) PermanentlyDelete(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	trashID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid trash record ID", http.StatusBadRequest)
		return
	}

	if err := h.trashService.PermanentlyDelete(r.Context(), trashID, identity.UserID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
