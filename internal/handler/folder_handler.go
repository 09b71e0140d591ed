package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"docvault/internal/auth"
	"docvault/internal/service"
)

type FolderHandler struct {
	folderService  *service.FolderService
	cascadeService *service.CascadeService
}

func NewFolderHandler(folderService *service.FolderService, cascadeService *service.CascadeService) *FolderHandler {
	return &FolderHandler{
		folderService:  folderService,
		cascadeService: cascadeService,
	}
}

func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		Name     string `json:"name"`
		ParentID *int64 `json:"parent_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	folder, err := h.folderService.Create(r.Context(), req.Name, identity.DimensionID, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}

// GetFolderContent отдает содержимое папки; без id — корень измерения
func (h *FolderHandler) GetFolderContent(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	folderIDStr := chi.URLParam(r, "id")
	if folderIDStr == "" {
		content, err := h.folderService.GetRootContent(r.Context(), identity.DimensionID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, content)
		return
	}

	folderID, err := strconv.ParseInt(folderIDStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	content, err := h.folderService.GetContent(r.Context(), folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}

func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.VerifyToken(r); err != nil {
		writeError(w, err)
		return
	}

	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.folderService.Rename(r.Context(), folderID, req.Name); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// CopyFolder запускает каскадное копирование поддерева
func (h *FolderHandler) CopyFolder(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		TargetParentID *int64 `json:"target_parent_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	newRootID, err := h.cascadeService.CopySubtree(r.Context(), folderID, req.TargetParentID, identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		NewFolderID int64 `json:"new_folder_id"`
	}{NewFolderID: newRootID})
}

// MoveFolder перемещает поддерево под нового родителя
func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.VerifyToken(r); err != nil {
		writeError(w, err)
		return
	}

	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	var req struct {
		TargetParentID *int64 `json:"target_parent_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.cascadeService.MoveSubtree(r.Context(), folderID, req.TargetParentID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// CountFolder возвращает число подпапок и файлов поддерева
func (h *FolderHandler) CountFolder(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.VerifyToken(r); err != nil {
		writeError(w, err)
		return
	}

	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	counts, err := h.cascadeService.CountSubtree(r.Context(), folderID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, counts)
}

func (h *FolderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.VerifyToken(r); err != nil {
		writeError(w, err)
		return
	}

	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.folderService.UpdateStatus(r.Context(), folderID, req.Status); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *FolderHandler) LockFolder(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.VerifyToken(r); err != nil {
		writeError(w, err)
		return
	}

	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.folderService.Lock(r.Context(), folderID, req.Pin); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *FolderHandler) UnlockFolder(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.VerifyToken(r); err != nil {
		writeError(w, err)
		return
	}

	folderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid folder ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.folderService.Unlock(r.Context(), folderID, req.Pin); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
