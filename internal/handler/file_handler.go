package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"docvault/internal/auth"
	"docvault/internal/domain"
	"docvault/internal/service"
)

// Предел размера multipart-формы при загрузке файла
const maxUploadMemory = 32 << 20

type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// UploadFile принимает файл multipart-формой с необязательным folder_id
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	src, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "File is required", http.StatusBadRequest)
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		http.Error(w, "Failed to read file", http.StatusBadRequest)
		return
	}

	var folderID *int64
	if v := r.FormValue("folder_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "Invalid folder ID", http.StatusBadRequest)
			return
		}
		folderID = &id
	}

	file, err := h.fileService.Upload(r.Context(), &domain.FileUpload{
		Name:        header.Filename,
		MIMEType:    header.Header.Get("Content-Type"),
		SizeBytes:   header.Size,
		FolderID:    folderID,
		DimensionID: identity.DimensionID,
		Data:        data,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, file)
}

// DownloadFile отдает содержимое файла потоком
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.VerifyToken(r); err != nil {
		writeError(w, err)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	file, obj, err := h.fileService.Download(r.Context(), fileID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", file.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	if obj.ContentLength() > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.ContentLength(), 10))
	}

	if _, err := io.Copy(w, obj); err != nil {
		log.Printf("Error streaming file %s: %v", fileID, err)
	}
}

func (h *FileHandler) RenameFile(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.VerifyToken(r); err != nil {
		writeError(w, err)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.fileService.Rename(r.Context(), fileID, req.Name); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *FileHandler) MoveFile(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.VerifyToken(r); err != nil {
		writeError(w, err)
		return
	}

	fileID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid file ID", http.StatusBadRequest)
		return
	}

	var req struct {
		FolderID *int64 `json:"folder_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.fileService.Move(r.Context(), fileID, req.FolderID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
