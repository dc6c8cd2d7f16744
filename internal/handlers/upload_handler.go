package handlers

import (
	"net/http"

	"tpm-hub/internal/uploads"
)

// maxUploadBytes caps attachment size at 10 MiB.
const maxUploadBytes = 10 << 20

// UploadHandler handles attachment uploads
type UploadHandler struct {
	saver *uploads.Saver
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(saver *uploads.Saver) *UploadHandler {
	return &UploadHandler{saver: saver}
}

// Upload stores an attachment blob
// @Summary Upload attachment
// @Description Store a file and return its opaque reference for use in suggestion and circle forms
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Attachment"
// @Success 201 {object} map[string]string "Attachment reference"
// @Failure 400 {object} map[string]string "Missing or oversized file"
// @Router /uploads [post]
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid or oversized upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	ref, err := h.saver.Save(header.Filename, file)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]string{"attachment": ref})
}
