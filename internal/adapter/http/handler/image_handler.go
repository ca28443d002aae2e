package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/http/middleware"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/usecase"
	"github.com/go-chi/chi/v5"
)

const (
	// maxUploadBody leaves room for multipart framing around a full batch.
	maxUploadBody  = usecase.MaxFilesPerUpload*usecase.MaxFileSize + 1<<20
	multipartInMem = 32 << 20
)

// uploadFields are the accepted multipart field names for image files.
var uploadFields = []string{"images[]", "images"}

// HandleUploadImages stores a multipart batch of images for the caller's
// listing. mainIndex selects the cover.
func (h *AnnonceHandler) HandleUploadImages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(multipartInMem); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, r, fmt.Errorf("%w: upload exceeds %d bytes", domain.ErrFileTooLarge, maxUploadBody))
			return
		}
		h.writeError(w, r, fmt.Errorf("%w: invalid multipart body: %v", domain.ErrValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	mainIndex := 0
	if raw := strings.TrimSpace(r.FormValue("mainIndex")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: mainIndex must be an integer", domain.ErrValidation))
			return
		}
		mainIndex = v
	}

	var headers []*multipart.FileHeader
	for _, field := range uploadFields {
		headers = append(headers, r.MultipartForm.File[field]...)
	}

	files := make([]usecase.UploadFile, 0, len(headers))
	for _, fh := range headers {
		file, err := readUploadFile(fh)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		files = append(files, file)
	}

	res, err := h.assets.UploadImages(r.Context(), chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context()), files, mainIndex)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	images := make([]uploadedImageResponse, 0, len(res.Images))
	for _, img := range res.Images {
		images = append(images, uploadedImageResponse{URL: img.URL, IsMain: img.IsMain})
	}
	h.writeJSON(w, http.StatusOK, uploadResponse{OK: true, Images: images, FirstImagePath: res.FirstImagePath})
}

// readUploadFile reads at most one byte past the size limit so the usecase
// can reject oversize files without buffering them whole.
func readUploadFile(fh *multipart.FileHeader) (usecase.UploadFile, error) {
	f, err := fh.Open()
	if err != nil {
		return usecase.UploadFile{}, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, usecase.MaxFileSize+1))
	if err != nil {
		return usecase.UploadFile{}, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return usecase.UploadFile{Filename: fh.Filename, ContentType: contentType, Data: data}, nil
}

func (h *AnnonceHandler) HandleListImages(w http.ResponseWriter, r *http.Request) {
	view, err := h.assets.ListImages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	images := make([]imagePathResponse, 0, len(view.Images))
	for _, path := range view.Images {
		images = append(images, imagePathResponse{ImagePath: path})
	}
	h.writeJSON(w, http.StatusOK, imagesResponse{
		HaveImage:      view.HaveImage,
		FirstImagePath: view.FirstImagePath,
		Images:         images,
	})
}

// HandleDeleteImage detaches one image, addressed by ?imageId= or ?url=.
func (h *AnnonceHandler) HandleDeleteImage(w http.ResponseWriter, r *http.Request) {
	ref := queryString(r, "imageId")
	if ref == nil {
		ref = queryString(r, "url")
	}
	if ref == nil {
		h.writeError(w, r, fmt.Errorf("%w: imageId or url is required", domain.ErrValidation))
		return
	}

	res, err := h.assets.DeleteImage(r.Context(), chi.URLParam(r, "id"), middleware.UserIDFromContext(r.Context()), *ref)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	remaining := res.Remaining
	if remaining == nil {
		remaining = []string{}
	}
	h.writeJSON(w, http.StatusOK, deleteImageResponse{
		OK:             true,
		Removed:        res.Removed,
		Remaining:      remaining,
		HaveImage:      res.HaveImage,
		FirstImagePath: res.FirstImagePath,
	})
}
