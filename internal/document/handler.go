package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Collection() Collection
	Create(ctx context.Context, dto CreateDocumentDTO, upload Upload) (*Document, error)
	List(ctx context.Context, q ListQuery) ([]*Document, error)
	Get(ctx context.Context, id string, opts ReadOptions) (*Document, error)
	Versions(ctx context.Context, id string, opts ReadOptions) ([]Version, error)
	Open(ctx context.Context, id string, opts ReadOptions) (*Document, io.ReadCloser, error)
	Update(ctx context.Context, id string, dto UpdateDocumentDTO) (*Document, error)
	SetVisibility(ctx context.Context, id string, dto VisibilityDTO) (*Document, error)
	Delete(ctx context.Context, id string) (*Document, error)
	Restore(ctx context.Context, id string) (*Document, error)
	Replace(ctx context.Context, id, changeSummary string, upload Upload) (*Document, error)
}

type Handler struct {
	*transport.BaseHandler
	Service       ServiceAPI
	MaxUploadSize int64
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI, maxUploadSize int64) *Handler {
	if maxUploadSize <= 0 {
		maxUploadSize = 32 << 20
	}
	return &Handler{
		BaseHandler:   baseHandler,
		Service:       service,
		MaxUploadSize: maxUploadSize,
	}
}

func (h *Handler) label() string {
	name := h.Service.Collection().Name
	return strings.ToUpper(name[:1]) + name[1:]
}

func readOptions(r *http.Request) ReadOptions {
	return ReadOptions{
		IncludeHidden:  transport.QueryBool(r, "include_hidden", "show_hidden"),
		IncludeDeleted: transport.QueryBool(r, "include_deleted", "show_deleted"),
	}
}

func listQuery(r *http.Request, opts ReadOptions) ListQuery {
	q := r.URL.Query()
	return ListQuery{
		ReadOptions:  opts,
		Search:       q.Get("search"),
		Status:       q.Get("status"),
		CategoryID:   q.Get("category_id"),
		DocumentType: q.Get("document_type"),
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, readOptions(r))
}

func (h *Handler) PublicList(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, ReadOptions{Public: true})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, opts ReadOptions) {
	docs, err := h.Service.List(r.Context(), listQuery(r, opts))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, docs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, readOptions(r))
}

func (h *Handler) PublicGet(w http.ResponseWriter, r *http.Request) {
	h.get(w, r, ReadOptions{Public: true})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, opts ReadOptions) {
	doc, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) Versions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.Service.Versions(r.Context(), chi.URLParam(r, "id"), readOptions(r))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, versions)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, readOptions(r))
}

func (h *Handler) PublicDownload(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, ReadOptions{Public: true})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, opts ReadOptions) {
	doc, rc, err := h.Service.Open(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(doc.FileName)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Logger.Warn("download interrupted", "id", doc.ID, "error", err)
	}
}

// Create accepts multipart/form-data with the file under "file".
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	for _, field := range []string{"title", "category_id", "date_issued"} {
		if strings.TrimSpace(r.FormValue(field)) == "" {
			h.HandleServiceError(w, r, missingField(field))
			return
		}
	}

	upload, closeFile, err := h.formFile(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	defer closeFile()

	dto := CreateDocumentDTO{
		Title:           r.FormValue("title"),
		DocumentType:    r.FormValue("document_type"),
		CategoryID:      r.FormValue("category_id"),
		PolicyTypeID:    r.FormValue("policy_type_id"),
		DateIssued:      r.FormValue("date_issued"),
		OwnerDepartment: r.FormValue("owner_department"),
		PolicyNumber:    r.FormValue("policy_number"),
		ChangeSummary:   r.FormValue("change_summary"),
		Description:     r.FormValue("description"),
		Tags:            ParseTags(r.FormValue("tags")),
	}
	if v := r.FormValue("is_visible_to_users"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.HandleServiceError(w, r, internal.NewValidationFieldError("is_visible_to_users", "is_visible_to_users must be a boolean", internal.ErrCodeValidationFailed))
			return
		}
		dto.IsVisibleToUsers = &b
	}

	doc, err := h.Service.Create(r.Context(), dto, upload)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":         fmt.Sprintf("%s created successfully", h.label()),
		"document_number": doc.DocumentNumber,
		"document":        doc,
	})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var dto UpdateDocumentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	doc, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, doc)
}

// SetVisibility takes a JSON body; on policies a bare ?is_visible= query is also accepted.
func (h *Handler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	var dto VisibilityDTO
	if v := r.URL.Query().Get("is_visible"); v != "" && h.Service.Collection().DocumentType == TypePolicy {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.HandleServiceError(w, r, internal.NewValidationFieldError("is_visible", "is_visible must be a boolean", internal.ErrCodeValidationFailed))
			return
		}
		dto.IsVisibleToUsers = &b
	} else if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	doc, err := h.Service.SetVisibility(r.Context(), chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":  fmt.Sprintf("%s visibility updated successfully", h.label()),
		"document": doc,
	})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%s deleted successfully", h.label()),
	})
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Service.Restore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":  fmt.Sprintf("%s restored successfully", h.label()),
		"document": doc,
	})
}

// Replace uploads a new file version.
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	upload, closeFile, err := h.formFile(r)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	defer closeFile()

	doc, err := h.Service.Replace(r.Context(), chi.URLParam(r, "id"), r.FormValue("change_summary"), upload)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":     fmt.Sprintf("%s file updated successfully", h.label()),
		"new_version": doc.Version,
		"document":    doc,
	})
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(h.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return internal.NewValidationFieldError("file", "File exceeds the maximum upload size", internal.ErrCodeValidationFailed)
		}
		return internal.NewUnprocessableError("multipart/form-data body is required", internal.ErrCodeMalformedBody).WithCause(err)
	}
	return nil
}

func (h *Handler) formFile(r *http.Request) (Upload, func(), error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return Upload{}, nil, missingField("file")
		}
		return Upload{}, nil, internal.NewUnprocessableError("invalid file upload", internal.ErrCodeMalformedBody).WithCause(err)
	}
	return uploadFrom(file, header), func() { file.Close() }, nil
}

func uploadFrom(file multipart.File, header *multipart.FileHeader) Upload {
	return Upload{
		FileName:    filepath.Base(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	}
}

func missingField(field string) *internal.AppError {
	return internal.NewUnprocessableError(fmt.Sprintf("%s is required", field), internal.ErrCodeMissingField).
		WithDetails(internal.ValidationErrors{Errors: []internal.ValidationError{{
			Field:   field,
			Message: "field required",
			Code:    string(internal.ErrCodeMissingField),
		}}})
}
