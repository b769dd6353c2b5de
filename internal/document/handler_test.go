package document_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/access"
	"github.com/frahmantamala/policy-register/internal/document"
	"github.com/frahmantamala/policy-register/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Document Handler Integration", func() {
	var (
		f      *fixture
		router *chi.Mux
		role   access.Role
		groups []string
	)

	BeforeEach(func() {
		f = newFixture()
		role = access.RoleAdmin
		groups = nil

		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		base := &transport.BaseHandler{Logger: slogger}
		policies := document.NewHandler(base, f.policies, 1<<20)
		documents := document.NewHandler(base, f.documents, 1<<20)

		router = chi.NewRouter()
		router.Get("/public/policies", policies.PublicList)
		router.Get("/public/policies/{id}", policies.PublicGet)
		router.Get("/public/policies/{id}/download", policies.PublicDownload)
		router.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					caller := f.authz.NewCaller("u-1", "tester", role, groups)
					ctx := access.WithCaller(req.Context(), caller)
					ctx = internal.ContextWithActor(ctx, caller.UserID, caller.Username)
					next.ServeHTTP(w, req.WithContext(ctx))
				})
			})
			for prefix, h := range map[string]*document.Handler{"/policies": policies, "/documents": documents} {
				r.Get(prefix, h.List)
				r.Post(prefix, h.Create)
				r.Get(prefix+"/{id}", h.Get)
				r.Patch(prefix+"/{id}", h.Update)
				r.Delete(prefix+"/{id}", h.Delete)
				r.Get(prefix+"/{id}/download", h.Download)
				r.Get(prefix+"/{id}/versions", h.Versions)
				r.Patch(prefix+"/{id}/visibility", h.SetVisibility)
				r.Patch(prefix+"/{id}/restore", h.Restore)
				r.Patch(prefix+"/{id}/document", h.Replace)
			}
		})
	})

	multipartRequest := func(method, path string, fields map[string]string, fileName, content string) *http.Request {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for k, v := range fields {
			Expect(mw.WriteField(k, v)).To(Succeed())
		}
		if fileName != "" {
			fw, err := mw.CreateFormFile("file", fileName)
			Expect(err).NotTo(HaveOccurred())
			_, err = io.WriteString(fw, content)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(mw.Close()).To(Succeed())
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		return serve(httptest.NewRequest(method, path, &buf))
	}

	createSafetyRules := func() document.Document {
		w := serve(multipartRequest(http.MethodPost, "/policies", map[string]string{
			"title":          "Safety Rules",
			"category_id":    f.opsID,
			"policy_type_id": f.policyTypeID,
			"date_issued":    "2025-01-01",
			"tags":           "safety, floor",
		}, "safety.pdf", "%PDF-1.4"))
		Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())

		var resp struct {
			Message        string            `json:"message"`
			DocumentNumber string            `json:"document_number"`
			Document       document.Document `json:"document"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.DocumentNumber).To(Equal("OPS-P-001-2025-v1"))
		Expect(resp.Message).To(Equal("Policy created successfully"))
		return resp.Document
	}

	It("should create a policy and serve it publicly", func() {
		doc := createSafetyRules()
		Expect(doc.Version).To(Equal(1))
		Expect(doc.Status).To(Equal("active"))
		Expect(doc.IsVisibleToUsers).To(BeTrue())
		Expect(doc.Tags).To(Equal([]string{"safety", "floor"}))

		w := do(http.MethodGet, "/public/policies/"+doc.ID, nil)
		Expect(w.Code).To(Equal(http.StatusOK))

		w = do(http.MethodGet, "/public/policies/"+doc.ID+"/download", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("%PDF-1.4"))
		Expect(w.Header().Get("Content-Type")).To(Equal("application/pdf"))
		Expect(w.Header().Get("Content-Disposition")).To(ContainSubstring("safety.pdf"))
	})

	It("should answer 422 when the file or a required field is missing", func() {
		w := serve(multipartRequest(http.MethodPost, "/policies", map[string]string{
			"title":       "No file",
			"category_id": f.opsID,
			"date_issued": "2025-01-01",
		}, "", ""))
		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))

		w = serve(multipartRequest(http.MethodPost, "/policies", map[string]string{
			"category_id": f.opsID,
			"date_issued": "2025-01-01",
		}, "a.pdf", "x"))
		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))

		w = do(http.MethodPost, "/policies", map[string]string{"title": "json"})
		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
	})

	It("should answer 400 for a bad extension or date", func() {
		w := serve(multipartRequest(http.MethodPost, "/policies", map[string]string{
			"title":       "Notes",
			"category_id": f.opsID,
			"date_issued": "2025-01-01",
		}, "notes.txt", "x"))
		Expect(w.Code).To(Equal(http.StatusBadRequest))

		w = serve(multipartRequest(http.MethodPost, "/policies", map[string]string{
			"title":       "Notes",
			"category_id": f.opsID,
			"date_issued": "first of may",
		}, "notes.pdf", "x"))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should answer 404 for an unknown category", func() {
		w := serve(multipartRequest(http.MethodPost, "/documents", map[string]string{
			"title":       "Orphan",
			"category_id": "missing",
			"date_issued": "2025-01-01",
		}, "a.txt", "x"))
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should hide a policy from the public but not from admins", func() {
		doc := createSafetyRules()

		w := do(http.MethodPatch, "/policies/"+doc.ID+"/visibility?is_visible=false", nil)
		Expect(w.Code).To(Equal(http.StatusOK))

		Expect(do(http.MethodGet, "/public/policies/"+doc.ID, nil).Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodGet, "/public/policies/"+doc.ID+"/download", nil).Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodGet, "/policies/"+doc.ID, nil).Code).To(Equal(http.StatusOK))

		var listed []document.Document
		Expect(json.NewDecoder(do(http.MethodGet, "/public/policies", nil).Body).Decode(&listed)).To(Succeed())
		Expect(listed).To(BeEmpty())
	})

	It("should answer 404 rather than 500 for ids that are not UUIDs", func() {
		createSafetyRules()
		for _, path := range []string{"/public/policies/abc", "/public/policies/abc/download", "/policies/abc", "/documents/abc/versions"} {
			w := do(http.MethodGet, path, nil)
			Expect(w.Code).To(Equal(http.StatusNotFound), path)
		}
	})

	It("should reject group grants that are not ids", func() {
		doc := createSafetyRules()
		w := do(http.MethodPatch, "/policies/"+doc.ID+"/visibility", map[string]interface{}{
			"visible_to_groups": []string{"bogus"},
		})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(w.Body.String()).To(ContainSubstring("INVALID_ID"))
	})

	It("should serve granted documents to group members only", func() {
		doc := createSafetyRules()
		w := do(http.MethodPatch, "/documents/"+doc.ID+"/visibility", map[string]interface{}{
			"is_visible_to_users": false,
			"visible_to_groups":   []string{financeGroupID},
		})
		Expect(w.Code).To(Equal(http.StatusOK))

		role = access.RoleUser
		groups = []string{financeGroupID}
		Expect(do(http.MethodGet, "/policies/"+doc.ID, nil).Code).To(Equal(http.StatusOK))

		groups = []string{hrGroupID}
		Expect(do(http.MethodGet, "/policies/"+doc.ID, nil).Code).To(Equal(http.StatusNotFound))
	})

	It("should ignore widening flags from regular users", func() {
		doc := createSafetyRules()
		Expect(do(http.MethodDelete, "/policies/"+doc.ID, nil).Code).To(Equal(http.StatusOK))

		role = access.RoleUser
		var listed []document.Document
		Expect(json.NewDecoder(do(http.MethodGet, "/policies?include_deleted=true&include_hidden=true", nil).Body).Decode(&listed)).To(Succeed())
		Expect(listed).To(BeEmpty())
	})

	It("should delete, list with include_deleted and restore", func() {
		doc := createSafetyRules()

		w := do(http.MethodDelete, "/policies/"+doc.ID, nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("Policy deleted successfully"))

		var listed []document.Document
		Expect(json.NewDecoder(do(http.MethodGet, "/policies", nil).Body).Decode(&listed)).To(Succeed())
		Expect(listed).To(BeEmpty())

		Expect(json.NewDecoder(do(http.MethodGet, "/policies?show_deleted=true", nil).Body).Decode(&listed)).To(Succeed())
		Expect(listed).To(HaveLen(1))
		Expect(listed[0].Status).To(Equal("deleted"))

		Expect(do(http.MethodPatch, "/policies/"+doc.ID+"/restore", nil).Code).To(Equal(http.StatusOK))
		Expect(json.NewDecoder(do(http.MethodGet, "/policies", nil).Body).Decode(&listed)).To(Succeed())
		Expect(listed).To(HaveLen(1))
		Expect(listed[0].Status).To(Equal("active"))
	})

	It("should replace the file as a new version", func() {
		doc := createSafetyRules()

		w := serve(multipartRequest(http.MethodPatch, "/policies/"+doc.ID+"/document", map[string]string{
			"change_summary": "Annual review",
		}, "safety-v2.docx", "docx bytes"))
		Expect(w.Code).To(Equal(http.StatusOK), w.Body.String())

		var resp struct {
			NewVersion int               `json:"new_version"`
			Document   document.Document `json:"document"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.NewVersion).To(Equal(2))
		Expect(resp.Document.VersionHistory).To(HaveLen(2))
		Expect(resp.Document.VersionHistory[1].ChangeSummary).To(Equal("Annual review"))

		var versions []document.Version
		Expect(json.NewDecoder(do(http.MethodGet, "/policies/"+doc.ID+"/versions", nil).Body).Decode(&versions)).To(Succeed())
		Expect(versions).To(HaveLen(2))

		w = do(http.MethodGet, "/policies/"+doc.ID+"/download", nil)
		Expect(w.Body.String()).To(Equal("docx bytes"))
	})

	It("should answer 404 when the blob behind a record is missing", func() {
		doc := createSafetyRules()
		Expect(os.Remove(filepath.Join(f.blobDir, "OPS_P_001_2025_v1_v1.pdf"))).To(Succeed())

		w := do(http.MethodGet, "/policies/"+doc.ID+"/download", nil)
		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeFileNotFound)))
	})

	It("should patch metadata with JSON", func() {
		doc := createSafetyRules()

		w := do(http.MethodPatch, "/policies/"+doc.ID, map[string]interface{}{
			"title":  "Safety Rules (revised)",
			"status": "archived",
		})
		Expect(w.Code).To(Equal(http.StatusOK))
		var got document.Document
		Expect(json.NewDecoder(w.Body).Decode(&got)).To(Succeed())
		Expect(got.Title).To(Equal("Safety Rules (revised)"))
		Expect(got.Status).To(Equal("archived"))
		Expect(got.ModifiedBy).To(Equal("tester"))

		Expect(do(http.MethodPatch, "/policies/"+doc.ID, map[string]string{"status": "gone"}).Code).To(Equal(http.StatusBadRequest))
		Expect(do(http.MethodPatch, "/policies/"+doc.ID+"/visibility", map[string]string{}).Code).To(Equal(http.StatusBadRequest))
	})
})
