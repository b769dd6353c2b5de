package taxonomy_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/frahmantamala/policy-register/internal/access"
	taxonomyDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/taxonomy"
	"github.com/frahmantamala/policy-register/internal/taxonomy"
	taxonomyPostgres "github.com/frahmantamala/policy-register/internal/taxonomy/postgres"
	"github.com/frahmantamala/policy-register/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("Taxonomy Handler Integration", func() {
	var (
		router *chi.Mux
		authz  *access.Authorizer
		role   access.Role
	)

	do := func(method, path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.Table(taxonomyDatamodel.TableCategories).AutoMigrate(&taxonomyDatamodel.Term{})).To(Succeed())

		authz, err = access.NewAuthorizer()
		Expect(err).NotTo(HaveOccurred())
		role = access.RoleAdmin

		repo := taxonomyPostgres.NewTermRepository(db, taxonomy.CategoryKind)
		service := taxonomy.NewService(taxonomy.CategoryKind, repo, slogger)
		handler := taxonomy.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		router = chi.NewRouter()
		router.Get("/public/categories", handler.PublicList)
		router.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
					caller := authz.NewCaller("u-1", "tester", role, nil)
					next.ServeHTTP(w, req.WithContext(access.WithCaller(req.Context(), caller)))
				})
			})
			r.Get("/categories", handler.List)
			r.Post("/categories", handler.Create)
			r.Get("/categories/{id}", handler.Get)
			r.Patch("/categories/{id}", handler.Update)
			r.Delete("/categories/{id}", handler.Delete)
			r.Patch("/categories/{id}/restore", handler.Restore)
		})
	})

	create := func(name, code string) taxonomy.Term {
		w := do(http.MethodPost, "/categories", map[string]string{"name": name, "code": code})
		Expect(w.Code).To(Equal(http.StatusOK))
		var term taxonomy.Term
		Expect(json.NewDecoder(w.Body).Decode(&term)).To(Succeed())
		return term
	}

	It("should create a category and answer 200", func() {
		term := create("Operations", "ops")
		Expect(term.Code).To(Equal("OPS"))
		Expect(term.IsActive).To(BeTrue())
	})

	It("should answer 400 for a duplicate code", func() {
		create("Operations", "OPS")
		w := do(http.MethodPost, "/categories", map[string]string{"name": "Other", "code": "ops"})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should answer 422 for a malformed body", func() {
		req := httptest.NewRequest(http.MethodPost, "/categories", bytes.NewBufferString("{not json"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
	})

	It("should soft-delete, list with include_deleted and restore", func() {
		term := create("Operations", "OPS")
		create("Finance", "FIN")

		Expect(do(http.MethodDelete, "/categories/"+term.ID, nil).Code).To(Equal(http.StatusOK))

		var listed []taxonomy.Term
		w := do(http.MethodGet, "/categories", nil)
		Expect(json.NewDecoder(w.Body).Decode(&listed)).To(Succeed())
		Expect(listed).To(HaveLen(1))

		w = do(http.MethodGet, "/categories?include_deleted=true", nil)
		Expect(json.NewDecoder(w.Body).Decode(&listed)).To(Succeed())
		Expect(listed).To(HaveLen(2))

		w = do(http.MethodGet, "/public/categories", nil)
		Expect(json.NewDecoder(w.Body).Decode(&listed)).To(Succeed())
		Expect(listed).To(HaveLen(1))
		Expect(listed[0].Code).To(Equal("FIN"))

		Expect(do(http.MethodPatch, "/categories/"+term.ID+"/restore", nil).Code).To(Equal(http.StatusOK))
		w = do(http.MethodGet, "/categories", nil)
		Expect(json.NewDecoder(w.Body).Decode(&listed)).To(Succeed())
		Expect(listed).To(HaveLen(2))
	})

	It("should ignore include_deleted for readers", func() {
		term := create("Operations", "OPS")
		Expect(do(http.MethodDelete, "/categories/"+term.ID, nil).Code).To(Equal(http.StatusOK))

		role = access.RoleUser
		var listed []taxonomy.Term
		w := do(http.MethodGet, "/categories?include_deleted=true", nil)
		Expect(json.NewDecoder(w.Body).Decode(&listed)).To(Succeed())
		Expect(listed).To(BeEmpty())
		Expect(do(http.MethodGet, "/categories/"+term.ID, nil).Code).To(Equal(http.StatusNotFound))
	})

	It("should answer 404 for unknown ids", func() {
		Expect(do(http.MethodPatch, "/categories/nope", map[string]string{"name": "x"}).Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodDelete, "/categories/nope", nil).Code).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodPatch, "/categories/nope/restore", nil).Code).To(Equal(http.StatusNotFound))
	})
})
