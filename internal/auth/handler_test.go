package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	"github.com/frahmantamala/policy-register/internal/access"
	"github.com/frahmantamala/policy-register/internal/auth"
	authPostgres "github.com/frahmantamala/policy-register/internal/auth/postgres"
	userDatamodel "github.com/frahmantamala/policy-register/internal/core/datamodel/user"
	"github.com/frahmantamala/policy-register/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("Auth Handler Integration", func() {
	var (
		router *chi.Mux
		db     *gorm.DB
	)

	post := func(path string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		req := httptest.NewRequest(http.MethodPost, path, &buf)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	get := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	login := func(username, password string) (int, string) {
		w := post("/auth/login", map[string]string{"username": username, "password": password})
		var resp auth.LoginResponse
		_ = json.NewDecoder(w.Body).Decode(&resp)
		return w.Code, resp.AccessToken
	}

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&userDatamodel.User{}, &userDatamodel.GroupMember{})).To(Succeed())

		authz, err := access.NewAuthorizer()
		Expect(err).NotTo(HaveOccurred())

		base := &transport.BaseHandler{Logger: slogger}
		service := auth.NewService(
			authPostgres.NewRepository(db),
			auth.NewJWTTokenGenerator("integration-secret", time.Minute),
			auth.NewBcryptHasher(bcrypt.MinCost),
			slogger,
		)
		_, err = service.EnsureAdmin(context.Background(), auth.BootstrapAdmin{Username: "admin", Email: "admin@example.com", FullName: "Admin", Password: "admin123"})
		Expect(err).NotTo(HaveOccurred())

		handler := auth.NewHandler(base, service, authz)
		rbac := auth.NewRBACAuthorization(base, slogger)

		router = chi.NewRouter()
		router.Post("/auth/register", handler.Register)
		router.Post("/auth/login", handler.Login)
		router.Group(func(r chi.Router) {
			r.Use(handler.AuthMiddleware)
			r.With(rbac.RequireRead()).Get("/auth/me", handler.Me)
			r.With(rbac.RequireAdmin()).Get("/admin-only", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		})
	})

	It("should register a pending account that cannot log in until approved", func() {
		w := post("/auth/register", map[string]string{
			"username": "alice", "email": "alice@example.com", "full_name": "Alice", "password": "secret1",
		})
		Expect(w.Code).To(Equal(http.StatusOK))
		var body map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body["is_approved"]).To(BeFalse())
		Expect(body).NotTo(HaveKey("password_hash"))

		code, _ := login("alice", "secret1")
		Expect(code).To(Equal(http.StatusUnauthorized))

		Expect(db.Model(&userDatamodel.User{}).Where("username = ?", "alice").Update("is_approved", true).Error).To(Succeed())
		code, token := login("alice", "secret1")
		Expect(code).To(Equal(http.StatusOK))
		Expect(token).NotTo(BeEmpty())
	})

	It("should answer 400 for a duplicate registration", func() {
		w := post("/auth/register", map[string]string{
			"username": "admin", "email": "other@example.com", "full_name": "X", "password": "secret1",
		})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should answer 401 for bad credentials", func() {
		code, _ := login("admin", "wrong")
		Expect(code).To(Equal(http.StatusUnauthorized))
	})

	It("should answer 422 for a malformed login body", func() {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("nope"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
	})

	It("should resolve the bearer token on /auth/me", func() {
		code, token := login("admin", "admin123")
		Expect(code).To(Equal(http.StatusOK))

		w := get("/auth/me", token)
		Expect(w.Code).To(Equal(http.StatusOK))
		var body map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body["username"]).To(Equal("admin"))
		Expect(body["role"]).To(Equal("admin"))
	})

	It("should answer 401 without a token and after suspension", func() {
		Expect(get("/auth/me", "").Code).To(Equal(http.StatusUnauthorized))

		_, token := login("admin", "admin123")
		Expect(db.Model(&userDatamodel.User{}).Where("username = ?", "admin").Update("is_suspended", true).Error).To(Succeed())
		Expect(get("/auth/me", token).Code).To(Equal(http.StatusUnauthorized))
	})

	It("should answer 403 when the role lacks the capability", func() {
		post("/auth/register", map[string]string{
			"username": "bob", "email": "bob@example.com", "full_name": "Bob", "password": "secret1",
		})
		Expect(db.Model(&userDatamodel.User{}).Where("username = ?", "bob").Update("is_approved", true).Error).To(Succeed())
		_, token := login("bob", "secret1")

		Expect(get("/auth/me", token).Code).To(Equal(http.StatusOK))
		Expect(get("/admin-only", token).Code).To(Equal(http.StatusForbidden))

		_, adminToken := login("admin", "admin123")
		Expect(get("/admin-only", adminToken).Code).To(Equal(http.StatusOK))
	})
})
