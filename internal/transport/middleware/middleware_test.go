package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/policy-register/internal/transport/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CORS", func() {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	It("should answer preflight requests without reaching the handler", func() {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/policies", nil)
		req.Header.Set("Origin", "https://intranet.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()

		middleware.CORS("*")(next).ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
	})

	It("should echo an allowed origin", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/policies", nil)
		req.Header.Set("Origin", "https://intranet.example")
		rec := httptest.NewRecorder()

		middleware.CORS("https://intranet.example, https://admin.example")(next).ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://intranet.example"))
		Expect(rec.Header().Get("Vary")).To(Equal("Origin"))
	})

	It("should not stamp headers for other origins", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/policies", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()

		middleware.CORS("https://intranet.example")(next).ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("should turn a panic into a 500 envelope", func() {
		h := middleware.RecoveryMiddleware(slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		var body map[string]map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["error"]["message"]).To(Equal("Internal server error"))
		Expect(rec.Body.String()).NotTo(ContainSubstring("boom"))
	})
})

var _ = Describe("RequestID", func() {
	It("should propagate an incoming trace id", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Trace-ID", "trace-123")
		middleware.RequestID(http.NotFoundHandler()).ServeHTTP(rec, req)
		Expect(rec.Header().Get("X-Trace-ID")).To(Equal("trace-123"))
	})

	It("should generate one when missing", func() {
		rec := httptest.NewRecorder()
		middleware.RequestID(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(rec.Header().Get("X-Trace-ID")).NotTo(BeEmpty())
	})
})

var _ = Describe("LoggingMiddleware", func() {
	It("should filter secrets and leave the request body readable", func() {
		var out bytes.Buffer
		log := slog.New(slog.NewJSONHandler(&out, nil))

		var seen map[string]string
		h := middleware.LoggingMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(json.NewDecoder(r.Body).Decode(&seen)).To(Succeed())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"access_token":"jwt"}`))
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"username":"alice","password":"hunter2"}`))
		req.Header.Set("Content-Type", "application/json")
		h.ServeHTTP(httptest.NewRecorder(), req)

		Expect(seen["password"]).To(Equal("hunter2"))
		Expect(out.String()).To(ContainSubstring("[FILTERED]"))
		Expect(out.String()).NotTo(ContainSubstring("hunter2"))
		Expect(out.String()).NotTo(ContainSubstring(`"jwt"`))
	})
})
