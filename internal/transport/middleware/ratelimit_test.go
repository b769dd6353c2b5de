package middleware_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/frahmantamala/policy-register/internal/transport/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

var _ = Describe("RateLimiter", func() {
	var (
		mr      *miniredis.Miniredis
		client  *redis.Client
		limiter *middleware.RateLimiter
		handler http.Handler
	)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	send := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		mr = miniredis.RunT(GinkgoT())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)

		limiter = middleware.NewRateLimiter(client, middleware.RateLimiterConfig{
			MaxRequests: 3,
			Window:      time.Minute,
			Prefix:      "login",
		}, slog.Default())
		handler = limiter.Middleware(ok)
	})

	It("should allow requests up to the limit", func() {
		for i := 0; i < 3; i++ {
			Expect(send("10.0.0.1:5000").Code).To(Equal(http.StatusOK))
		}
	})

	It("should reject the request past the limit with Retry-After", func() {
		for i := 0; i < 3; i++ {
			send("10.0.0.1:5000")
		}
		rec := send("10.0.0.1:5001")
		Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
		Expect(rec.Header().Get("Retry-After")).NotTo(BeEmpty())

		var body map[string]map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["error"]["code"]).To(Equal("TOO_MANY_REQUESTS"))
	})

	It("should count each client address separately", func() {
		for i := 0; i < 3; i++ {
			send("10.0.0.1:5000")
		}
		Expect(send("10.0.0.2:5000").Code).To(Equal(http.StatusOK))
	})

	It("should reset once the window elapses", func() {
		for i := 0; i < 4; i++ {
			send("10.0.0.1:5000")
		}
		mr.FastForward(time.Minute + time.Second)
		Expect(send("10.0.0.1:5000").Code).To(Equal(http.StatusOK))
	})

	It("should set the window on the first hit", func() {
		allowed, _, err := limiter.CheckLimit(context.Background(), "10.0.0.9")
		Expect(err).NotTo(HaveOccurred())
		Expect(allowed).To(BeTrue())
		Expect(mr.TTL("login:10.0.0.9")).To(Equal(time.Minute))
	})

	It("should fail open when redis is unavailable", func() {
		down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
		DeferCleanup(down.Close)
		handler = middleware.NewRateLimiter(down, middleware.RateLimiterConfig{MaxRequests: 1}, slog.Default()).Middleware(ok)
		Expect(send("10.0.0.1:5000").Code).To(Equal(http.StatusOK))
		Expect(send("10.0.0.1:5000").Code).To(Equal(http.StatusOK))
	})
})
