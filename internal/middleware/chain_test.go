package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-gateway/internal/middleware"
)

func tagging(tag string, order *[]string) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*order = append(*order, tag)
			next.ServeHTTP(w, r)
		})
	}
}

var _ = Describe("Chain", func() {
	It("should run middlewares outermost first", func() {
		var order []string
		chain := middleware.NewChain(tagging("a", &order), tagging("b", &order))
		chain = chain.Append(tagging("c", &order))

		h := chain.Then(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(order).To(Equal([]string{"a", "b", "c", "handler"}))
	})

	It("should fall back to not found for a nil handler", func() {
		w := httptest.NewRecorder()
		middleware.NewChain().Then(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})
})

var _ = Describe("RequestID", func() {
	var seen string

	handler := func() http.Handler {
		return middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = middleware.RequestIDFromContext(r.Context())
			Expect(r.Header.Get(middleware.RequestIDHeader)).To(Equal(seen))
		}))
	}

	It("should generate an id when none is sent", func() {
		w := httptest.NewRecorder()
		handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(seen).To(MatchRegexp(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`))
		Expect(w.Header().Get(middleware.RequestIDHeader)).To(Equal(seen))
	})

	It("should keep an incoming id", func() {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(middleware.RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		handler().ServeHTTP(w, r)

		Expect(seen).To(Equal("abc-123"))
		Expect(w.Header().Get(middleware.RequestIDHeader)).To(Equal("abc-123"))
	})

	It("should return empty outside a request", func() {
		Expect(middleware.RequestIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())).To(BeEmpty())
	})
})

var _ = Describe("Recovery", func() {
	It("should answer 500 on panic", func() {
		h := middleware.Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

		w := httptest.NewRecorder()
		Expect(func() {
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		}).NotTo(Panic())
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(MatchJSON(`{"error":"Internal Server Error"}`))
	})

	It("should re-raise http.ErrAbortHandler", func() {
		h := middleware.Recovery(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		Expect(func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		}).To(PanicWith(http.ErrAbortHandler))
	})
})

var _ = Describe("AccessLog", func() {
	It("should log method, path, status and request id", func() {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))

		h := middleware.NewChain(middleware.RequestID(), middleware.AccessLog(logger)).
			Then(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
				w.Write([]byte("tea"))
			}))

		r := httptest.NewRequest(http.MethodPost, "/v1/orders", nil)
		r.Header.Set(middleware.RequestIDHeader, "req-1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		Expect(w.Code).To(Equal(http.StatusTeapot))

		var entry map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &entry)).To(Succeed())
		Expect(entry).To(HaveKeyWithValue("method", "POST"))
		Expect(entry).To(HaveKeyWithValue("path", "/v1/orders"))
		Expect(entry).To(HaveKeyWithValue("status", BeNumerically("==", http.StatusTeapot)))
		Expect(entry).To(HaveKeyWithValue("bytes", BeNumerically("==", 3)))
		Expect(entry).To(HaveKeyWithValue("request_id", "req-1"))
	})
})
