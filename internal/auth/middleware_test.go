package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-gateway/internal/auth"
)

var _ = Describe("Middleware", func() {
	var (
		tokens   *auth.TokenManager
		handler  http.Handler
		reached  bool
		clientID string
	)

	BeforeEach(func() {
		tokens = auth.NewTokenManager(secret, time.Minute)
		reached = false
		clientID = ""
		handler = auth.Middleware(tokens, []string{"/v1/sales"}, discardLogger())(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
					clientID = claims.ClientID
				}
			}))
	})

	serve := func(path, authorization string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		if authorization != "" {
			r.Header.Set("Authorization", authorization)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	It("should let unprotected paths through", func() {
		w := serve("/v1/orders", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(reached).To(BeTrue())
	})

	DescribeTable("should answer 401",
		func(authorization func() string, message string) {
			w := serve("/v1/sales/3", authorization())

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))
			Expect(w.Body.String()).To(MatchJSON(`{"message":"` + message + `"}`))
			Expect(reached).To(BeFalse())
		},
		Entry("without a header", func() string { return "" }, "Authorization header required"),
		Entry("for another scheme", func() string { return "Basic dXNlcjpwYXNz" }, "Bearer token required"),
		Entry("for an expired token", func() string {
			return "Bearer " + signed(jwt.SigningMethodHS256, []byte(secret), &auth.Claims{
				RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
			})
		}, "Token expired"),
		Entry("for a bad signature", func() string {
			token, _, _ := auth.NewTokenManager("other-secret", time.Minute).Issue("user-demo")
			return "Bearer " + token
		}, "Invalid token signature"),
	)

	It("should explain other token failures", func() {
		w := serve("/v1/sales", "Bearer not-a-jwt")

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		var body map[string]string
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body["message"]).To(HavePrefix("Invalid token: "))
	})

	It("should accept a valid token with any casing of the scheme", func() {
		token, _, err := tokens.Issue("user-demo")
		Expect(err).NotTo(HaveOccurred())

		w := serve("/v1/sales", "bearer "+token)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(reached).To(BeTrue())
		Expect(clientID).To(Equal("user-demo"))
	})
})

var _ = Describe("TokenHandler", func() {
	var tokens *auth.TokenManager

	BeforeEach(func() {
		tokens = auth.NewTokenManager(secret, time.Minute)
	})

	It("should issue a bearer token on POST", func() {
		w := httptest.NewRecorder()
		auth.TokenHandler(tokens, "user-demo", discardLogger()).
			ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/token", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		var body struct {
			Token     string `json:"token"`
			ExpiresIn int    `json:"expiresIn"`
			TokenType string `json:"tokenType"`
		}
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body.TokenType).To(Equal("Bearer"))
		Expect(body.ExpiresIn).To(Equal(60))

		claims, err := tokens.Parse(body.Token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.ClientID).To(Equal("user-demo"))
	})

	It("should refuse other methods", func() {
		w := httptest.NewRecorder()
		auth.TokenHandler(tokens, "user-demo", discardLogger()).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/token", nil))

		Expect(w.Code).To(Equal(http.StatusMethodNotAllowed))
		Expect(w.Header().Get("Allow")).To(Equal(http.MethodPost))
	})
})
