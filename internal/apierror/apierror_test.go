package apierror_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-gateway/internal/apierror"
)

var _ = Describe("Error", func() {
	It("should write the breaker rejection body", func() {
		w := httptest.NewRecorder()
		apierror.ErrServiceUnavailable.WriteJSON(w)

		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))
		Expect(w.Body.String()).To(MatchJSON(`{"error":"Service temporarily unavailable"}`))
	})

	It("should write unauthorized errors under the message key", func() {
		w := httptest.NewRecorder()
		apierror.Unauthorized("Token expired").WriteJSON(w)

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(w.Body.String()).To(MatchJSON(`{"message":"Token expired"}`))
	})

	It("should implement error", func() {
		var err error = apierror.ErrBadGateway
		Expect(err.Error()).To(Equal("502 Bad Gateway"))
	})
})
