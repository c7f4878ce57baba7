//go:build !integration

package accountplans

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-user/internal/domain/model"
	"billing-user/internal/infra/security"
)

func TestClient_IsValidTotal(t *testing.T) {
	tokens := security.NewTokenManager("secret", "billing-user")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/jane@example.com/newplan/11/calculate", r.URL.Path)
		assert.Equal(t, "WELCOME", r.URL.Query().Get("promocode"))

		claims, err := tokens.ParseFromRequest(r)
		require.NoError(t, err)
		assert.True(t, claims.IsSuperUser)

		_, _ = w.Write([]byte(`{"total": 13.5, "discountPromocode": 1.5}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, time.Second, tokens, nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		total string
		want  bool
	}{
		{"matching total", "13.50", true},
		{"mismatching total", "15", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			total := decimal.RequireFromString(tc.total)
			ok, err := c.IsValidTotal(context.Background(), "jane@example.com", &model.AgreementRequest{PlanID: 11, Total: &total, Promocode: "WELCOME"})
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestClient_IsValidTotal_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, time.Second, security.NewTokenManager("s", "i"), nil)
	total := decimal.NewFromInt(10)
	ok, err := c.IsValidTotal(context.Background(), "jane@example.com", &model.AgreementRequest{PlanID: 11, Total: &total})
	assert.Error(t, err)
	assert.False(t, ok)
}
