package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidledger-audit/internal/domain/ledger"
	"github.com/aidledger-audit/internal/domain/shared"
	"github.com/aidledger-audit/internal/domain/shipment"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"Validation", shared.ValidationError{Field: "status", Reason: "unknown"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"InvalidTransition", shipment.ErrInvalidTransition{From: shipment.StatusDelivered, To: shipment.StatusCancelled}, http.StatusBadRequest, "BAD_REQUEST"},
		{"Authorization", shared.AuthorizationError{ActorID: "a", Reason: "elsewhere"}, http.StatusForbidden, "FORBIDDEN"},
		{"NotFound", shipment.ErrShipmentNotFound("AID-404"), http.StatusNotFound, "NOT_FOUND"},
		{"Conflict", shipment.ErrDuplicateBarcode("AID-1"), http.StatusConflict, "CONFLICT"},
		{"LedgerUnavailable", fmt.Errorf("%w: timeout", ledger.ErrUnavailable), http.StatusServiceUnavailable, "LEDGER_UNAVAILABLE"},
		{"Unclassified", errors.New("pq: deadlock detected"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/err", func(c *gin.Context) { RespondError(c, tt.err) })

			w, resp := perform(t, router, http.MethodGet, "/err", nil, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, resp.Error.Message, "deadlock")
			}
		})
	}
}
