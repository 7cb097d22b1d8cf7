package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"sale not found", domainErrors.ErrSaleNotFound, http.StatusNotFound, "sale_not_found"},
		{"offer not found", domainErrors.ErrOfferNotFound, http.StatusNotFound, "offer_not_found"},
		{"not active", domainErrors.ErrSaleNotActive, http.StatusConflict, "sale_not_active"},
		{"stock", &domainErrors.InsufficientStockError{Remaining: 3}, http.StatusConflict, "insufficient_stock"},
		{"quota", &domainErrors.QuotaExceededError{Remaining: 1}, http.StatusConflict, "quota_exceeded"},
		{"contention", domainErrors.ErrContention, http.StatusServiceUnavailable, "try_again"},
		{"wrapped contention", fmt.Errorf("reserve: %w", domainErrors.ErrContention), http.StatusServiceUnavailable, "try_again"},
		{"version", domainErrors.ErrVersionConflict, http.StatusConflict, "version_conflict"},
		{"has reservations", domainErrors.ErrSaleHasReservations, http.StatusConflict, "sale_has_reservations"},
		{"unauthorized", domainErrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", domainErrors.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"validation", domainErrors.NewValidationError("title", "is required"), http.StatusBadRequest, "validation_failed"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := MapDomainError(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestMapDomainErrorCarriesContext(t *testing.T) {
	_, resp := MapDomainError(&domainErrors.InsufficientStockError{Remaining: 3})
	if resp.Remaining == nil || *resp.Remaining != 3 {
		t.Fatalf("remaining = %v, want 3", resp.Remaining)
	}

	v := &domainErrors.ValidationError{}
	v.Add("title", "is required")
	v.Add("offers", "at least one offer is required")
	_, resp = MapDomainError(v)
	if len(resp.Violations) != 2 {
		t.Fatalf("violations = %d, want 2", len(resp.Violations))
	}

	_, resp = MapDomainError(errors.New("secret dsn"))
	if resp.Error != "" {
		t.Errorf("internal error text leaked: %q", resp.Error)
	}
}

func TestWriteDomainErrorSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDomainError(rec, domainErrors.ErrContention, nil)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}

	var body ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != StatusServiceUnavailable {
		t.Errorf("status field = %q", body.Status)
	}
}
