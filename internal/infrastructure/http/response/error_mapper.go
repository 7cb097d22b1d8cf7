package response

import (
	"errors"
	"net/http"
	"strconv"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

// ContentionRetryAfter is the Retry-After hint sent with contention responses.
const ContentionRetryAfter = 1

type ErrorMapping struct {
	HTTPStatus int
	Status     Status
	Code       string
	Message    string
}

// Checked in order; the first sentinel the error matches wins.
var errorMappings = []struct {
	err     error
	mapping ErrorMapping
}{
	{domainErrors.ErrValidation, ErrorMapping{http.StatusBadRequest, StatusValidationError, "validation_failed", "Validation failed"}},
	{domainErrors.ErrSaleNotFound, ErrorMapping{http.StatusNotFound, StatusNotFound, "sale_not_found", "Sale not found"}},
	{domainErrors.ErrOfferNotFound, ErrorMapping{http.StatusNotFound, StatusNotFound, "offer_not_found", "Offer not found"}},
	{domainErrors.ErrProductNotFound, ErrorMapping{http.StatusNotFound, StatusNotFound, "product_not_found", "Product not found"}},
	{domainErrors.ErrSaleNotActive, ErrorMapping{http.StatusConflict, StatusConflict, "sale_not_active", "Sale is not active"}},
	{domainErrors.ErrInsufficientStock, ErrorMapping{http.StatusConflict, StatusConflict, "insufficient_stock", "Not enough stock left"}},
	{domainErrors.ErrQuotaExceeded, ErrorMapping{http.StatusConflict, StatusConflict, "quota_exceeded", "Purchase would exceed the per-buyer limit"}},
	{domainErrors.ErrContention, ErrorMapping{http.StatusServiceUnavailable, StatusServiceUnavailable, "try_again", "Offer is busy, try again"}},
	{domainErrors.ErrVersionConflict, ErrorMapping{http.StatusConflict, StatusConflict, "version_conflict", "Sale was modified concurrently"}},
	{domainErrors.ErrSaleHasReservations, ErrorMapping{http.StatusConflict, StatusConflict, "sale_has_reservations", "Sale has committed reservations; use force to soft-delete"}},
	{domainErrors.ErrUnauthorized, ErrorMapping{http.StatusUnauthorized, StatusUnauthorized, "unauthorized", "Authentication required"}},
	{domainErrors.ErrForbidden, ErrorMapping{http.StatusForbidden, StatusForbidden, "forbidden", "Admin role required"}},
}

func MapDomainError(err error) (int, *ErrorResponse) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		resp := Error(m.mapping.Status, m.mapping.Code, m.mapping.Message, err.Error())

		var stock *domainErrors.InsufficientStockError
		var quota *domainErrors.QuotaExceededError
		var validation *domainErrors.ValidationError
		switch {
		case errors.As(err, &stock):
			remaining := stock.Remaining
			resp.Remaining = &remaining
		case errors.As(err, &quota):
			remaining := quota.Remaining
			resp.Remaining = &remaining
		case errors.As(err, &validation):
			for _, v := range validation.Violations {
				resp.Violations = append(resp.Violations, FieldViolation{Field: v.Field, Message: v.Message})
			}
		}
		return m.mapping.HTTPStatus, resp
	}

	return http.StatusInternalServerError, Error(StatusInternalError, "internal_error", "Internal server error")
}

// WriteDomainError maps err to a status and body. Unmapped errors are logged
// and answered with 500 without leaking their text.
func WriteDomainError(w http.ResponseWriter, err error, log *logger.Logger) {
	statusCode, errorResponse := MapDomainError(err)
	if statusCode == http.StatusInternalServerError && log != nil {
		log.Error("Unhandled error", "error", err.Error())
	}
	if errors.Is(err, domainErrors.ErrContention) {
		w.Header().Set("Retry-After", strconv.Itoa(ContentionRetryAfter))
	}
	WriteJSON(w, statusCode, errorResponse)
}
