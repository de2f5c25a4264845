// Package httpapi maps structured ledger errors onto HTTP responses so
// every handler reports failures the same way.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
)

// Status returns the HTTP status for a ledger error kind.
func Status(kind ledger.Kind) int {
	switch kind {
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindUnauthorized:
		return http.StatusForbidden
	case ledger.KindInvalidAmount, ledger.KindInvalidExpiration:
		return http.StatusBadRequest
	case ledger.KindExpired, ledger.KindAlreadyVerified,
		ledger.KindInsufficientBalance, ledger.KindProjectNotVerified:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a JSON error response. Ledger errors carry their
// kind and offending id so clients can branch without string matching;
// anything else is reported as an internal error.
func Error(c *gin.Context, err error) {
	var ledgerErr *ledger.Error
	if errors.As(err, &ledgerErr) {
		c.JSON(Status(ledgerErr.Kind), gin.H{
			"error": ledgerErr.Message,
			"code":  ledgerErr.Kind,
			"id":    ledgerErr.ID,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// InvalidAmount reports a malformed quantity from the transport layer,
// before it ever reaches the ledger (e.g. a negative JSON number bound
// into a signed field).
func InvalidAmount(c *gin.Context, field string) {
	Error(c, ledger.NewError(ledger.KindInvalidAmount, field, "", field+" must be a positive integer"))
}
