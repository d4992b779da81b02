package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campuslibrary/internal/auth"
	"campuslibrary/internal/ledger"
)

// statusFor maps an operation error to its HTTP status. Conflicts use the
// caller's status since borrow and attendance report them differently.
func statusFor(err error, conflict int) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument), errors.Is(err, auth.ErrMalformedToken):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrConflict):
		return conflict
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error, conflict int) {
	status := statusFor(err, conflict)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": publicMessage(err)})
}

// publicMessage strips the sentinel prefix so clients see only the detail.
func publicMessage(err error) string {
	var borrowed *ledger.BorrowedError
	if errors.As(err, &borrowed) {
		return borrowed.Error()
	}
	msg := err.Error()
	for _, sentinel := range []error{ledger.ErrInvalidArgument, ledger.ErrConflict, ledger.ErrNotFound} {
		if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
			return rest
		}
	}
	return msg
}
