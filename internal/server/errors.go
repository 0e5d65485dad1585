package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/tenantdesk/internal/auth/domain"
	paymentdomain "github.com/smallbiznis/tenantdesk/internal/payment/domain"
	"github.com/smallbiznis/tenantdesk/internal/resource"
	settingdomain "github.com/smallbiznis/tenantdesk/internal/setting/domain"
	"github.com/smallbiznis/tenantdesk/internal/summary"
	tenantdomain "github.com/smallbiznis/tenantdesk/internal/tenant/domain"
	"github.com/smallbiznis/tenantdesk/pkg/tenantctx"
	"github.com/smallbiznis/tenantdesk/pkg/validation"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRouteNotFound  = errors.New("route_not_found")
)

type errorBody struct {
	status  int
	message string
	errors  validation.Errors
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		body := mapError(lastErr.Err)
		var rl *authdomain.RateLimitedError
		if errors.As(lastErr.Err, &rl) && rl.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds()+0.5)))
		}
		c.AbortWithStatusJSON(body.status, Response{
			Success: false,
			Result:  nil,
			Message: body.message,
			Errors:  body.errors,
		})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError(message string) error {
	return validation.New("request", "invalid_request", message)
}

func mapError(err error) errorBody {
	if err == nil {
		return errorBody{status: http.StatusInternalServerError, message: "internal server error"}
	}

	if errs, ok := validation.As(err); ok {
		message := "validation error"
		if len(errs) == 1 {
			message = errs[0].Message
		}
		return errorBody{status: http.StatusBadRequest, message: message, errors: errs}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, resource.ErrInvalidID),
		errors.Is(err, summary.ErrUnknownKind):
		return errorBody{status: http.StatusBadRequest, message: "invalid request"}
	case errors.Is(err, authdomain.ErrInvalidResetToken):
		return errorBody{status: http.StatusBadRequest, message: "invalid reset token"}
	case errors.Is(err, authdomain.ErrResetTokenExpired):
		return errorBody{status: http.StatusBadRequest, message: "reset token expired"}
	case errors.Is(err, authdomain.ErrInvalidCredentials):
		return errorBody{status: http.StatusUnauthorized, message: "invalid credentials"}
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrUnauthenticated),
		errors.Is(err, authdomain.ErrInvalidSession):
		return errorBody{status: http.StatusUnauthorized, message: "authentication required"}
	case errors.Is(err, tenantdomain.ErrNotFound),
		errors.Is(err, tenantctx.ErrMissingScope):
		return errorBody{status: http.StatusNotFound, message: "tenant not found"}
	case isNotFoundError(err):
		return errorBody{status: http.StatusNotFound, message: "not found"}
	case errors.Is(err, tenantdomain.ErrConflict),
		errors.Is(err, authdomain.ErrAdminExists):
		return errorBody{status: http.StatusConflict, message: "already exists"}
	case errors.Is(err, authdomain.ErrRateLimited):
		return errorBody{status: http.StatusTooManyRequests, message: "too many attempts, try again later"}
	default:
		return errorBody{status: http.StatusInternalServerError, message: "internal server error"}
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, resource.ErrNotFound),
		errors.Is(err, ErrRouteNotFound),
		errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, settingdomain.ErrNotFound),
		errors.Is(err, authdomain.ErrAdminNotFound),
		errors.Is(err, authdomain.ErrSessionNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog returns the (type, code) pair logged with each failed
// request.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	if errs, ok := validation.As(err); ok {
		code := "validation_failed"
		if len(errs) > 0 {
			code = errs[0].Code
		}
		return "validation_error", code
	}

	body := mapError(err)
	switch {
	case errors.Is(err, paymentdomain.ErrLedgerInconsistent):
		return "internal_error", paymentdomain.ErrLedgerInconsistent.Error()
	case body.status == http.StatusTooManyRequests:
		return "rate_limited", authdomain.ErrRateLimited.Error()
	case body.status == http.StatusUnauthorized:
		return "unauthorized", errorCode(err)
	case body.status == http.StatusNotFound:
		return "not_found", errorCode(err)
	case body.status == http.StatusConflict:
		return "conflict", errorCode(err)
	case body.status == http.StatusBadRequest:
		return "invalid_request", errorCode(err)
	default:
		return "internal_error", "internal_error"
	}
}

func errorCode(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
