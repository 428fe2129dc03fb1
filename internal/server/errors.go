package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/veritext/veritext/internal/actor"
	apikeydomain "github.com/veritext/veritext/internal/apikey/domain"
	authdomain "github.com/veritext/veritext/internal/auth/domain"
	"github.com/veritext/veritext/internal/auth/token"
	"github.com/veritext/veritext/internal/authorization"
	detectionclient "github.com/veritext/veritext/internal/detection/client"
	detectiondomain "github.com/veritext/veritext/internal/detection/domain"
	teamdomain "github.com/veritext/veritext/internal/team/domain"
	"gorm.io/gorm"
)

// Stable machine codes of the public error taxonomy.
const (
	codeInvalidRequest      = "INVALID_REQUEST"
	codeEmailExists         = "EMAIL_EXISTS"
	codeNameExists          = "NAME_EXISTS"
	codeWeakPassword        = "WEAK_PASSWORD"
	codeUserNotFound        = "USER_NOT_FOUND"
	codeInvalidPassword     = "INVALID_PASSWORD"
	codeCredentialRequired  = "CREDENTIAL_REQUIRED"
	codeInvalidCredentials  = "INVALID_CREDENTIALS"
	codeExpiredCredential   = "EXPIRED_CREDENTIAL"
	codeInvalidAPIKey       = "INVALID_API_KEY"
	codeAccountDisabled     = "ACCOUNT_DISABLED"
	codeInsufficientRole    = "INSUFFICIENT_ROLE"
	codeInvalidRole         = "INVALID_ROLE"
	codeQuotaExceeded       = "QUOTA_EXCEEDED"
	codeEmptyText           = "EMPTY_TEXT"
	codeEmptyTitle          = "EMPTY_TITLE"
	codeDetectBackendError  = "DETECT_BACKEND_ERROR"
	codeNotFound            = "NOT_FOUND"
	codeTeamExists          = "TEAM_EXISTS"
	codeAlreadyOwner        = "ALREADY_OWNER"
	codeAlreadyMember       = "ALREADY_MEMBER"
	codeCannotRemoveOwner   = "CANNOT_REMOVE_OWNER"
	codeInternalError       = "INTERNAL_ERROR"
)

type errorPayload struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Extras  map[string]any `json:"-"`
}

type errorResponse struct {
	Error map[string]any `json:"error"`
}

func (p errorPayload) body() errorResponse {
	e := map[string]any{
		"code":    p.Code,
		"message": p.Message,
	}
	for k, v := range p.Extras {
		e[k] = v
	}
	return errorResponse{Error: e}
}

// ErrorHandlingMiddleware converts errors recorded on the gin context into
// the JSON error envelope. Handlers that already wrote a body win.
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

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, payload.body())
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

type invalidRequest struct{ msg string }

func (e *invalidRequest) Error() string { return e.msg }

func invalidRequestError(err error) error {
	msg := "invalid request"
	if err != nil {
		msg = err.Error()
	}
	return &invalidRequest{msg: msg}
}

func mapError(err error) (int, errorPayload) {
	var badReq *invalidRequest
	if errors.As(err, &badReq) {
		return http.StatusBadRequest, errorPayload{Code: codeInvalidRequest, Message: badReq.msg}
	}

	var quotaErr *detectiondomain.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return http.StatusTooManyRequests, errorPayload{
			Code:    codeQuotaExceeded,
			Message: "daily character quota exceeded",
			Extras: map[string]any{
				"limit":     quotaErr.Limit,
				"used":      quotaErr.Used,
				"remaining": quotaErr.Remaining,
			},
		}
	}

	switch {
	case errors.Is(err, authdomain.ErrEmailExists):
		return http.StatusConflict, errorPayload{Code: codeEmailExists, Message: "email already registered"}
	case errors.Is(err, authdomain.ErrNameExists):
		return http.StatusConflict, errorPayload{Code: codeNameExists, Message: "name already taken"}
	case errors.Is(err, authdomain.ErrWeakPassword):
		return http.StatusBadRequest, errorPayload{Code: codeWeakPassword, Message: "password does not meet requirements"}
	case errors.Is(err, authdomain.ErrUserNotFound):
		return http.StatusUnauthorized, errorPayload{Code: codeUserNotFound, Message: "account not found"}
	case errors.Is(err, authdomain.ErrInvalidInput):
		return http.StatusBadRequest, errorPayload{Code: codeInvalidRequest, Message: "invalid registration input"}
	case errors.Is(err, authdomain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorPayload{Code: codeInvalidPassword, Message: "invalid password"}
	// Login against a disabled account is told so; a disabled account
	// behind a resolved credential is treated as an invalid credential.
	case errors.Is(err, authdomain.ErrUserInactive):
		return http.StatusForbidden, errorPayload{Code: codeAccountDisabled, Message: "account is disabled"}

	case errors.Is(err, actor.ErrCredentialRequired):
		return http.StatusUnauthorized, errorPayload{Code: codeCredentialRequired, Message: "credential required"}
	case errors.Is(err, token.ErrExpiredCredential):
		return http.StatusUnauthorized, errorPayload{Code: codeExpiredCredential, Message: "credential expired"}
	case errors.Is(err, token.ErrMalformedCredential),
		errors.Is(err, actor.ErrInvalidCredentials),
		errors.Is(err, actor.ErrAccountDisabled):
		return http.StatusUnauthorized, errorPayload{Code: codeInvalidCredentials, Message: "invalid credentials"}
	case errors.Is(err, actor.ErrInvalidAPIKey):
		return http.StatusUnauthorized, errorPayload{Code: codeInvalidAPIKey, Message: "invalid api key"}

	case errors.Is(err, authorization.ErrInsufficientRole):
		return http.StatusForbidden, errorPayload{Code: codeInsufficientRole, Message: "insufficient role"}
	case errors.Is(err, authorization.ErrInvalidRole):
		return http.StatusForbidden, errorPayload{Code: codeInvalidRole, Message: "unknown role"}

	case errors.Is(err, detectiondomain.ErrEmptyText):
		return http.StatusUnprocessableEntity, errorPayload{Code: codeEmptyText, Message: "text is required"}
	case errors.Is(err, detectiondomain.ErrEmptyTitle):
		return http.StatusUnprocessableEntity, errorPayload{Code: codeEmptyTitle, Message: "title is required"}
	case errors.Is(err, detectionclient.ErrUpstream):
		return http.StatusBadGateway, errorPayload{Code: codeDetectBackendError, Message: "detection backend unavailable"}

	case errors.Is(err, apikeydomain.ErrInvalidName):
		return http.StatusBadRequest, errorPayload{Code: codeInvalidRequest, Message: "key name is required"}

	case errors.Is(err, teamdomain.ErrInvalidName):
		return http.StatusBadRequest, errorPayload{Code: codeInvalidRequest, Message: "team name is required"}
	case errors.Is(err, teamdomain.ErrTeamExists):
		return http.StatusConflict, errorPayload{Code: codeTeamExists, Message: "team name already taken"}
	case errors.Is(err, teamdomain.ErrAlreadyOwner):
		return http.StatusConflict, errorPayload{Code: codeAlreadyOwner, Message: "account already owns a team"}
	case errors.Is(err, teamdomain.ErrAlreadyMember):
		return http.StatusConflict, errorPayload{Code: codeAlreadyMember, Message: "account is already a member"}
	case errors.Is(err, teamdomain.ErrCannotDropOwner):
		return http.StatusConflict, errorPayload{Code: codeCannotRemoveOwner, Message: "owner cannot be removed"}

	case errors.Is(err, detectiondomain.ErrNotFound),
		errors.Is(err, apikeydomain.ErrNotFound),
		errors.Is(err, teamdomain.ErrTeamNotFound),
		errors.Is(err, teamdomain.ErrMemberNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{Code: codeNotFound, Message: "not found"}

	default:
		return http.StatusInternalServerError, errorPayload{Code: codeInternalError, Message: "internal server error"}
	}
}

// classifyErrorForLog feeds the request logger a compact (type, code) pair
// without leaking internals into the access log.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", payload.Code
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "auth", payload.Code
	default:
		return "client", payload.Code
	}
}
