package problem

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Details is an RFC-7807-style problem body. type carries a stable URN, code a
// machine-readable constant; instance echoes the request path.
type Details struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Code     string            `json:"code"`
	Instance string            `json:"instance"`
	Errors   map[string]string `json:"errors,omitempty"`
}

const (
	TypeUnauthorized    = "urn:problem-type:unauthorized"
	TypeForbidden       = "urn:problem-type:forbidden"
	TypeNotFound        = "urn:problem-type:not-found"
	TypeValidationError = "urn:problem-type:validation-error"
	TypeConflict        = "urn:problem-type:conflict"
	TypeTooManyRequests = "urn:problem-type:too-many-requests"
	TypeInternal        = "urn:problem-type:internal"
)

const (
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeValidationError = "VALIDATION_ERROR"
	CodeConflict        = "CONFLICT"
	CodeTooManyRequests = "TOO_MANY_REQUESTS"
	CodeInternal        = "INTERNAL"
)

const (
	TitleUnauthorized    = "인증이 필요합니다"
	TitleForbidden       = "접근 권한이 없습니다"
	TitleNotFound        = "리소스를 찾을 수 없습니다"
	TitleValidationError = "입력값 검증에 실패했습니다"
	TitleConflict        = "리소스 충돌이 발생했습니다"
	TitleTooManyRequests = "요청이 너무 많습니다"
	TitleInternal        = "서버 오류가 발생했습니다"
)

func build(c *gin.Context, typ, title string, status int, code string) Details {
	return Details{
		Type:     typ,
		Title:    title,
		Status:   status,
		Code:     code,
		Instance: c.Request.URL.Path,
	}
}

func Unauthorized(c *gin.Context) Details {
	return build(c, TypeUnauthorized, TitleUnauthorized, http.StatusUnauthorized, CodeUnauthorized)
}

func Forbidden(c *gin.Context) Details {
	return build(c, TypeForbidden, TitleForbidden, http.StatusForbidden, CodeForbidden)
}

func NotFound(c *gin.Context) Details {
	return build(c, TypeNotFound, TitleNotFound, http.StatusNotFound, CodeNotFound)
}

func Validation(c *gin.Context, errs map[string]string) Details {
	d := build(c, TypeValidationError, TitleValidationError, http.StatusBadRequest, CodeValidationError)
	d.Errors = errs
	return d
}

func Conflict(c *gin.Context) Details {
	return build(c, TypeConflict, TitleConflict, http.StatusConflict, CodeConflict)
}

func TooManyRequests(c *gin.Context) Details {
	return build(c, TypeTooManyRequests, TitleTooManyRequests, http.StatusTooManyRequests, CodeTooManyRequests)
}

func Internal(c *gin.Context) Details {
	return build(c, TypeInternal, TitleInternal, http.StatusInternalServerError, CodeInternal)
}

// Write renders the problem body with its own status code.
func Write(c *gin.Context, d Details) {
	c.JSON(d.Status, d)
}

// Abort renders the problem and stops the handler chain. Meant for middleware.
func Abort(c *gin.Context, d Details) {
	c.AbortWithStatusJSON(d.Status, d)
}
