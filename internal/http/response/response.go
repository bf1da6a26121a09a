package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/asvo/qmscore-backend/internal/pkg/qmserr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondServiceError maps a coded service error onto the HTTP contract.
// The message surfaced is the operator-facing one, not the wrapped cause.
func RespondServiceError(c *gin.Context, err error) {
	status := qmserr.HTTPStatus(err)
	code := string(qmserr.CodeOf(err))
	if code == "" {
		code = string(qmserr.CodeInternal)
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: qmserr.MessageOf(err),
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
