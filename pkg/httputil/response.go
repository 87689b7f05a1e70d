package httputil

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/vaccine-clinic-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error carries the machine readable part of a failure.
type Error struct {
	Code   string `json:"code"`
	Guard  string `json:"guard,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Pagination represents pagination metadata
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Count    int `json:"count"`
}

// PaginatedResponse wraps paginated data
type PaginatedResponse struct {
	Items      interface{} `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError maps err onto a status code. Errors outside the
// application taxonomy are attached to the context for logging and reported
// as a bare 500.
func RespondWithError(c *gin.Context, err error) {
	writeError(c, err, nil)
}

// RespondWithPartial reports err together with the work that completed
// before it, so callers can retry only what failed. A cancelled or expired
// request context is reported as a 504.
func RespondWithPartial(c *gin.Context, err error, data interface{}) {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		_ = c.Error(err)
		c.JSON(http.StatusGatewayTimeout, Response{
			Status:  "error",
			Message: err.Error(),
			Data:    data,
			Error:   &Error{Code: "timeout"},
		})
		return
	}
	writeError(c, err, data)
}

func writeError(c *gin.Context, err error, data interface{}) {
	appErr, ok := errors.As(err)
	if !ok {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, Response{
			Status:  "error",
			Message: "internal server error",
			Data:    data,
			Error:   &Error{Code: errors.ErrInternal.String()},
		})
		return
	}

	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, Response{
		Status:  "error",
		Message: appErr.Error(),
		Data:    data,
		Error: &Error{
			Code:   appErr.Code.String(),
			Guard:  appErr.Guard,
			Reason: appErr.Reason,
		},
	})
}

// RespondWithPagination sends a paginated response
func RespondWithPagination(c *gin.Context, items interface{}, page, pageSize, count int) {
	c.JSON(http.StatusOK, Response{
		Status: "success",
		Data: PaginatedResponse{
			Items: items,
			Pagination: Pagination{
				Page:     page,
				PageSize: pageSize,
				Count:    count,
			},
		},
	})
}
