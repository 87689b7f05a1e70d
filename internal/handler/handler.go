// Package handler holds the request plumbing shared by the HTTP handlers.
package handler

import (
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/middleware"
	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	apperrors "github.com/jwalitptl/vaccine-clinic-api/pkg/errors"
)

// Actor returns the authenticated caller or an Unauthorized error.
func Actor(c *gin.Context) (model.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return model.Actor{}, apperrors.Unauthorized(nil)
	}
	return actor, nil
}

// UUIDParam parses a path parameter as a uuid.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.NewValidation(fmt.Sprintf("invalid %s", name), err)
	}
	return id, nil
}

// BindJSON decodes the body into dst. An empty body leaves dst untouched when
// optional is set.
func BindJSON(c *gin.Context, dst interface{}, optional bool) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	if optional && errors.Is(err, io.EOF) {
		return nil
	}
	return apperrors.NewValidation("invalid request body", err)
}
