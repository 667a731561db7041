// Package medform contains the medical record endpoints
package medform

import (
	"fmt"
	"net/http"

	"mediband/api/app/respond"
	"mediband/api/internal"
	"mediband/api/internal/apperr"
	"mediband/api/internal/store"
	"mediband/api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

const prescriptionsField = "prescriptions"

func MedformSubmit(c *gin.Context, d *internal.Deps) {
	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, fmt.Errorf("%w: expected a multipart form, %w", apperr.ErrInvalidInput, err))
		return
	}
	defer form.RemoveAll()

	var in store.RecordInput
	if err := c.ShouldBind(&in); err != nil {
		respond.Error(c, fmt.Errorf("%w: invalid form, %w", apperr.ErrInvalidInput, err))
		return
	}

	rec, err := d.Guard.AuthorizeWrite(c.Request.Context(), middleware.CurrentUser(c), in, form.File[prescriptionsField])
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Medical record saved successfully",
		"medRecord": rec,
	})
}
