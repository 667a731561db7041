// Package upload contains the generic file upload endpoint
package upload

import (
	"fmt"
	"net/http"

	"mediband/api/app/respond"
	"mediband/api/internal"
	"mediband/api/internal/apperr"

	"github.com/gin-gonic/gin"
)

const filesField = "files"

func FileUpload(c *gin.Context, d *internal.Deps) {
	form, err := c.MultipartForm()
	if err != nil {
		respond.Error(c, fmt.Errorf("%w: expected a multipart form, %w", apperr.ErrInvalidInput, err))
		return
	}
	defer form.RemoveAll()

	files := form.File[filesField]
	if len(files) == 0 {
		respond.Error(c, fmt.Errorf("%w: no files provided", apperr.ErrInvalidInput))
		return
	}

	uploaded, err := d.Uploader.UploadAll(c.Request.Context(), files, filesField)
	if err != nil {
		respond.Error(c, err)
		return
	}

	urls := make([]string, len(uploaded))
	for i, a := range uploaded {
		urls[i] = a.URL
	}

	c.JSON(http.StatusOK, gin.H{"urls": urls})
}
