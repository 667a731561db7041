package medform

import (
	"net/http"

	"mediband/api/app/respond"
	"mediband/api/internal"
	"mediband/api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// MedformFetch returns the caller's own record.
func MedformFetch(c *gin.Context, d *internal.Deps) {
	rec, err := d.Guard.AuthorizeRead(c.Request.Context(), "", middleware.CurrentUser(c))
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"medRecord": rec})
}

// MedformLookup returns the record of the user in the path. Who may call
// it is decided by the configured lookup policy.
func MedformLookup(c *gin.Context, d *internal.Deps) {
	rec, err := d.Guard.AuthorizeRead(c.Request.Context(), c.Param("userId"), middleware.CurrentUser(c))
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"medRecord": rec})
}
