package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
)

// openImagePart pulls the optional "image" part out of a multipart
// form. A request without one is fine; a malformed upload is a 400.
// The third return value is false once a response has been written.
func openImagePart(c *gin.Context) (multipart.File, string, bool) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, "", true
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image upload"})
		return nil, "", false
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return nil, "", false
	}

	return f, fh.Filename, true
}

// readerOrNil keeps a nil file from turning into a non-nil io.Reader.
func readerOrNil(f multipart.File) io.Reader {
	if f == nil {
		return nil
	}
	return f
}
