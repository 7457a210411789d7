package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apierrors "github.com/stwalsh4118/sitetrack/internal/errors"
	"github.com/stwalsh4118/sitetrack/internal/storage"
)

// openFiles tracks the multipart parts opened while handling one request.
type openFiles []multipart.File

func (o *openFiles) Close() {
	for _, f := range *o {
		_ = f.Close()
	}
	*o = nil
}

func (o *openFiles) open(fh *multipart.FileHeader) (storage.Object, error) {
	f, err := fh.Open()
	if err != nil {
		return storage.Object{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	*o = append(*o, f)

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.ContentTypeFor(fh.Filename)
	}
	return storage.Object{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: contentType,
		Body:        f,
	}, nil
}

// file returns the single part named field, or nil when it was not sent.
func (o *openFiles) file(c *gin.Context, field string) (*storage.Object, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	obj, err := o.open(fh)
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

// files returns every part named field in the order they were sent.
func (o *openFiles) files(c *gin.Context, field string) ([]storage.Object, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	headers := form.File[field]
	objs := make([]storage.Object, 0, len(headers))
	for _, fh := range headers {
		obj, err := o.open(fh)
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// uuidParam parses a path parameter and answers 400 when it is not a UUID.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+name, map[string]interface{}{
			name: c.Param(name),
		})
		return uuid.Nil, false
	}
	return id, true
}

func missingFile(c *gin.Context, field string) {
	apierrors.BadRequest(c, "A file is required", map[string]interface{}{
		field: "This field is required",
	})
}
