package ginserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxImageSizeBytes int64 = 10 * 1024 * 1024

type imageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// readImageUpload reads the "file" form field and sniffs its content type.
// The returned status tells the caller how to answer on error.
func readImageUpload(c *gin.Context) (imageUpload, int, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return imageUpload{}, http.StatusBadRequest, fmt.Errorf("file is required: %w", err)
	}
	if fileHeader.Size <= 0 {
		return imageUpload{}, http.StatusBadRequest, errors.New("file is empty")
	}
	if fileHeader.Size > maxImageSizeBytes {
		return imageUpload{}, http.StatusRequestEntityTooLarge, fmt.Errorf("file too large (max %d MB)", maxImageSizeBytes/1024/1024)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return imageUpload{}, http.StatusBadRequest, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageSizeBytes+1))
	if err != nil {
		return imageUpload{}, http.StatusInternalServerError, fmt.Errorf("cannot read file: %w", err)
	}
	if len(data) == 0 {
		return imageUpload{}, http.StatusBadRequest, errors.New("file is empty")
	}
	if int64(len(data)) > maxImageSizeBytes {
		return imageUpload{}, http.StatusRequestEntityTooLarge, fmt.Errorf("file too large (max %d MB)", maxImageSizeBytes/1024/1024)
	}
	contentType := http.DetectContentType(data)
	if !isAllowedImageType(contentType) {
		return imageUpload{}, http.StatusUnsupportedMediaType, fmt.Errorf("unsupported content type: %s", contentType)
	}
	return imageUpload{Filename: fileHeader.Filename, ContentType: contentType, Data: data}, 0, nil
}

func isAllowedImageType(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

func extensionForContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

// buildObjectKey returns <prefix>/<owner>/<uuid><ext>.
func buildObjectKey(prefix, owner string, upload imageUpload) string {
	ext := extensionForContentType(upload.ContentType)
	if ext == "" {
		ext = strings.ToLower(path.Ext(upload.Filename))
	}
	if ext == "" {
		ext = ".img"
	}
	return fmt.Sprintf("%s/%s/%s%s", prefix, sanitizePathToken(owner, prefix), uuid.NewString(), ext)
}

func sanitizePathToken(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	result := strings.Trim(b.String(), "-")
	if result == "" {
		return fallback
	}
	return result
}
