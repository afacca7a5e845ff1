package storage

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrInvalidMimeType = errors.New("file type not allowed")
	ErrEmptyFile       = errors.New("file is empty")
)

// MaxCoverSize is the upload limit for cover images (10 MB)
const MaxCoverSize int64 = 10 * 1024 * 1024

// allowed cover types; detection is by magic bytes, not file extension
var allowedCoverTypes = []string{"image/jpeg", "image/png"}

// ValidateCover reads a cover upload fully, enforcing the size limit and
// sniffing the real content type. Returns the raw bytes and detected type.
func ValidateCover(reader io.Reader) ([]byte, string, error) {
	// Limit to maxSize + 1 so oversized files are detectable
	limitedReader := io.LimitReader(reader, MaxCoverSize+1)
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		return nil, "", ErrEmptyFile
	}
	if int64(len(data)) > MaxCoverSize {
		return nil, "", ErrFileTooLarge
	}

	mimeType := http.DetectContentType(data)
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}

	for _, t := range allowedCoverTypes {
		if t == mimeType {
			return data, mimeType, nil
		}
	}
	return nil, "", ErrInvalidMimeType
}
