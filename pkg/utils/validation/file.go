package validation

import (
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"
)

var (
	ErrFileSize     = errors.New("file size exceeds limit of 10MB")
	ErrFileType     = errors.New("invalid file type. Allowed types: JPG, PNG, WEBP")
	ErrArchiveSize  = errors.New("archive size exceeds limit of 100MB")
	ErrArchiveType  = errors.New("invalid archive type. Allowed types: ZIP")
	ErrFileRequired = errors.New("no file provided")
)

const (
	MaxImageSize   = 10 * 1024 * 1024  // 10MB
	MaxArchiveSize = 100 * 1024 * 1024 // 100MB
)

var AllowedImageTypes = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

func ValidateImage(file *multipart.FileHeader) error {
	if file == nil {
		return ErrFileRequired
	}

	// Boyut kontrolü
	if file.Size > MaxImageSize {
		return ErrFileSize
	}

	// Tip kontrolü
	ext := filepath.Ext(strings.ToLower(file.Filename))
	if !AllowedImageTypes[ext] {
		return ErrFileType
	}

	return nil
}

// ValidateArchive checks the downloadable template bundle.
func ValidateArchive(file *multipart.FileHeader) error {
	if file == nil {
		return ErrFileRequired
	}

	if file.Size > MaxArchiveSize {
		return ErrArchiveSize
	}

	if filepath.Ext(strings.ToLower(file.Filename)) != ".zip" {
		return ErrArchiveType
	}

	return nil
}
