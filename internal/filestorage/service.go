package filestorage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"wws_listings_backend/internal/common"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// AllowedExtensions are the photo extensions accepted for upload, lower case.
var AllowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// Options configures a FileStorageService.
type Options struct {
	StoragePath string // directory on disk, e.g. "./uploads"
	PublicRoute string // URL prefix the directory is served under, e.g. "/uploads"
	MaxFiles    int
	MaxFileSize int64 // bytes
}

// FileStorageService validates and stores uploaded listing photos.
type FileStorageService struct {
	storagePath string
	publicRoute string
	maxFiles    int
	maxFileSize int64
	logger      *zap.Logger
}

// NewFileStorageService creates a new FileStorageService.
func NewFileStorageService(opts Options, logger *zap.Logger) (*FileStorageService, error) {
	if opts.StoragePath == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	if opts.MaxFiles <= 0 || opts.MaxFileSize <= 0 {
		return nil, fmt.Errorf("upload limits must be positive (files=%d, size=%d)", opts.MaxFiles, opts.MaxFileSize)
	}
	// Ensure the base storage path exists
	if err := os.MkdirAll(opts.StoragePath, os.ModePerm); err != nil {
		logger.Error("Failed to create storage path directory", zap.String("path", opts.StoragePath), zap.Error(err))
		return nil, fmt.Errorf("failed to create storage path %s: %w", opts.StoragePath, err)
	}

	route := "/" + strings.Trim(opts.PublicRoute, "/")
	logger.Info("FileStorageService initialized",
		zap.String("storagePath", opts.StoragePath),
		zap.String("publicRoute", route),
	)
	return &FileStorageService{
		storagePath: opts.StoragePath,
		publicRoute: route,
		maxFiles:    opts.MaxFiles,
		maxFileSize: opts.MaxFileSize,
		logger:      logger,
	}, nil
}

// StoragePath returns the directory files are written to.
func (s *FileStorageService) StoragePath() string { return s.storagePath }

// PublicRoute returns the URL prefix of stored files.
func (s *FileStorageService) PublicRoute() string { return s.publicRoute }

// ValidatePhotos checks count, extension and size of every file before anything is written.
func (s *FileStorageService) ValidatePhotos(files []*multipart.FileHeader) error {
	if len(files) > s.maxFiles {
		return common.ErrBadRequest.WithMessage(fmt.Sprintf("Too many files. At most %d photos are allowed.", s.maxFiles))
	}
	for _, fh := range files {
		if fh == nil {
			return common.ErrBadRequest.WithMessage("Empty file upload.")
		}
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if _, ok := AllowedExtensions[ext]; !ok {
			return common.ErrBadRequest.WithMessage("Only image files (jpg, jpeg, png, gif, webp) are allowed!")
		}
		if fh.Size > s.maxFileSize {
			return common.ErrBadRequest.WithMessage(fmt.Sprintf("File %q exceeds the %d MB size limit.", filepath.Base(fh.Filename), s.maxFileSize>>20))
		}
	}
	return nil
}

// SavePhotos validates and stores files in order and returns their public
// references. When any file fails, the files already written are removed.
func (s *FileStorageService) SavePhotos(files []*multipart.FileHeader) ([]string, error) {
	if err := s.ValidatePhotos(files); err != nil {
		return nil, err
	}

	refs := make([]string, 0, len(files))
	for _, fh := range files {
		name, err := s.SaveUploadedFile(fh)
		if err != nil {
			s.DeletePublicRefs(refs)
			return nil, err
		}
		refs = append(refs, s.PublicRef(name))
	}
	return refs, nil
}

// SaveUploadedFile writes a multipart file into the storage path under a
// unique name of the form <slug-of-original-name>-<uuid><ext>, and returns that name.
func (s *FileStorageService) SaveUploadedFile(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader == nil {
		return "", fmt.Errorf("fileHeader cannot be nil")
	}

	src, err := fileHeader.Open()
	if err != nil {
		s.logger.Error("Failed to open uploaded file", zap.Error(err))
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	originalFilename := filepath.Base(fileHeader.Filename)
	extension := strings.ToLower(filepath.Ext(originalFilename))
	base := slug.Make(strings.TrimSuffix(originalFilename, filepath.Ext(originalFilename)))
	if base == "" {
		base = "photo"
	}
	uniqueFilename := base + "-" + uuid.New().String() + extension

	destinationPath := filepath.Join(s.storagePath, uniqueFilename)
	dst, err := os.Create(destinationPath)
	if err != nil {
		s.logger.Error("Failed to create destination file", zap.String("path", destinationPath), zap.Error(err))
		return "", fmt.Errorf("failed to create file %s: %w", destinationPath, err)
	}
	defer dst.Close()

	// One byte past the limit is enough to detect a lying Size header.
	written, err := io.Copy(dst, io.LimitReader(src, s.maxFileSize+1))
	if err == nil && written > s.maxFileSize {
		err = common.ErrBadRequest.WithMessage(fmt.Sprintf("File %q exceeds the %d MB size limit.", originalFilename, s.maxFileSize>>20))
	}
	if err != nil {
		s.logger.Error("Failed to copy uploaded file to destination", zap.String("path", destinationPath), zap.Error(err))
		os.Remove(destinationPath)
		if _, ok := common.IsAPIError(err); ok {
			return "", err
		}
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Info("File saved successfully", zap.String("path", destinationPath))
	return uniqueFilename, nil
}

// PublicRef maps a stored file name to its public reference.
func (s *FileStorageService) PublicRef(name string) string {
	return path.Join(s.publicRoute, name)
}

// DeletePublicRefs removes the files behind public references. Failures are logged.
func (s *FileStorageService) DeletePublicRefs(refs []string) {
	for _, ref := range refs {
		name := strings.TrimPrefix(ref, s.publicRoute+"/")
		if err := s.DeleteFile(name); err != nil {
			s.logger.Warn("Failed to clean up stored photo", zap.String("ref", ref), zap.Error(err))
		}
	}
}

// DeleteFile deletes a file given its name relative to the storage path.
func (s *FileStorageService) DeleteFile(relativePath string) error {
	if relativePath == "" {
		return fmt.Errorf("relative path cannot be empty")
	}

	cleanRelativePath := filepath.Clean(relativePath)
	if strings.Contains(cleanRelativePath, "..") || filepath.IsAbs(cleanRelativePath) {
		s.logger.Warn("Attempt to delete file with path traversal", zap.String("relativePath", relativePath))
		return fmt.Errorf("invalid file path for deletion")
	}

	fullPath := filepath.Join(s.storagePath, cleanRelativePath)

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		s.logger.Warn("Attempt to delete non-existent file", zap.String("path", fullPath))
		return nil
	}

	if err := os.Remove(fullPath); err != nil {
		s.logger.Error("Failed to delete file", zap.String("path", fullPath), zap.Error(err))
		return fmt.Errorf("failed to delete file %s: %w", fullPath, err)
	}

	s.logger.Info("File deleted successfully", zap.String("path", fullPath))
	return nil
}
