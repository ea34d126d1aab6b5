package filestorage

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wws_listings_backend/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupFileStorageService(t *testing.T, maxFiles int, maxSize int64) *FileStorageService {
	t.Helper()
	fsService, err := NewFileStorageService(Options{
		StoragePath: t.TempDir(),
		PublicRoute: "/uploads",
		MaxFiles:    maxFiles,
		MaxFileSize: maxSize,
	}, zap.NewNop())
	require.NoError(t, err, "Failed to create FileStorageService")
	require.NotNil(t, fsService)
	return fsService
}

// newTestFileHeader builds a multipart.FileHeader the way gin would after parsing a request.
func newTestFileHeader(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photos"; filename="%s"`, filename))
	partHeader.Set("Content-Type", "application/octet-stream")

	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = io.Copy(part, strings.NewReader(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	require.NoError(t, err)

	files := form.File["photos"]
	require.Len(t, files, 1)
	return files[0]
}

func TestFileStorageService_SaveUploadedFile_Success(t *testing.T) {
	fsService := setupFileStorageService(t, 10, 1<<20)

	fh := newTestFileHeader(t, "Mijn Woonkamer.JPG", "This is a test image file.")
	name, err := fsService.SaveUploadedFile(fh)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "mijn-woonkamer-"), "name should start with the slug of the original name: %s", name)
	assert.True(t, strings.HasSuffix(name, ".jpg"), "extension should be lower-cased: %s", name)

	fileContent, err := os.ReadFile(filepath.Join(fsService.StoragePath(), name))
	require.NoError(t, err)
	assert.Equal(t, "This is a test image file.", string(fileContent))
}

func TestFileStorageService_SaveUploadedFile_NilHeader(t *testing.T) {
	fsService := setupFileStorageService(t, 10, 1<<20)

	_, err := fsService.SaveUploadedFile(nil)
	assert.EqualError(t, err, "fileHeader cannot be nil")
}

func TestFileStorageService_SavePhotos_KeepsOrder(t *testing.T) {
	fsService := setupFileStorageService(t, 10, 1<<20)

	files := []*multipart.FileHeader{
		newTestFileHeader(t, "first.png", "1"),
		newTestFileHeader(t, "second.webp", "2"),
		newTestFileHeader(t, "third.gif", "3"),
	}
	refs, err := fsService.SavePhotos(files)
	require.NoError(t, err)
	require.Len(t, refs, 3)

	for i, prefix := range []string{"/uploads/first-", "/uploads/second-", "/uploads/third-"} {
		assert.True(t, strings.HasPrefix(refs[i], prefix), "ref %d = %s", i, refs[i])
	}
	entries, err := os.ReadDir(fsService.StoragePath())
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestFileStorageService_ValidatePhotos_Rejects(t *testing.T) {
	fsService := setupFileStorageService(t, 2, 8)

	tests := []struct {
		name    string
		files   []*multipart.FileHeader
		message string
	}{
		{
			name:    "unsupported extension",
			files:   []*multipart.FileHeader{newTestFileHeader(t, "notes.txt", "x")},
			message: "Only image files",
		},
		{
			name:    "missing extension",
			files:   []*multipart.FileHeader{newTestFileHeader(t, "image", "x")},
			message: "Only image files",
		},
		{
			name:    "too large",
			files:   []*multipart.FileHeader{newTestFileHeader(t, "big.png", "123456789")},
			message: "size limit",
		},
		{
			name: "too many files",
			files: []*multipart.FileHeader{
				newTestFileHeader(t, "a.png", "a"),
				newTestFileHeader(t, "b.png", "b"),
				newTestFileHeader(t, "c.png", "c"),
			},
			message: "Too many files",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs, err := fsService.SavePhotos(tt.files)
			require.Error(t, err)
			assert.Nil(t, refs)

			apiErr, ok := common.IsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Contains(t, apiErr.Message, tt.message)

			entries, err := os.ReadDir(fsService.StoragePath())
			require.NoError(t, err)
			assert.Empty(t, entries, "nothing should be written when validation fails")
		})
	}
}

func TestFileStorageService_DeletePublicRefs(t *testing.T) {
	fsService := setupFileStorageService(t, 10, 1<<20)

	refs, err := fsService.SavePhotos([]*multipart.FileHeader{
		newTestFileHeader(t, "a.jpeg", "a"),
		newTestFileHeader(t, "b.jpeg", "b"),
	})
	require.NoError(t, err)

	fsService.DeletePublicRefs(refs)

	entries, err := os.ReadDir(fsService.StoragePath())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStorageService_DeleteFile_NonExistent(t *testing.T) {
	fsService := setupFileStorageService(t, 10, 1<<20)

	assert.NoError(t, fsService.DeleteFile("non_existent_file.jpg"))
}

func TestFileStorageService_DeleteFile_PathTraversal(t *testing.T) {
	fsService := setupFileStorageService(t, 10, 1<<20)

	outside := filepath.Join(filepath.Dir(fsService.StoragePath()), "dummy_outside.txt")
	require.NoError(t, os.WriteFile(outside, []byte("dummy"), 0o644))
	defer os.Remove(outside)

	err := fsService.DeleteFile("../dummy_outside.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid file path for deletion")

	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr, "external file should still exist")
}

func TestNewFileStorageService_RejectsBadOptions(t *testing.T) {
	_, err := NewFileStorageService(Options{}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewFileStorageService(Options{StoragePath: t.TempDir(), MaxFiles: 0, MaxFileSize: 1}, zap.NewNop())
	assert.Error(t, err)
}
