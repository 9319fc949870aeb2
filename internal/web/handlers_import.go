package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/staffdesk/internal/core"
	"github.com/JonMunkholm/staffdesk/internal/core/tables"
	"github.com/JonMunkholm/staffdesk/internal/logging"
)

// uploadSubdir keeps uploaded files out of the watched drop folder.
const uploadSubdir = "uploads"

// multipartOverhead allows for form boundaries around the file part.
const multipartOverhead = 1 << 20

// handleImport saves an uploaded CSV under a random name and imports it in
// one commit. The response carries the number of imported rows; a file that
// yields no rows is rejected.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := withRequestMetadata(r)

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(w, r, fmt.Errorf("%w: limit %d bytes", core.ErrFileTooLarge, maxSize))
			return
		}
		respondError(w, r, errNoFile)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, errNoFile)
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		respondError(w, r, fmt.Errorf("%w: %s", errInvalidFileType, header.Filename))
		return
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	path, err := s.saveUpload(file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	log := logging.FromContext(ctx)
	log.Info("upload saved", "file", header.Filename, "path", path, "size", header.Size)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Import.Timeout)
	defer cancel()

	importer := core.NewImporter(s.store, tables.Employees())
	count, err := importer.ImportFile(ctx, path, s.cfg.Import.Options())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if count == 0 {
		respondError(w, r, fmt.Errorf("%w: %s", errNothingImported, header.Filename))
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"file":     header.Filename,
		"imported": count,
	})
}

// saveUpload copies src into the upload directory under a uuid name.
func (s *Server) saveUpload(src io.Reader) (string, error) {
	dir := filepath.Join(s.cfg.Import.Dir, uploadSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(dir, uuid.New().String()+".csv")
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}
