package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"dubber/internal/textutil"
)

// multipartSlack covers form fields and part headers on top of the file limit.
const multipartSlack = 1 << 20

var errUnsupportedContent = errors.New("unsupported content type")

// parseUpload bounds the body and parses the multipart form. It reports
// whether the body exceeded maxBytes.
func parseUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (tooLarge bool, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartSlack)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return true, err
		}
		return false, err
	}
	return false, nil
}

// uploadExt returns the lowercased extension of the client's file name.
func uploadExt(header *multipart.FileHeader) string {
	return strings.ToLower(filepath.Ext(textutil.SanitizeFileName(header.Filename)))
}

// saveUpload writes the part to dir as <prefix>_<16 hex><ext>.
func saveUpload(file multipart.File, header *multipart.FileHeader, dir, prefix string) (string, error) {
	token := make([]byte, 8)
	if _, err := rand.Read(token); err != nil {
		return "", fmt.Errorf("generate upload name: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, prefix+"_"+hex.EncodeToString(token)+uploadExt(header))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(out, file); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload: %w", err)
	}
	return path, nil
}

// sniffMedia checks the saved file's magic bytes for an audio or video type.
func sniffMedia(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") || strings.HasPrefix(m.String(), "audio/") {
			return mtype.String(), nil
		}
	}
	return mtype.String(), fmt.Errorf("%w: %s", errUnsupportedContent, mtype.String())
}
