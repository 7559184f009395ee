// Package storage uploads user files to a public object-storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// ErrUploadFailed wraps every transport or service error returned by an Uploader.
var ErrUploadFailed = errors.New("upload failed")

// File is an uploaded file with the metadata needed to store it.
type File interface {
	Filename() string
	ContentType() string
	Open() (io.ReadCloser, error)
}

// Uploader stores a file under a freshly generated key and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, f File) (string, error)
}

type formFile struct {
	fh *multipart.FileHeader
}

// FromFormFile adapts a multipart upload.
func FromFormFile(fh *multipart.FileHeader) File { return formFile{fh: fh} }

func (f formFile) Filename() string { return f.fh.Filename }

func (f formFile) ContentType() string {
	if ct := f.fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (f formFile) Open() (io.ReadCloser, error) { return f.fh.Open() }

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename reduces a client filename to a safe ASCII base name.
func SanitizeFilename(name string) string {
	// drop accents: NFKD then strip non-ASCII
	decomposed := norm.NFKD.String(name)
	var b strings.Builder
	for _, r := range decomposed {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	s := strings.NewReplacer("/", " ", `\`, " ").Replace(b.String())
	s = strings.Join(strings.Fields(s), "_")
	s = unsafeChars.ReplaceAllString(s, "")
	s = strings.Trim(s, "._")
	if s == "" {
		return "file"
	}
	return s
}

// ObjectKey returns "<32 hex chars>_<sanitized filename>".
func ObjectKey(filename string) string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "") + "_" + SanitizeFilename(filename)
}

// S3URL is the virtual-hosted URL for a public S3 object.
func S3URL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// GCSURL builds a public URL for an object (assuming public read access)
func GCSURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}

func uploadErr(err error) error {
	return fmt.Errorf("%w: %v", ErrUploadFailed, err)
}
