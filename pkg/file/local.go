package file

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStorage stores files on the local filesystem under a base
// directory and serves them from a base URL.
type LocalStorage struct {
	baseDir string
	baseURL string
}

// NewLocalStorage creates a filesystem-backed storage rooted at baseDir.
// Stored paths resolve to URLs under baseURL.
func NewLocalStorage(baseDir, baseURL string) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("base directory is required"))
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return &LocalStorage{
		baseDir: abs,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (s *LocalStorage) Save(ctx context.Context, fh *multipart.FileHeader, dir string) (*File, error) {
	if fh == nil {
		return nil, ErrMissingFile
	}

	relPath := path.Join(dir, uniqueName(fh.Filename))
	fullPath, err := s.resolvePath(relPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, errors.Join(ErrSaveFailed, err)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, errors.Join(ErrSaveFailed, err)
	}
	defer src.Close()

	dst, err := os.Create(fullPath)
	if err != nil {
		return nil, errors.Join(ErrSaveFailed, err)
	}
	defer dst.Close()

	size, err := copyWithContext(ctx, dst, src)
	if err != nil {
		os.Remove(fullPath)
		return nil, errors.Join(ErrSaveFailed, err)
	}

	return &File{
		Path:        relPath,
		URL:         s.URL(relPath),
		Size:        size,
		ContentType: contentTypeOf(fh),
	}, nil
}

func (s *LocalStorage) Delete(_ context.Context, relPath string) error {
	fullPath, err := s.resolvePath(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return errors.Join(ErrDeleteFailed, err)
	}
	return nil
}

// URL returns the serving URL for a stored path. Generated names are
// already URL-safe, so segments are joined without escaping.
func (s *LocalStorage) URL(relPath string) string {
	if s.baseURL == "" {
		return "/" + strings.TrimPrefix(relPath, "/")
	}
	return s.baseURL + "/" + strings.TrimPrefix(relPath, "/")
}

// resolvePath joins relPath under the base directory, rejecting anything
// that escapes it.
func (s *LocalStorage) resolvePath(relPath string) (string, error) {
	cleaned := filepath.Clean(filepath.Join(s.baseDir, filepath.FromSlash(relPath)))
	if cleaned != s.baseDir && !strings.HasPrefix(cleaned, s.baseDir+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

// copyWithContext copies src to dst in chunks, aborting when ctx is done.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		n, err := src.Read(buf)
		if n > 0 {
			wn, werr := dst.Write(buf[:n])
			written += int64(wn)
			if werr != nil {
				return written, werr
			}
		}
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}
