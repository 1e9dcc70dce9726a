package chi

import (
	"context"
	"fmt"
	"net/http"
	"os"
)

// StaticAssets serves files from a local directory without directory listings.
type StaticAssets struct {
	dir string
}

// NewStaticAssets creates a file server rooted at dir.
func NewStaticAssets(dir string) *StaticAssets {
	return &StaticAssets{dir: dir}
}

// Handler returns a handler serving files below prefix.
func (a *StaticAssets) Handler(prefix string) http.Handler {
	return http.StripPrefix(prefix, http.FileServer(filesOnly{http.Dir(a.dir)}))
}

// HealthCheck reports whether the asset directory exists.
func (a *StaticAssets) HealthCheck(_ context.Context) error {
	info, err := os.Stat(a.dir)
	if err != nil {
		return fmt.Errorf("stat assets: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("assets %s is not a directory", a.dir)
	}
	return nil
}

// filesOnly hides directories so the file server answers 404 instead of a listing.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err //nolint:wrapcheck // http.FileServer maps fs errors to status codes
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err //nolint:wrapcheck // see above
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
