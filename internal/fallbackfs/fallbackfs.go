package fallbackfs

import (
	"errors"
	"io/fs"
)

// FS serves another fs.FS but answers misses with a fixed fallback file.
// Static routes use it so client-side routed apps get their index.html for
// any unknown path.
type FS interface {
	Open(name string) (fs.File, error)
}

type wrapper struct {
	fs       fs.FS
	fallback string
}

func (w wrapper) Open(name string) (fs.File, error) {
	f, err := w.fs.Open(name)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return w.fs.Open(w.fallback)
	}
	return f, err
}

func New(fs fs.FS, fallbackToFile string) FS {
	return wrapper{
		fs:       fs,
		fallback: fallbackToFile,
	}
}
