package output

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/xid"
	"github.com/spf13/afero"
)

// Staging hands out uniquely named scratch files under one directory.
type Staging struct {
	fs afero.Fs
}

// NewStaging roots a staging area at dir, creating it if needed. An empty
// dir uses the system temp directory.
func NewStaging(dir string) (*Staging, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	osfs := afero.NewOsFs()
	if err := osfs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir %s: %w", dir, err)
	}
	return &Staging{fs: afero.NewBasePathFs(osfs, dir)}, nil
}

// NewFile reserves a new empty file with the given extension (".tif").
// Callers must Free it.
func (s *Staging) NewFile(ext string) (*StagedFile, error) {
	name := "/" + xid.New().String() + ext
	f, err := s.fs.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("reserve staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(name)
		return nil, fmt.Errorf("reserve staging file: %w", err)
	}
	return &StagedFile{fs: s.fs, name: name}, nil
}

// StagedFile is a scratch file that is removed by Free.
type StagedFile struct {
	sync.Mutex
	fs    afero.Fs
	name  string
	freed bool
}

// Path returns the file's location on the real filesystem.
func (f *StagedFile) Path() string {
	if bp, ok := f.fs.(*afero.BasePathFs); ok {
		if p, err := bp.RealPath(f.name); err == nil {
			return p
		}
	}
	return f.name
}

// Create truncates the file and opens it for writing.
func (f *StagedFile) Create() (afero.File, error) {
	return f.fs.Create(f.name)
}

// Free removes the file. It is safe to call more than once.
func (f *StagedFile) Free() error {
	f.Lock()
	defer f.Unlock()

	if f.freed {
		return nil
	}
	if err := f.fs.Remove(f.name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	f.freed = true
	return nil
}

// Size returns the current file size in bytes.
func (f *StagedFile) Size() (int64, error) {
	st, err := f.fs.Stat(f.name)
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

// Exists reports whether the file is still on disk.
func (f *StagedFile) Exists() bool {
	ok, _ := afero.Exists(f.fs, f.name)
	return ok
}
