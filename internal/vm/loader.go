package vm

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/serpent-lang/serpent/internal/classfile"
)

// ErrNotFound is the cause of a Load failure for a binary name no artifact
// exists for.
var ErrNotFound = errors.New("artifact not found")

// Loader supplies artifacts by binary name.
type Loader interface {
	Load(name string) (*classfile.File, error)
	// HasPackage reports whether any artifact lives below the slash
	// separated path.
	HasPackage(path string) bool
}

// DirLoader reads artifacts from the tree WriteFile produces.
type DirLoader struct {
	Root string
}

func (d DirLoader) Load(name string) (*classfile.File, error) {
	path := filepath.Join(d.Root, filepath.FromSlash(name)+classfile.Ext)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "load %s", name)
		}
		return nil, errors.Wrapf(err, "load %s", name)
	}
	f, err := classfile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if f.Name != name {
		return nil, errors.Errorf("%s holds %s, want %s", path, f.Name, name)
	}
	return f, nil
}

func (d DirLoader) HasPackage(path string) bool {
	info, err := os.Stat(filepath.Join(d.Root, filepath.FromSlash(path)))
	return err == nil && info.IsDir()
}

// MemLoader serves artifacts held in memory, such as a compilation result
// that was never written out.
type MemLoader map[string]*classfile.File

// NewMemLoader indexes files by binary name.
func NewMemLoader(files ...*classfile.File) MemLoader {
	m := make(MemLoader, len(files))
	m.Add(files...)
	return m
}

// Add stores files, replacing artifacts with the same binary name.
func (m MemLoader) Add(files ...*classfile.File) {
	for _, f := range files {
		m[f.Name] = f
	}
}

func (m MemLoader) Load(name string) (*classfile.File, error) {
	if f, ok := m[name]; ok {
		return f, nil
	}
	return nil, errors.Wrapf(ErrNotFound, "load %s", name)
}

func (m MemLoader) HasPackage(path string) bool {
	prefix := path + "/"
	for name := range m {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// chain tries each loader in turn.
type chain []Loader

func (c chain) Load(name string) (*classfile.File, error) {
	for _, l := range c {
		f, err := l.Load(name)
		if err == nil {
			return f, nil
		}
		if errors.Cause(err) != ErrNotFound {
			return nil, err
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "load %s", name)
}

func (c chain) HasPackage(path string) bool {
	for _, l := range c {
		if l.HasPackage(path) {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}
