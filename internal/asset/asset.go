// Package asset locates and loads the bundled overlay graphics.
package asset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"union-bug-placer/internal/logging"
	"union-bug-placer/internal/overlay"
	"union-bug-placer/pkg/geometry"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrAssetUnavailable is returned when an asset file is missing or unreadable.
var ErrAssetUnavailable = errors.New("asset unavailable")

// DirName is the asset directory name next to the executable or in the
// working directory.
const DirName = "assets"

// Asset file names.
const (
	BugDarkFile  = "UnionBug - Small Black.pdf"
	BugLightFile = "UnionBug - Small White.pdf"
	IndiciaFile  = "Indicia.pdf"
)

// Key identifies an asset by overlay kind and variant.
type Key struct {
	Kind    overlay.Kind
	Variant overlay.Variant
}

func (k Key) String() string {
	return k.Kind.String() + "/" + k.Variant.String()
}

// FileName returns the bundled file name for k, or "" when the kind has no
// such variant.
func FileName(k Key) string {
	switch k {
	case Key{overlay.KindBug, overlay.VariantDark}:
		return BugDarkFile
	case Key{overlay.KindBug, overlay.VariantLight}:
		return BugLightFile
	case Key{overlay.KindIndicia, overlay.VariantFixed}:
		return IndiciaFile
	}
	return ""
}

// Keys lists every asset used by the overlay kinds.
func Keys() []Key {
	var keys []Key
	for _, kind := range overlay.Kinds() {
		for _, v := range overlay.SpecFor(kind).Policy.Variants() {
			keys = append(keys, Key{Kind: kind, Variant: v})
		}
	}
	return keys
}

// Asset is a loaded overlay graphic: a one-page PDF and its native size.
type Asset struct {
	Key  Key
	Path string
	Size geometry.Size // points, first page
}

// Load reads the first page size of the asset PDF at path.
func Load(k Key, path string) (*Asset, error) {
	dims, err := api.PageDimsFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", filepath.Base(path), ErrAssetUnavailable, err)
	}
	if len(dims) == 0 || dims[0].Width <= 0 || dims[0].Height <= 0 {
		return nil, fmt.Errorf("%s: %w: no usable page", filepath.Base(path), ErrAssetUnavailable)
	}
	return &Asset{Key: k, Path: path, Size: geometry.NewSize(dims[0].Width, dims[0].Height)}, nil
}

// Store holds the assets loaded at startup. Assets are immutable and shared;
// a failed asset is reported once, on first use.
type Store struct {
	mu       sync.Mutex
	root     string
	assets   map[Key]*Asset
	errs     map[Key]error
	reported map[Key]bool
}

// NewStore loads every asset from root. Missing assets do not fail the
// store; Get reports them.
func NewStore(root string) *Store {
	s := &Store{
		root:     root,
		assets:   make(map[Key]*Asset),
		errs:     make(map[Key]error),
		reported: make(map[Key]bool),
	}
	for _, k := range Keys() {
		a, err := Load(k, filepath.Join(root, FileName(k)))
		if err != nil {
			s.errs[k] = err
			continue
		}
		s.assets[k] = a
	}
	return s
}

// Root returns the directory the store was loaded from.
func (s *Store) Root() string { return s.root }

// Get returns the asset for kind and variant.
func (s *Store) Get(kind overlay.Kind, v overlay.Variant) (*Asset, error) {
	k := Key{Kind: kind, Variant: v}
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.assets[k]; ok {
		return a, nil
	}
	err, ok := s.errs[k]
	if !ok {
		err = fmt.Errorf("%s: %w", k, ErrAssetUnavailable)
	}
	if !s.reported[k] {
		s.reported[k] = true
		logging.Logger().Error("Asset: unavailable", "asset", k.String(), "err", err)
	}
	return nil, err
}

// Missing returns the keys of assets that failed to load.
func (s *Store) Missing() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Key
	for _, k := range Keys() {
		if _, ok := s.errs[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// ResolveRoot returns the asset directory. An explicit dir wins; otherwise
// the directory next to the executable is used when it exists, falling back
// to the working directory.
func ResolveRoot(dir string) string {
	if dir != "" {
		return dir
	}
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		candidate := filepath.Join(filepath.Dir(exe), DirName)
		if fi, err := os.Stat(candidate); err == nil && fi.IsDir() {
			return candidate
		}
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, DirName)
	}
	return DirName
}
