package asset

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"union-bug-placer/internal/logging"
	"union-bug-placer/internal/overlay"
	"union-bug-placer/internal/pdftest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLoadsAssetSizes(t *testing.T) {
	dir := t.TempDir()
	pdftest.WriteAssets(t, dir, 60, 30, BugDarkFile, BugLightFile, IndiciaFile)

	s := NewStore(dir)
	assert.Empty(t, s.Missing())

	a, err := s.Get(overlay.KindBug, overlay.VariantLight)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, BugLightFile), a.Path)
	assert.InDelta(t, 60, a.Size.Width, 1e-9)
	assert.InDelta(t, 30, a.Size.Height, 1e-9)
	assert.InDelta(t, 0.5, a.Size.Aspect(), 1e-9)
}

func TestMissingAssetReportedOnce(t *testing.T) {
	h := logging.NewBufferedLogHandler(nil)
	logging.SetLogger(slog.New(h))
	t.Cleanup(func() { logging.SetLogger(nil) })

	dir := t.TempDir()
	pdftest.WriteAssets(t, dir, 60, 30, BugDarkFile)

	s := NewStore(dir)
	assert.Len(t, s.Missing(), 2)

	for i := 0; i < 3; i++ {
		_, err := s.Get(overlay.KindBug, overlay.VariantLight)
		assert.ErrorIs(t, err, ErrAssetUnavailable)
	}
	assert.Equal(t, 1, h.Count("Asset: unavailable"))

	_, err := s.Get(overlay.KindBug, overlay.VariantDark)
	assert.NoError(t, err)
}

func TestUnreadableAsset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, IndiciaFile)
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	_, err := Load(Key{overlay.KindIndicia, overlay.VariantFixed}, path)
	assert.ErrorIs(t, err, ErrAssetUnavailable)
}

func TestKeysCoverEveryPolicyVariant(t *testing.T) {
	keys := Keys()
	assert.Len(t, keys, 3)
	for _, k := range keys {
		assert.NotEmpty(t, FileName(k), k.String())
	}
	assert.Empty(t, FileName(Key{overlay.KindIndicia, overlay.VariantLight}))
}

func TestResolveRootPrefersExplicitDir(t *testing.T) {
	assert.Equal(t, "/opt/bug/assets", ResolveRoot("/opt/bug/assets"))
	assert.Equal(t, DirName, filepath.Base(ResolveRoot("")))
}
