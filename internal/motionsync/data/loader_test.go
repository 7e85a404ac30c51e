package data

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/motionsync-go/internal/errors"
)

func newTestLoader(t *testing.T) (*Loader, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/models/hiyori/basic.motionsync3.json", readFixture(t, "basic.motionsync3.json"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/models/hiyori/hiyori.model3.json", readFixture(t, "model.model3.json"), 0o644))
	return NewLoader(fs, 0, testLogger(&bytes.Buffer{})), fs
}

func TestLoaderCachesParsedDocuments(t *testing.T) {
	t.Parallel()

	l, fs := newTestLoader(t)

	first, err := l.Load("/models/hiyori/basic.motionsync3.json")
	require.NoError(t, err)
	assert.Equal(t, 1, l.CachedCount())

	// the cached copy is served even after the file goes away
	require.NoError(t, fs.Remove("/models/hiyori/basic.motionsync3.json"))
	second, err := l.Load("/models/hiyori/./basic.motionsync3.json")
	require.NoError(t, err)

	first.Setting(0).CubismParameters[0].ParameterIndex = 7
	assert.Equal(t, 0, second.Setting(0).CubismParameters[0].ParameterIndex, "each load returns its own copy")

	l.Invalidate("/models/hiyori/basic.motionsync3.json")
	_, err = l.Load("/models/hiyori/basic.motionsync3.json")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}

func TestLoaderLoadModelSetting(t *testing.T) {
	t.Parallel()

	l, fs := newTestLoader(t)

	ms, d, err := l.LoadModelSetting("/models/hiyori/hiyori.model3.json")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "basic.motionsync3.json", ms.MotionSyncFile)
	assert.Equal(t, 2, d.SettingCount())

	require.NoError(t, afero.WriteFile(fs, "/models/plain/plain.model3.json",
		[]byte(`{"Version": 3, "FileReferences": {"Moc": "plain.moc3"}}`), 0o644))
	ms, d, err = l.LoadModelSetting("/models/plain/plain.model3.json")
	require.NoError(t, err)
	assert.Empty(t, ms.MotionSyncFile)
	assert.Nil(t, d)

	_, _, err = l.LoadModelSetting("/models/missing.model3.json")
	require.Error(t, err)
}

func TestLoaderExpiresWithoutBackgroundCleanup(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fs := afero.NewMemMapFs()
	path := "/models/basic.motionsync3.json"
	require.NoError(t, afero.WriteFile(fs, path, readFixture(t, "basic.motionsync3.json"), 0o644))
	l := NewLoader(fs, 20*time.Millisecond, testLogger(&bytes.Buffer{}))

	_, err := l.Load(path)
	require.NoError(t, err)
	require.NoError(t, fs.Remove(path))

	_, err = l.Load(path)
	require.NoError(t, err, "served from cache before the ttl")

	time.Sleep(40 * time.Millisecond)
	_, err = l.Load(path)
	require.Error(t, err, "expired entry must not be served")
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
}
