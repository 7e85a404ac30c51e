package data

import (
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"

	"github.com/tphakala/motionsync-go/internal/errors"
	"github.com/tphakala/motionsync-go/internal/logger"
)

// DefaultCacheTTL is how long a parsed document stays cached.
const DefaultCacheTTL = 10 * time.Minute

// Loader reads settings documents from a filesystem and caches parsed results by path.
// Callers always receive their own copy since index resolution mutates a Data.
type Loader struct {
	fs    afero.Fs
	cache *cache.Cache
	log   logger.Logger
}

// NewLoader creates a loader over fs. A ttl of zero uses DefaultCacheTTL.
func NewLoader(fs afero.Fs, ttl time.Duration, log logger.Logger) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = GetLogger()
	}
	return &Loader{
		fs: fs,
		// expired entries are skipped by Get; no janitor goroutine
		cache: cache.New(ttl, cache.NoExpiration),
		log:   log,
	}
}

// Load returns the settings document at path.
func (l *Loader) Load(path string) (*Data, error) {
	key := filepath.Clean(path)
	if cached, ok := l.cache.Get(key); ok {
		l.log.Debug("settings cache hit", logger.String("path", key))
		return cached.(*Data).Clone(), nil
	}

	buf, err := afero.ReadFile(l.fs, key)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentData).
			Category(errors.CategoryFileIO).
			FileContext(key, 0).
			Context("operation", "read-settings").
			Build()
	}

	d, err := Parse(buf, WithLogger(l.log))
	if err != nil {
		return nil, err
	}

	l.cache.SetDefault(key, d)
	l.log.Info("settings loaded",
		logger.String("path", key),
		logger.Int("settings", d.SettingCount()))
	return d.Clone(), nil
}

// LoadModelSetting reads a model setting file and, when it references one, the settings
// document next to it. The returned Data is nil when the model has no motion sync file.
func (l *Loader) LoadModelSetting(path string) (*ModelSetting, *Data, error) {
	buf, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, nil, errors.New(err).
			Component(ComponentData).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Context("operation", "read-model-setting").
			Build()
	}

	ms, err := ParseModelSetting(buf)
	if err != nil {
		return nil, nil, err
	}
	if ms.MotionSyncFile == "" {
		l.log.Warn("model setting has no motion sync file", logger.String("path", path))
		return ms, nil, nil
	}

	d, err := l.Load(filepath.Join(filepath.Dir(path), ms.MotionSyncFile))
	if err != nil {
		return ms, nil, err
	}
	return ms, d, nil
}

// Invalidate drops path from the cache.
func (l *Loader) Invalidate(path string) {
	l.cache.Delete(filepath.Clean(path))
}

// CachedCount returns the number of cached documents.
func (l *Loader) CachedCount() int {
	return l.cache.ItemCount()
}
