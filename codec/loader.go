package codec

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/tickcodec"
	"github.com/wippyai/tickcodec/errors"
	"github.com/wippyai/tickcodec/schema"
)

// LoaderFunc is an adapter to use ordinary functions as type loaders.
type LoaderFunc func(id string) (*schema.RecordClass, error)

// Load implements tickcodec.TypeLoader.
func (f LoaderFunc) Load(id string) (*schema.RecordClass, error) {
	return f(id)
}

// RegistryLoader resolves identifiers against a class set: by GUID first,
// then by class name. Unknown identifiers go to the fallback, if any.
type RegistryLoader struct {
	set      *schema.Set
	fallback tickcodec.TypeLoader
}

func NewRegistryLoader(set *schema.Set, fallback tickcodec.TypeLoader) *RegistryLoader {
	return &RegistryLoader{set: set, fallback: fallback}
}

func (l *RegistryLoader) Load(id string) (*schema.RecordClass, error) {
	if c := l.set.ClassByGUID(id); c != nil {
		return c, nil
	}
	if c := l.set.Class(id); c != nil {
		return c, nil
	}
	if l.fallback != nil {
		return l.fallback.Load(id)
	}
	return nil, errors.Unresolved(id, nil)
}

type loadResult struct {
	class *schema.RecordClass
	err   error
}

// CachingLoader memoizes another loader, so an identifier resolves to the
// same class pointer, or the same failure, for every codec sharing it.
type CachingLoader struct {
	next    tickcodec.TypeLoader
	entries map[string]loadResult
	mu      sync.Mutex
}

func NewCachingLoader(next tickcodec.TypeLoader) *CachingLoader {
	return &CachingLoader{next: next, entries: make(map[string]loadResult)}
}

func (l *CachingLoader) Load(id string) (*schema.RecordClass, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if res, ok := l.entries[id]; ok {
		return res.class, res.err
	}
	class, err := l.next.Load(id)
	l.entries[id] = loadResult{class: class, err: err}
	Logger().Debug("type loaded", zap.String("id", id), zap.Bool("ok", err == nil))
	return class, err
}
