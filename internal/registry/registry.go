// Package registry tracks the buffered streams a process has open, keyed by name.
package registry

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/bsrc/pkg/stream"
)

var (
	ErrDuplicate = errors.New("stream already registered")
	ErrNotFound  = errors.New("stream not found")
)

// Registry is a concurrent name -> stream map. Removing a stream closes it.
type Registry struct {
	streams *hashmap.Map[string, *stream.BufferedSource]
	logger  *logrus.Logger
}

// New creates an empty registry. A nil logger discards output.
func New(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Registry{
		streams: hashmap.New[string, *stream.BufferedSource](),
		logger:  logger,
	}
}

// Add registers src under its name.
func (r *Registry) Add(src *stream.BufferedSource) error {
	if src == nil {
		return fmt.Errorf("stream cannot be nil")
	}
	if !r.streams.Insert(src.Name(), src) {
		return fmt.Errorf("%w: %s", ErrDuplicate, src.Name())
	}
	r.logger.WithFields(logrus.Fields{
		"stream":   src.Name(),
		"capacity": src.Capacity(),
	}).Debug("stream registered")
	return nil
}

// Get returns the stream registered under name.
func (r *Registry) Get(name string) (*stream.BufferedSource, bool) {
	return r.streams.Get(name)
}

// Remove unregisters the stream and closes it, waiting for its producer to exit.
func (r *Registry) Remove(name string) error {
	src, ok := r.streams.Get(name)
	if !ok || !r.streams.Del(name) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	r.logger.WithField("stream", name).Debug("stream removed")
	return src.Close()
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.streams.Len())
	r.streams.Range(func(name string, _ *stream.BufferedSource) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Len returns the number of registered streams.
func (r *Registry) Len() int {
	return r.streams.Len()
}

// CloseAll removes and closes every stream. Producers are joined concurrently.
func (r *Registry) CloseAll() {
	var wg sync.WaitGroup
	for _, name := range r.Names() {
		src, ok := r.streams.Get(name)
		if !ok || !r.streams.Del(name) {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = src.Close()
		}()
	}
	wg.Wait()
	r.logger.Debug("all streams closed")
}
