/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: lazy.go
Description: At-most-once catalog loading for concurrent first access.
*/

package catalog

import "sync"

// Lazy loads a catalog on first use. An empty path selects the embedded default.
type Lazy struct {
	path string

	once    sync.Once
	catalog *Catalog
	err     error
}

// NewLazy creates a lazy loader for path
func NewLazy(path string) *Lazy {
	return &Lazy{path: path}
}

// Get loads the catalog once and returns the same result on every call
func (l *Lazy) Get() (*Catalog, error) {
	l.once.Do(func() {
		if l.path == "" {
			l.catalog, l.err = Default()
			return
		}
		l.catalog, l.err = Load(l.path)
	})
	return l.catalog, l.err
}
