// Package mmap provides read-only memory mapping of files for the local
// blob store.
package mmap

import (
	"fmt"
	"os"
)

// Mapping is a read-only mapped file.
type Mapping struct {
	data []byte
	// unmap releases the mapping; nil when data was read into memory on
	// platforms without mmap support.
	unmap func([]byte) error
}

// Open maps the file at path read-only.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path is store-internal
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("mmap: stat %s: %w", path, err)
	}
	if st.Size() == 0 {
		return &Mapping{}, nil
	}

	data, unmap, err := mapFile(f, int(st.Size()))
	if err != nil {
		return nil, fmt.Errorf("mmap: map %s: %w", path, err)
	}
	return &Mapping{data: data, unmap: unmap}, nil
}

// Bytes returns the mapped contents. The slice is valid until Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Close releases the mapping.
func (m *Mapping) Close() error {
	if m.unmap == nil || m.data == nil {
		m.data = nil
		return nil
	}
	data := m.data
	m.data = nil
	return m.unmap(data)
}
