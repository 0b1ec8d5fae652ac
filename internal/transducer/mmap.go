package transducer

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// WriteTable stores a packed table at path.
func WriteTable(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}

// Map opens a packed table read-only without copying it onto the heap.
// Close unmaps it; the file itself is left in place.
func Map(path string, alpha *Alphabet) (*Transducer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transducer: open table: %w", err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("transducer: map %s: %w", path, err)
	}
	t, err := Load(m, alpha)
	if err != nil {
		m.Unmap()
		return nil, err
	}
	t.closer = m.Unmap
	return t, nil
}
