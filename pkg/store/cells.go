// Package store persists the next free slot of every role.
package store

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Unformatted is the value of a cell never written.
const Unformatted uint16 = 0xFFFF

// cellSize is the size of a cell in the image file.
const cellSize = 2

// Cells is a small word-addressed non-volatile memory.
type Cells interface {
	ReadCell(i int) (uint16, error)
	WriteCell(i int, v uint16) error
}

// MemoryCells keeps cells in memory. Cells start Unformatted.
type MemoryCells struct {
	cells map[int]uint16
	lock  sync.Mutex
}

// NewMemoryCells creates empty MemoryCells.
func NewMemoryCells() *MemoryCells {
	return &MemoryCells{cells: make(map[int]uint16)}
}

// ReadCell implements Cells.
func (m *MemoryCells) ReadCell(i int) (uint16, error) {
	if i < 0 {
		return 0, fmt.Errorf("invalid cell %d", i)
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if v, ok := m.cells[i]; ok {
		return v, nil
	}
	return Unformatted, nil
}

// WriteCell implements Cells.
func (m *MemoryCells) WriteCell(i int, v uint16) error {
	if i < 0 {
		return fmt.Errorf("invalid cell %d", i)
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.cells[i] = v
	return nil
}

// FileCells keeps cells in a file laid out like an EEPROM image:
// cell i is the big endian word at offset 2*i, erased bytes are 0xFF.
type FileCells struct {
	path string
	lock sync.Mutex
}

// OpenFileCells uses the image at path, created erased with size cells
// when missing. An existing image shorter than size is padded when written.
func OpenFileCells(path string, size int) (*FileCells, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		image := make([]byte, size*cellSize)
		for i := range image {
			image[i] = 0xFF
		}
		if err := writeImage(path, image); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return &FileCells{path: path}, nil
}

// Path returns the image file path.
func (f *FileCells) Path() string {
	return f.path
}

// ReadCell implements Cells.
func (f *FileCells) ReadCell(i int) (uint16, error) {
	if i < 0 {
		return 0, fmt.Errorf("invalid cell %d", i)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	image, err := os.ReadFile(f.path)
	if err != nil {
		return 0, err
	}
	if off := i * cellSize; off+cellSize <= len(image) {
		return binary.BigEndian.Uint16(image[off:]), nil
	}
	return Unformatted, nil
}

// WriteCell implements Cells. The image is replaced atomically.
func (f *FileCells) WriteCell(i int, v uint16) error {
	if i < 0 {
		return fmt.Errorf("invalid cell %d", i)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	image, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	off := i * cellSize
	for len(image) < off+cellSize {
		image = append(image, 0xFF)
	}
	binary.BigEndian.PutUint16(image[off:], v)
	return writeImage(f.path, image)
}

func writeImage(path string, image []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err = tmp.Write(image); err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
