package disasm

import (
	"errors"
	"fmt"
	"os"
)

// MemoryReader reads target memory.
type MemoryReader interface {
	// ReadMemory is just like io.ReaderAt.ReadAt.
	ReadMemory(buf []byte, addr uint64) (n int, err error)
}

// boundedReader is implemented by memory readers that know which addresses
// they can serve.
type boundedReader interface {
	Bounds() (lo, hi uint64)
}

// maxReadSize caps a single read from a reader that does not report its
// bounds.
const maxReadSize = 64 << 20

// checkRange fails unless [startAddr, endAddr) can be read from memrw, so
// that callers never allocate a buffer for a range that cannot exist.
func checkRange(memrw MemoryReader, startAddr, endAddr uint64) error {
	if b, ok := memrw.(boundedReader); ok {
		lo, hi := b.Bounds()
		if startAddr < lo || endAddr > hi {
			return fmt.Errorf("%w: [%#x, %#x) not in [%#x, %#x)", ErrOutOfRange, startAddr, endAddr, lo, hi)
		}
		return nil
	}
	if endAddr-startAddr > maxReadSize {
		return fmt.Errorf("%w: %#x bytes at %#x", ErrOutOfRange, endAddr-startAddr, startAddr)
	}
	return nil
}

// ErrOutOfRange is returned when a read falls outside of an Image.
var ErrOutOfRange = errors.New("address out of range")

// Image is a flat memory image of code loaded at Base.
type Image struct {
	Base uint64
	Data []byte
}

// LoadImage reads the file at path as an image loaded at base.
func LoadImage(path string, base uint64) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Image{Base: base, Data: data}, nil
}

// Bounds returns the first address of the image and the address one past
// its last byte.
func (img *Image) Bounds() (lo, hi uint64) {
	return img.Base, img.End()
}

// End returns the address one past the last byte of the image.
func (img *Image) End() uint64 {
	return img.Base + uint64(len(img.Data))
}

// ReadMemory reads len(buf) bytes at addr. Reads that are not entirely
// inside the image fail without copying anything.
func (img *Image) ReadMemory(buf []byte, addr uint64) (int, error) {
	if addr < img.Base || addr > img.End() || uint64(len(buf)) > img.End()-addr {
		return 0, fmt.Errorf("%w: [%#x, %#x) not in [%#x, %#x)", ErrOutOfRange, addr, addr+uint64(len(buf)), img.Base, img.End())
	}
	return copy(buf, img.Data[addr-img.Base:]), nil
}
