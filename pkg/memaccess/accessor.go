// Package memaccess provides raw bounded reads and writes over a handle to
// another process's address space.
//
// Every call reflects the live state of the target at call time: there is no
// caching and no retry. A transfer shorter than requested is an error, never
// a partial success, so callers can rely on getting exactly the bytes they
// asked for or a failure they can report.
package memaccess

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrInvalidHandle means there is no usable process handle: none was
	// ever supplied, it was revoked on detach, or the target has exited.
	ErrInvalidHandle = errors.New("memaccess: invalid process handle")

	// ErrAccessDenied means the OS refused the transfer or completed it
	// only partially. Partial transfers are folded into this error.
	ErrAccessDenied = errors.New("memaccess: access denied")
)

// Accessor reads and writes the memory of one foreign process.
//
// Implementations must fail with an error rather than panic when the handle
// has gone stale, the region is unmapped, or the OS denies the transfer.
type Accessor interface {
	// Read returns exactly length bytes starting at address, or an error.
	Read(address uintptr, length int) ([]byte, error)

	// Write stores data at address in full, or returns an error.
	Write(address uintptr, data []byte) error
}

// PartialReader is implemented by accessors whose underlying OS read can
// complete partially. ReadPartial returns however many bytes were actually
// obtained starting at address, which may be fewer than length when the
// range runs off the end of a mapping. The snapshot engine prefers this
// over Read so a region shorter than expected yields a truncated snapshot
// instead of an error.
type PartialReader interface {
	ReadPartial(address uintptr, length int) ([]byte, error)
}

// ReadUint32 reads a little-endian 32-bit value at address.
func ReadUint32(acc Accessor, address uintptr) (uint32, error) {
	buf, err := acc.Read(address, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// ReadInt32 reads a little-endian signed 32-bit value at address.
func ReadInt32(acc Accessor, address uintptr) (int32, error) {
	v, err := ReadUint32(acc, address)
	return int32(v), err
}

// WriteUint32 writes value at address in little-endian byte order.
func WriteUint32(acc Accessor, address uintptr, value uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, value)
	return acc.Write(address, buf)
}

// WriteInt32 writes value at address in little-endian byte order.
func WriteInt32(acc Accessor, address uintptr, value int32) error {
	return WriteUint32(acc, address, uint32(value))
}

// EncodeInt32 returns the little-endian byte form of value, the fixed-width
// buffer shape the freeze registry stores.
func EncodeInt32(value int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(value))
	return buf
}
