//go:build windows

package memaccess

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/windows"
)

// WindowsAccessor reads and writes a target process through an open handle
// using ReadProcessMemory/WriteProcessMemory. The handle is borrowed: the
// process supervisor owns it and revokes it on detach, after which every
// call fails with ErrInvalidHandle.
type WindowsAccessor struct {
	handle atomic.Uintptr // windows.Handle; 0 once revoked
}

// NewWindowsAccessor wraps an already-opened process handle.
func NewWindowsAccessor(h windows.Handle) *WindowsAccessor {
	acc := &WindowsAccessor{}
	acc.handle.Store(uintptr(h))
	return acc
}

// Revoke invalidates the accessor. Subsequent reads and writes fail with
// ErrInvalidHandle. The supervisor calls this before closing the handle so
// no borrower races a close.
func (a *WindowsAccessor) Revoke() {
	a.handle.Store(0)
}

// Read returns exactly length bytes at address or an error. A short OS read
// is reported as ErrAccessDenied, never as a truncated buffer.
func (a *WindowsAccessor) Read(address uintptr, length int) ([]byte, error) {
	h := windows.Handle(a.handle.Load())
	if h == 0 {
		return nil, ErrInvalidHandle
	}
	if length <= 0 {
		return nil, fmt.Errorf("%w: non-positive length %d", ErrAccessDenied, length)
	}

	buffer := make([]byte, length)
	var bytesRead uintptr
	err := windows.ReadProcessMemory(h, address, &buffer[0], uintptr(length), &bytesRead)
	if err != nil {
		return nil, fmt.Errorf("%w: read %d bytes at %#x: %v", ErrAccessDenied, length, address, err)
	}
	if int(bytesRead) != length {
		return nil, fmt.Errorf("%w: short read at %#x: got %d of %d bytes", ErrAccessDenied, address, bytesRead, length)
	}
	return buffer, nil
}

// ReadPartial returns however many bytes the OS could transfer starting at
// address. ReadProcessMemory reports the partial count on ERROR_PARTIAL_COPY,
// which is how a snapshot of a region shorter than expected gets truncated
// rather than rejected.
func (a *WindowsAccessor) ReadPartial(address uintptr, length int) ([]byte, error) {
	h := windows.Handle(a.handle.Load())
	if h == 0 {
		return nil, ErrInvalidHandle
	}
	if length <= 0 {
		return nil, fmt.Errorf("%w: non-positive length %d", ErrAccessDenied, length)
	}

	buffer := make([]byte, length)
	var bytesRead uintptr
	err := windows.ReadProcessMemory(h, address, &buffer[0], uintptr(length), &bytesRead)
	if err != nil && bytesRead == 0 {
		return nil, fmt.Errorf("%w: read %d bytes at %#x: %v", ErrAccessDenied, length, address, err)
	}
	return buffer[:bytesRead], nil
}

// Write stores data at address in full or returns an error. A short OS
// write is reported as ErrAccessDenied.
func (a *WindowsAccessor) Write(address uintptr, data []byte) error {
	h := windows.Handle(a.handle.Load())
	if h == 0 {
		return ErrInvalidHandle
	}
	if len(data) == 0 {
		return nil
	}

	var bytesWritten uintptr
	err := windows.WriteProcessMemory(h, address, &data[0], uintptr(len(data)), &bytesWritten)
	if err != nil {
		return fmt.Errorf("%w: write %d bytes at %#x: %v", ErrAccessDenied, len(data), address, err)
	}
	if int(bytesWritten) != len(data) {
		return fmt.Errorf("%w: short write at %#x: wrote %d of %d bytes", ErrAccessDenied, address, bytesWritten, len(data))
	}
	return nil
}
