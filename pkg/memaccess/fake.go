package memaccess

import (
	"fmt"
	"sync"
)

// FakeAccessor is an in-memory stand-in for a foreign process, used by tests
// and by the portable development build of the supervisor. It backs a set of
// mapped regions with byte slices and can simulate every failure mode a real
// target exhibits: revoked handles, unmapped pages, denied ranges, and reads
// that stop short at the end of a mapping.
type FakeAccessor struct {
	mu         sync.Mutex
	regions    map[uintptr][]byte
	revoked    bool
	denyReads  []addrRange
	denyWrites []addrRange
}

type addrRange struct {
	start uintptr
	end   uintptr // exclusive
}

func (r addrRange) overlaps(start, end uintptr) bool {
	return start < r.end && end > r.start
}

// NewFakeAccessor creates a fake with no mapped regions.
func NewFakeAccessor() *FakeAccessor {
	return &FakeAccessor{regions: make(map[uintptr][]byte)}
}

// MapRegion maps data at base. The fake keeps a copy.
func (a *FakeAccessor) MapRegion(base uintptr, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	region := make([]byte, len(data))
	copy(region, data)
	a.regions[base] = region
}

// Revoke simulates the supervisor detaching: all subsequent reads and
// writes fail with ErrInvalidHandle.
func (a *FakeAccessor) Revoke() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revoked = true
}

// DenyReads makes reads touching [start, end) fail with ErrAccessDenied,
// simulating a page the OS refuses to read.
func (a *FakeAccessor) DenyReads(start, end uintptr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.denyReads = append(a.denyReads, addrRange{start, end})
}

// DenyWrites makes writes touching [start, end) fail with ErrAccessDenied.
func (a *FakeAccessor) DenyWrites(start, end uintptr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.denyWrites = append(a.denyWrites, addrRange{start, end})
}

// AllowAll removes all deny rules.
func (a *FakeAccessor) AllowAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.denyReads = nil
	a.denyWrites = nil
}

// locate returns the region containing address and the offset into it.
// Caller holds the lock.
func (a *FakeAccessor) locate(address uintptr) (region []byte, offset uintptr, ok bool) {
	for base, data := range a.regions {
		if address >= base && address < base+uintptr(len(data)) {
			return data, address - base, true
		}
	}
	return nil, 0, false
}

// Read returns exactly length bytes at address or an error.
func (a *FakeAccessor) Read(address uintptr, length int) ([]byte, error) {
	buf, err := a.read(address, length, false)
	if err != nil {
		return nil, err
	}
	if len(buf) != length {
		return nil, fmt.Errorf("%w: short read at %#x: got %d of %d bytes", ErrAccessDenied, address, len(buf), length)
	}
	return buf, nil
}

// ReadPartial returns up to length bytes at address, stopping at the end of
// the containing mapping the way a non-atomic OS read does.
func (a *FakeAccessor) ReadPartial(address uintptr, length int) ([]byte, error) {
	return a.read(address, length, true)
}

func (a *FakeAccessor) read(address uintptr, length int, partial bool) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.revoked {
		return nil, ErrInvalidHandle
	}
	if length <= 0 {
		return nil, fmt.Errorf("%w: non-positive length %d", ErrAccessDenied, length)
	}
	for _, r := range a.denyReads {
		if r.overlaps(address, address+uintptr(length)) {
			return nil, fmt.Errorf("%w: read at %#x", ErrAccessDenied, address)
		}
	}

	region, offset, ok := a.locate(address)
	if !ok {
		return nil, fmt.Errorf("%w: unmapped address %#x", ErrAccessDenied, address)
	}

	avail := len(region) - int(offset)
	n := length
	if n > avail {
		if !partial {
			return nil, fmt.Errorf("%w: read of %d bytes at %#x crosses end of mapping", ErrAccessDenied, length, address)
		}
		n = avail
	}

	out := make([]byte, n)
	copy(out, region[offset:int(offset)+n])
	return out, nil
}

// Write stores data at address in full or returns an error.
func (a *FakeAccessor) Write(address uintptr, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.revoked {
		return ErrInvalidHandle
	}
	if len(data) == 0 {
		return nil
	}
	for _, r := range a.denyWrites {
		if r.overlaps(address, address+uintptr(len(data))) {
			return fmt.Errorf("%w: write at %#x", ErrAccessDenied, address)
		}
	}

	region, offset, ok := a.locate(address)
	if !ok {
		return fmt.Errorf("%w: unmapped address %#x", ErrAccessDenied, address)
	}
	if int(offset)+len(data) > len(region) {
		return fmt.Errorf("%w: write of %d bytes at %#x crosses end of mapping", ErrAccessDenied, len(data), address)
	}

	copy(region[offset:], data)
	return nil
}

// Poke writes directly into the backing store, bypassing revocation and
// deny rules. Tests use it to simulate the target process's own writes.
func (a *FakeAccessor) Poke(address uintptr, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	region, offset, ok := a.locate(address)
	if !ok || int(offset)+len(data) > len(region) {
		return fmt.Errorf("poke outside mapped region at %#x", address)
	}
	copy(region[offset:], data)
	return nil
}

// Peek reads directly from the backing store, bypassing revocation and
// deny rules.
func (a *FakeAccessor) Peek(address uintptr, length int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	region, offset, ok := a.locate(address)
	if !ok || int(offset)+length > len(region) {
		return nil, fmt.Errorf("peek outside mapped region at %#x", address)
	}
	out := make([]byte, length)
	copy(out, region[offset:int(offset)+length])
	return out, nil
}
