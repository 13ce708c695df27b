//go:build windows

package proc

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/vondutchi/vondutch-patcher/pkg/memaccess"
)

// openAccessor opens a real handle with the rights the engine needs. The
// returned revoke func invalidates the accessor before closing the handle,
// so a borrower racing a detach gets ErrInvalidHandle instead of a write
// through a dead handle.
func openAccessor(pid int32) (memaccess.Accessor, func(), error) {
	const access = windows.PROCESS_VM_READ | windows.PROCESS_VM_WRITE |
		windows.PROCESS_VM_OPERATION | windows.PROCESS_QUERY_INFORMATION

	handle, err := windows.OpenProcess(access, false, uint32(pid))
	if err != nil {
		return nil, nil, fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}

	acc := memaccess.NewWindowsAccessor(handle)
	revoke := func() {
		acc.Revoke()
		windows.CloseHandle(handle)
	}
	return acc, revoke, nil
}
