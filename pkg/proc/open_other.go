//go:build !windows

package proc

import (
	"github.com/vondutchi/vondutch-patcher/pkg/memaccess"
)

// openAccessor on non-Windows platforms returns a fake-backed accessor with
// a small pre-mapped region, so the scan and freeze workflow can be driven
// end to end during development without a real target.
func openAccessor(pid int32) (memaccess.Accessor, func(), error) {
	fake := memaccess.NewFakeAccessor()
	fake.MapRegion(0x1000, make([]byte, 4096))
	return fake, fake.Revoke, nil
}
