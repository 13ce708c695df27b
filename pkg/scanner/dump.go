package scanner

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/vondutchi/vondutch-patcher/pkg/events"
)

// Snapshot dump files carry a fixed header followed by a zstd frame of the
// captured bytes, so a region can be diffed across attach sessions offline.
var dumpMagic = [4]byte{'V', 'D', 'S', '1'}

// DumpSnapshot writes the snapshot to path, compressed.
func DumpSnapshot(snap *Snapshot, path string) error {
	compressed, err := events.CompressData(snap.Data, events.ZstdCompression)
	if err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}

	header := make([]byte, 20)
	copy(header, dumpMagic[:])
	binary.LittleEndian.PutUint64(header[4:], uint64(snap.Base))
	binary.LittleEndian.PutUint64(header[12:], uint64(len(snap.Data)))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(header); err != nil {
		return err
	}
	if _, err := f.Write(compressed); err != nil {
		return err
	}
	return nil
}

// LoadSnapshot reads a snapshot previously written by DumpSnapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < 20 || [4]byte(raw[:4]) != dumpMagic {
		return nil, fmt.Errorf("not a snapshot dump: %s", path)
	}

	base := uintptr(binary.LittleEndian.Uint64(raw[4:]))
	length := int(binary.LittleEndian.Uint64(raw[12:]))

	data, err := events.DecompressData(raw[20:], events.ZstdCompression)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	if len(data) != length {
		return nil, fmt.Errorf("snapshot dump truncated: have %d bytes, header says %d", len(data), length)
	}

	return &Snapshot{Base: base, Data: data}, nil
}
