package volume

import (
	"github.com/juju/errors"

	"dskvolume/internal/driveletter"
)

// PartitionStyle is the partition table format reported for a disk.
type PartitionStyle string

const (
	PartitionStyleRAW PartitionStyle = "RAW"
	PartitionStyleGPT PartitionStyle = "GPT"
	PartitionStyleMBR PartitionStyle = "MBR"
)

// Supported reports whether the resource can manage a disk with this
// partition style. Only an uninitialized (RAW) or GPT disk qualifies.
func (s PartitionStyle) Supported() bool {
	return s == PartitionStyleRAW || s == PartitionStyleGPT
}

// FileSystemNTFS is the file system every new volume is formatted with.
const FileSystemNTFS = "NTFS"

// Disk holds the facts read for a disk.
type Disk struct {
	Number         uint32         `json:"number"`
	IsOffline      bool           `json:"isOffline"`
	IsReadOnly     bool           `json:"isReadOnly"`
	PartitionStyle PartitionStyle `json:"partitionStyle"`
}

// Partition holds the facts read for a partition.
type Partition struct {
	DiskNumber  uint32 `json:"diskNumber"`
	Number      uint32 `json:"number"`
	DriveLetter string `json:"driveLetter,omitempty"`
	Size        uint64 `json:"size"`
	IsReadOnly  bool   `json:"isReadOnly"`
}

// Volume holds the facts read for a formatted volume. DriveLetter is empty
// when the volume has no letter assigned.
type Volume struct {
	DriveLetter     string `json:"driveLetter,omitempty"`
	FileSystem      string `json:"fileSystem,omitempty"`
	FileSystemLabel string `json:"fileSystemLabel"`
	Size            uint64 `json:"size"`
}

// DesiredState is the configuration the caller wants the host to reach.
// Nil optional fields were not supplied and are neither checked nor
// enforced. An empty Label is a supplied label.
type DesiredState struct {
	DiskNumber         uint32  `json:"diskNumber"`
	DriveLetter        string  `json:"driveLetter"`
	Size               *uint64 `json:"size,omitempty"`
	Label              *string `json:"label,omitempty"`
	AllocationUnitSize *uint32 `json:"allocationUnitSize,omitempty"`
}

// Normalize returns a copy of the desired state with its drive letter in
// canonical form, or an error satisfying errors.NotValid.
func (d DesiredState) Normalize() (DesiredState, error) {
	letter, err := driveletter.Normalize(d.DriveLetter)
	if err != nil {
		return DesiredState{}, errors.Trace(err)
	}
	d.DriveLetter = letter
	return d, nil
}

// ObservedState is a snapshot of the host read at one point in time. A nil
// Disk, Partition or Volume means the host reported none.
type ObservedState struct {
	DiskNumber         uint32     `json:"diskNumber"`
	DriveLetter        string     `json:"driveLetter"`
	Disk               *Disk      `json:"disk"`
	Partition          *Partition `json:"partition"`
	Volume             *Volume    `json:"volume"`
	AllocationUnitSize *uint32    `json:"allocationUnitSize"`
}

// NewPartitionArgs describes a partition to create. A nil Size uses all
// the free space left on the disk.
type NewPartitionArgs struct {
	DiskNumber  uint32
	DriveLetter string
	Size        *uint64
}

// FormatArgs describes how to format a partition. Nil Label and
// AllocationUnitSize leave the host defaults in place.
type FormatArgs struct {
	DiskNumber         uint32
	PartitionNumber    uint32
	FileSystem         string
	Label              *string
	AllocationUnitSize *uint32
}
