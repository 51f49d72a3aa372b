package volume

// DiskManager reads and changes disks. Disk returns an error satisfying
// errors.NotFound when no disk has the given number.
type DiskManager interface {
	Disk(number uint32) (Disk, error)
	SetDiskOnline(number uint32) error
	SetDiskWritable(number uint32) error
	InitializeDisk(number uint32, style PartitionStyle) error
}

// PartitionManager reads and changes partitions. Lookups return an error
// satisfying errors.NotFound when nothing matches.
type PartitionManager interface {
	PartitionByDriveLetter(letter string) (Partition, error)
	Partition(diskNumber, partitionNumber uint32) (Partition, error)
	NewPartition(args NewPartitionArgs) (Partition, error)
	SetPartitionDriveLetter(diskNumber, partitionNumber uint32, letter string) error
	ChangeDriveLetter(from, to string) error
}

// VolumeManager reads and changes volumes. VolumeByDriveLetter returns an
// error satisfying errors.NotFound when no volume has the letter.
type VolumeManager interface {
	VolumeByDriveLetter(letter string) (Volume, error)
	// DiskVolumes returns the formatted volumes found on the disk's
	// partitions.
	DiskVolumes(diskNumber uint32) ([]Volume, error)
	FormatVolume(args FormatArgs) error
	SetVolumeLabel(letter, label string) error
}

// Storage is the host storage capability the resource drives.
type Storage interface {
	DiskManager
	PartitionManager
	VolumeManager
}

// Logger is the subset of loggo.Logger used by this package.
type Logger interface {
	Debugf(message string, args ...interface{})
	Infof(message string, args ...interface{})
	Warningf(message string, args ...interface{})
}
