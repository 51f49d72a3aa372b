// Package volumetesting provides an in-memory storage stack for exercising
// the volume package without a host.
package volumetesting

import (
	"fmt"
	"sort"
	"sync"

	"github.com/juju/errors"

	"dskvolume/internal/volume"
)

const (
	// ReservedPartitionSize is the size of the reserved partition written
	// by InitializeDisk.
	ReservedPartitionSize = 16 << 20

	// DefaultAllocationUnitSize is used when a format does not ask for one.
	DefaultAllocationUnitSize = 4096
)

// FakeDisk is a disk held by FakeStorage.
type FakeDisk struct {
	volume.Disk
	Size       uint64
	Partitions []*FakePartition
}

// FakePartition is a partition held by FakeStorage. A partition with an
// empty FileSystem carries no formatted volume.
type FakePartition struct {
	volume.Partition
	FileSystem         string
	Label              string
	AllocationUnitSize uint32

	// ReadOnlyPolls is the number of Partition queries that still report
	// the partition read-only.
	ReadOnlyPolls int
}

func (p *FakePartition) volume() volume.Volume {
	return volume.Volume{
		DriveLetter:     p.DriveLetter,
		FileSystem:      p.FileSystem,
		FileSystemLabel: p.Label,
		Size:            p.Size,
	}
}

// FakeStorage implements volume.Storage in memory and records every
// mutating call.
type FakeStorage struct {
	mu    sync.Mutex
	disks map[uint32]*FakeDisk
	calls []string
	errs  map[string]error

	// NewPartitionReadOnlyPolls is copied into every partition created by
	// NewPartition.
	NewPartitionReadOnlyPolls int
}

var _ volume.Storage = (*FakeStorage)(nil)

// NewFakeStorage returns a FakeStorage holding disks.
func NewFakeStorage(disks ...*FakeDisk) *FakeStorage {
	s := &FakeStorage{
		disks: make(map[uint32]*FakeDisk),
		errs:  make(map[string]error),
	}
	for _, disk := range disks {
		s.disks[disk.Number] = disk
	}
	return s
}

// RawDisk returns an uninitialized disk.
func RawDisk(number uint32, size uint64) *FakeDisk {
	return &FakeDisk{
		Disk: volume.Disk{Number: number, PartitionStyle: volume.PartitionStyleRAW},
		Size: size,
	}
}

// GPTDisk returns an online, writable GPT disk holding only the reserved
// partition.
func GPTDisk(number uint32, size uint64) *FakeDisk {
	disk := &FakeDisk{
		Disk: volume.Disk{Number: number, PartitionStyle: volume.PartitionStyleGPT},
		Size: size,
	}
	disk.addReserved()
	return disk
}

// AddVolume appends a formatted data partition to the disk and returns it.
func (d *FakeDisk) AddVolume(letter, label string, size uint64) *FakePartition {
	partition := &FakePartition{
		Partition: volume.Partition{
			DiskNumber:  d.Number,
			Number:      d.nextNumber(),
			DriveLetter: letter,
			Size:        size,
		},
		FileSystem:         volume.FileSystemNTFS,
		Label:              label,
		AllocationUnitSize: DefaultAllocationUnitSize,
	}
	d.Partitions = append(d.Partitions, partition)
	return partition
}

func (d *FakeDisk) addReserved() {
	d.Partitions = append(d.Partitions, &FakePartition{
		Partition: volume.Partition{
			DiskNumber: d.Number,
			Number:     d.nextNumber(),
			Size:       ReservedPartitionSize,
		},
	})
}

func (d *FakeDisk) nextNumber() uint32 {
	return uint32(len(d.Partitions) + 1)
}

func (d *FakeDisk) free() uint64 {
	used := uint64(0)
	for _, p := range d.Partitions {
		used += p.Size
	}
	if used > d.Size {
		return 0
	}
	return d.Size - used
}

// Calls returns the mutating calls made so far.
func (s *FakeStorage) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// SetErrors makes the named methods fail with the given errors.
func (s *FakeStorage) SetErrors(errs map[string]error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, err := range errs {
		s.errs[name] = err
	}
}

// FakeDisk returns the disk with the given number, or nil.
func (s *FakeStorage) FakeDisk(number uint32) *FakeDisk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disks[number]
}

func (s *FakeStorage) record(format string, args ...interface{}) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *FakeStorage) err(name string) error {
	return s.errs[name]
}

func (s *FakeStorage) findDisk(number uint32) (*FakeDisk, error) {
	disk, ok := s.disks[number]
	if !ok {
		return nil, errors.NotFoundf("disk %d", number)
	}
	return disk, nil
}

func (s *FakeStorage) findPartition(diskNumber, partitionNumber uint32) (*FakePartition, error) {
	disk, err := s.findDisk(diskNumber)
	if err != nil {
		return nil, errors.Trace(err)
	}
	for _, p := range disk.Partitions {
		if p.Number == partitionNumber {
			return p, nil
		}
	}
	return nil, errors.NotFoundf("partition %d on disk %d", partitionNumber, diskNumber)
}

func (s *FakeStorage) findLetter(letter string) *FakePartition {
	numbers := make([]int, 0, len(s.disks))
	for number := range s.disks {
		numbers = append(numbers, int(number))
	}
	sort.Ints(numbers)
	for _, number := range numbers {
		for _, p := range s.disks[uint32(number)].Partitions {
			if letter != "" && p.DriveLetter == letter {
				return p
			}
		}
	}
	return nil
}

// Disk is part of volume.DiskManager.
func (s *FakeStorage) Disk(number uint32) (volume.Disk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("Disk"); err != nil {
		return volume.Disk{}, err
	}
	disk, err := s.findDisk(number)
	if err != nil {
		return volume.Disk{}, errors.Trace(err)
	}
	return disk.Disk, nil
}

// SetDiskOnline is part of volume.DiskManager.
func (s *FakeStorage) SetDiskOnline(number uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SetDiskOnline %d", number)
	if err := s.err("SetDiskOnline"); err != nil {
		return err
	}
	disk, err := s.findDisk(number)
	if err != nil {
		return errors.Trace(err)
	}
	disk.IsOffline = false
	return nil
}

// SetDiskWritable is part of volume.DiskManager.
func (s *FakeStorage) SetDiskWritable(number uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SetDiskWritable %d", number)
	if err := s.err("SetDiskWritable"); err != nil {
		return err
	}
	disk, err := s.findDisk(number)
	if err != nil {
		return errors.Trace(err)
	}
	disk.IsReadOnly = false
	return nil
}

// InitializeDisk is part of volume.DiskManager. Initializing as GPT
// writes the reserved partition.
func (s *FakeStorage) InitializeDisk(number uint32, style volume.PartitionStyle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("InitializeDisk %d %s", number, style)
	if err := s.err("InitializeDisk"); err != nil {
		return err
	}
	disk, err := s.findDisk(number)
	if err != nil {
		return errors.Trace(err)
	}
	if disk.PartitionStyle != volume.PartitionStyleRAW {
		return errors.Errorf("disk %d is already initialized", number)
	}
	disk.PartitionStyle = style
	if style == volume.PartitionStyleGPT {
		disk.addReserved()
	}
	return nil
}

// PartitionByDriveLetter is part of volume.PartitionManager.
func (s *FakeStorage) PartitionByDriveLetter(letter string) (volume.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("PartitionByDriveLetter"); err != nil {
		return volume.Partition{}, err
	}
	p := s.findLetter(letter)
	if p == nil {
		return volume.Partition{}, errors.NotFoundf("partition %s:", letter)
	}
	return p.Partition, nil
}

// Partition is part of volume.PartitionManager. Each call uses up one of
// the partition's ReadOnlyPolls.
func (s *FakeStorage) Partition(diskNumber, partitionNumber uint32) (volume.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("Partition"); err != nil {
		return volume.Partition{}, err
	}
	p, err := s.findPartition(diskNumber, partitionNumber)
	if err != nil {
		return volume.Partition{}, errors.Trace(err)
	}
	result := p.Partition
	result.IsReadOnly = p.ReadOnlyPolls > 0
	if p.ReadOnlyPolls > 0 {
		p.ReadOnlyPolls--
	}
	return result, nil
}

// NewPartition is part of volume.PartitionManager.
func (s *FakeStorage) NewPartition(args volume.NewPartitionArgs) (volume.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if args.Size != nil {
		s.record("NewPartition %d %s %d", args.DiskNumber, args.DriveLetter, *args.Size)
	} else {
		s.record("NewPartition %d %s max", args.DiskNumber, args.DriveLetter)
	}
	if err := s.err("NewPartition"); err != nil {
		return volume.Partition{}, err
	}
	disk, err := s.findDisk(args.DiskNumber)
	if err != nil {
		return volume.Partition{}, errors.Trace(err)
	}
	if disk.PartitionStyle != volume.PartitionStyleGPT {
		return volume.Partition{}, errors.Errorf("disk %d is not initialized", args.DiskNumber)
	}
	if s.findLetter(args.DriveLetter) != nil {
		return volume.Partition{}, errors.AlreadyExistsf("drive letter %s", args.DriveLetter)
	}
	size := disk.free()
	if args.Size != nil {
		if *args.Size > size {
			return volume.Partition{}, errors.Errorf("not enough free space on disk %d", args.DiskNumber)
		}
		size = *args.Size
	}
	p := &FakePartition{
		Partition: volume.Partition{
			DiskNumber:  disk.Number,
			Number:      disk.nextNumber(),
			DriveLetter: args.DriveLetter,
			Size:        size,
		},
		ReadOnlyPolls: s.NewPartitionReadOnlyPolls,
	}
	disk.Partitions = append(disk.Partitions, p)
	return p.Partition, nil
}

// SetPartitionDriveLetter is part of volume.PartitionManager.
func (s *FakeStorage) SetPartitionDriveLetter(diskNumber, partitionNumber uint32, letter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SetPartitionDriveLetter %d %d %s", diskNumber, partitionNumber, letter)
	if err := s.err("SetPartitionDriveLetter"); err != nil {
		return err
	}
	p, err := s.findPartition(diskNumber, partitionNumber)
	if err != nil {
		return errors.Trace(err)
	}
	if s.findLetter(letter) != nil {
		return errors.AlreadyExistsf("drive letter %s", letter)
	}
	p.DriveLetter = letter
	return nil
}

// ChangeDriveLetter is part of volume.PartitionManager.
func (s *FakeStorage) ChangeDriveLetter(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ChangeDriveLetter %s %s", from, to)
	if err := s.err("ChangeDriveLetter"); err != nil {
		return err
	}
	p := s.findLetter(from)
	if p == nil {
		return errors.NotFoundf("partition %s:", from)
	}
	if s.findLetter(to) != nil {
		return errors.AlreadyExistsf("drive letter %s", to)
	}
	p.DriveLetter = to
	return nil
}

// VolumeByDriveLetter is part of volume.VolumeManager.
func (s *FakeStorage) VolumeByDriveLetter(letter string) (volume.Volume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("VolumeByDriveLetter"); err != nil {
		return volume.Volume{}, err
	}
	p := s.findLetter(letter)
	if p == nil || p.FileSystem == "" {
		return volume.Volume{}, errors.NotFoundf("volume %s:", letter)
	}
	return p.volume(), nil
}

// DiskVolumes is part of volume.VolumeManager.
func (s *FakeStorage) DiskVolumes(diskNumber uint32) ([]volume.Volume, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("DiskVolumes"); err != nil {
		return nil, err
	}
	disk, err := s.findDisk(diskNumber)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var volumes []volume.Volume
	for _, p := range disk.Partitions {
		if p.FileSystem != "" {
			volumes = append(volumes, p.volume())
		}
	}
	return volumes, nil
}

// FormatVolume is part of volume.VolumeManager. Formatting a partition
// that still reports read-only fails, as it does on a real host.
func (s *FakeStorage) FormatVolume(args volume.FormatArgs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := fmt.Sprintf("FormatVolume %d %d %s", args.DiskNumber, args.PartitionNumber, args.FileSystem)
	if args.Label != nil {
		call += fmt.Sprintf(" label=%q", *args.Label)
	}
	if args.AllocationUnitSize != nil {
		call += fmt.Sprintf(" unit=%d", *args.AllocationUnitSize)
	}
	s.calls = append(s.calls, call)
	if err := s.err("FormatVolume"); err != nil {
		return err
	}
	p, err := s.findPartition(args.DiskNumber, args.PartitionNumber)
	if err != nil {
		return errors.Trace(err)
	}
	if p.ReadOnlyPolls > 0 {
		return errors.Errorf("partition %d on disk %d is read-only", args.PartitionNumber, args.DiskNumber)
	}
	p.FileSystem = args.FileSystem
	p.Label = ""
	if args.Label != nil {
		p.Label = *args.Label
	}
	p.AllocationUnitSize = DefaultAllocationUnitSize
	if args.AllocationUnitSize != nil {
		p.AllocationUnitSize = *args.AllocationUnitSize
	}
	return nil
}

// SetVolumeLabel is part of volume.VolumeManager.
func (s *FakeStorage) SetVolumeLabel(letter, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SetVolumeLabel %s %q", letter, label)
	if err := s.err("SetVolumeLabel"); err != nil {
		return err
	}
	p := s.findLetter(letter)
	if p == nil || p.FileSystem == "" {
		return errors.NotFoundf("volume %s:", letter)
	}
	p.Label = label
	return nil
}

// BlockSizeSource returns a source reporting the allocation unit size of
// the formatted volumes held by s.
func (s *FakeStorage) BlockSizeSource() volume.BlockSizeSource {
	return fakeBlockSize{s}
}

type fakeBlockSize struct {
	s *FakeStorage
}

func (f fakeBlockSize) BlockSize(letter string) (uint32, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	p := f.s.findLetter(letter)
	if p == nil || p.FileSystem == "" {
		return 0, errors.NotFoundf("block size for %s:", letter)
	}
	return p.AllocationUnitSize, nil
}

// StaticBlockSize is a BlockSizeSource with a fixed answer. A zero Size
// with a nil Err reports no answer.
type StaticBlockSize struct {
	Size  uint32
	Err   error
	Asked []string
}

// BlockSize is part of volume.BlockSizeSource.
func (s *StaticBlockSize) BlockSize(letter string) (uint32, error) {
	s.Asked = append(s.Asked, letter)
	if s.Err != nil {
		return 0, s.Err
	}
	if s.Size == 0 {
		return 0, errors.NotFoundf("block size for %s:", letter)
	}
	return s.Size, nil
}
