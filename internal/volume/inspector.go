package volume

import (
	"github.com/juju/errors"

	"dskvolume/internal/driveletter"
)

// StateReader is the read-only part of Storage the Inspector needs.
type StateReader interface {
	Disk(number uint32) (Disk, error)
	PartitionByDriveLetter(letter string) (Partition, error)
	VolumeByDriveLetter(letter string) (Volume, error)
}

// Inspector reads an ObservedState from the host.
type Inspector struct {
	reader     StateReader
	blockSizes BlockSizeChain
	logger     Logger
}

// NewInspector returns an Inspector reading through reader and asking
// blockSizes, in order, for the allocation unit size.
func NewInspector(reader StateReader, blockSizes BlockSizeChain, log Logger) *Inspector {
	if log == nil {
		log = logger
	}
	return &Inspector{
		reader:     reader,
		blockSizes: blockSizes,
		logger:     log,
	}
}

// Inspect reads the state of disk diskNumber and of the partition and
// volume holding driveLetter. Anything the host reports as missing is left
// nil in the result; only a malformed drive letter or a failing query is
// an error.
func (i *Inspector) Inspect(diskNumber uint32, driveLetter string) (ObservedState, error) {
	letter, err := driveletter.Normalize(driveLetter)
	if err != nil {
		return ObservedState{}, errors.Trace(err)
	}
	observed := ObservedState{
		DiskNumber:  diskNumber,
		DriveLetter: letter,
	}

	disk, err := i.reader.Disk(diskNumber)
	switch {
	case errors.Is(err, errors.NotFound):
		i.logger.Debugf("disk %d not found", diskNumber)
	case err != nil:
		return ObservedState{}, errors.Annotatef(err, "reading disk %d", diskNumber)
	default:
		observed.Disk = &disk
	}

	partition, err := i.reader.PartitionByDriveLetter(letter)
	switch {
	case errors.Is(err, errors.NotFound):
		i.logger.Debugf("no partition with drive letter %s", letter)
	case err != nil:
		return ObservedState{}, errors.Annotatef(err, "reading partition %s:", letter)
	default:
		observed.Partition = &partition
	}

	volume, err := i.reader.VolumeByDriveLetter(letter)
	switch {
	case errors.Is(err, errors.NotFound):
		i.logger.Debugf("no volume with drive letter %s", letter)
	case err != nil:
		return ObservedState{}, errors.Annotatef(err, "reading volume %s:", letter)
	default:
		observed.Volume = &volume
	}

	if size, ok := i.blockSizes.BlockSize(letter, i.logger); ok {
		observed.AllocationUnitSize = &size
	}
	return observed, nil
}
