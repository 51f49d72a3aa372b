package volume

import (
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"
)

const (
	// DefaultSettleTimeout bounds the wait for a new partition to stop
	// reporting read-only.
	DefaultSettleTimeout = 30 * time.Second

	// DefaultSettleDelay is the first pause between read-only polls. It
	// doubles after every poll up to maxSettleDelay.
	DefaultSettleDelay = 250 * time.Millisecond

	maxSettleDelay = 5 * time.Second

	// letterlessPartitionNumber is the partition given a drive letter when
	// the existing volume has none. Partition 1 on the GPT disks managed
	// here is the reserved partition, so the data partition is 2.
	letterlessPartitionNumber = 2
)

var errPartitionReadOnly = errors.ConstError("partition is read-only")

// ReconcilerConfig holds the dependencies of a Reconciler.
type ReconcilerConfig struct {
	Storage Storage
	Clock   clock.Clock

	// SettleTimeout and SettleDelay control the poll that waits for a new
	// partition to become writable before it is formatted.
	SettleTimeout time.Duration
	SettleDelay   time.Duration

	Logger Logger
}

// Validate checks the config, filling in defaults for optional values.
func (c *ReconcilerConfig) Validate() error {
	if c.Storage == nil {
		return errors.NotValidf("nil Storage")
	}
	if c.Clock == nil {
		c.Clock = clock.WallClock
	}
	if c.SettleTimeout < 0 {
		return errors.NotValidf("negative SettleTimeout")
	}
	if c.SettleTimeout == 0 {
		c.SettleTimeout = DefaultSettleTimeout
	}
	if c.SettleDelay < 0 {
		return errors.NotValidf("negative SettleDelay")
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.Logger == nil {
		c.Logger = logger
	}
	return nil
}

// Reconciler drives the host toward a DesiredState.
type Reconciler struct {
	config ReconcilerConfig
}

// NewReconciler returns a Reconciler for the validated config.
func NewReconciler(config ReconcilerConfig) (*Reconciler, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Reconciler{config: config}, nil
}

// Converge performs every step needed to bring the host to desired. It
// does not check first whether anything needs doing; callers gate it on
// a failed comparison. Each step reads the facts it acts on just before
// acting, and the first failure aborts the run without undoing completed
// steps.
func (r *Reconciler) Converge(desired DesiredState) error {
	desired, err := desired.Normalize()
	if err != nil {
		return errors.Trace(err)
	}
	storage := r.config.Storage
	number := desired.DiskNumber

	disk, err := r.disk(number)
	if err != nil {
		return errors.Trace(err)
	}
	// Refuse a foreign partition table before touching the disk at all.
	if !disk.PartitionStyle.Supported() {
		return &DiskAlreadyInitializedError{DiskNumber: number, PartitionStyle: disk.PartitionStyle}
	}

	if disk.IsOffline {
		r.config.Logger.Infof("bringing disk %d online", number)
		if err := storage.SetDiskOnline(number); err != nil {
			return errors.Annotatef(err, "bringing disk %d online", number)
		}
	}
	if disk.IsReadOnly {
		r.config.Logger.Infof("making disk %d writable", number)
		if err := storage.SetDiskWritable(number); err != nil {
			return errors.Annotatef(err, "making disk %d writable", number)
		}
	}
	if disk.IsOffline || disk.IsReadOnly {
		if disk, err = r.disk(number); err != nil {
			return errors.Trace(err)
		}
	}

	switch disk.PartitionStyle {
	case PartitionStyleRAW:
		r.config.Logger.Infof("initializing disk %d as GPT", number)
		if err := storage.InitializeDisk(number, PartitionStyleGPT); err != nil {
			return errors.Annotatef(err, "initializing disk %d", number)
		}
	case PartitionStyleGPT:
		r.config.Logger.Debugf("disk %d is already GPT", number)
	default:
		return &DiskAlreadyInitializedError{DiskNumber: number, PartitionStyle: disk.PartitionStyle}
	}

	volumes, err := storage.DiskVolumes(number)
	if err != nil {
		return errors.Annotatef(err, "reading volumes on disk %d", number)
	}
	if len(volumes) == 0 {
		return errors.Trace(r.createVolume(desired))
	}
	if len(volumes) > 1 {
		r.config.Logger.Warningf("disk %d has %d volumes, managing the first", number, len(volumes))
	}
	return errors.Trace(r.updateVolume(desired, volumes[0]))
}

func (r *Reconciler) disk(number uint32) (Disk, error) {
	disk, err := r.config.Storage.Disk(number)
	if errors.Is(err, errors.NotFound) {
		return Disk{}, errors.Trace(err)
	}
	if err != nil {
		return Disk{}, errors.Annotatef(err, "reading disk %d", number)
	}
	return disk, nil
}

// createVolume partitions and formats a disk that has no volume yet.
func (r *Reconciler) createVolume(desired DesiredState) error {
	storage := r.config.Storage
	number := desired.DiskNumber

	partition, found, err := r.unformattedPartition(desired)
	if err != nil {
		return errors.Trace(err)
	}
	if found {
		r.config.Logger.Infof("reusing unformatted partition %d %s: on disk %d", partition.Number, desired.DriveLetter, number)
	} else {
		if desired.Size != nil {
			r.config.Logger.Infof("creating %d byte partition %s: on disk %d", *desired.Size, desired.DriveLetter, number)
		} else {
			r.config.Logger.Infof("creating partition %s: on disk %d using all free space", desired.DriveLetter, number)
		}
		partition, err = storage.NewPartition(NewPartitionArgs{
			DiskNumber:  number,
			DriveLetter: desired.DriveLetter,
			Size:        desired.Size,
		})
		if err != nil {
			return errors.Annotatef(err, "creating partition on disk %d", number)
		}
	}

	if err := r.waitWritable(partition); err != nil {
		return errors.Trace(err)
	}

	r.config.Logger.Infof("formatting partition %d on disk %d as %s", partition.Number, number, FileSystemNTFS)
	err = storage.FormatVolume(FormatArgs{
		DiskNumber:         number,
		PartitionNumber:    partition.Number,
		FileSystem:         FileSystemNTFS,
		Label:              desired.Label,
		AllocationUnitSize: desired.AllocationUnitSize,
	})
	if err != nil {
		return errors.Annotatef(err, "formatting partition %d on disk %d", partition.Number, number)
	}
	r.config.Logger.Infof("volume %s: created", desired.DriveLetter)
	return nil
}

// unformattedPartition returns the partition on the desired disk that
// already holds the desired letter. Such a partition is left behind when
// an earlier run failed between creating and formatting it.
func (r *Reconciler) unformattedPartition(desired DesiredState) (Partition, bool, error) {
	partition, err := r.config.Storage.PartitionByDriveLetter(desired.DriveLetter)
	if errors.Is(err, errors.NotFound) {
		return Partition{}, false, nil
	}
	if err != nil {
		return Partition{}, false, errors.Annotatef(err, "reading partition %s:", desired.DriveLetter)
	}
	if partition.DiskNumber != desired.DiskNumber {
		r.config.Logger.Warningf("drive letter %s is held by partition %d on disk %d",
			desired.DriveLetter, partition.Number, partition.DiskNumber)
		return Partition{}, false, nil
	}
	return partition, true, nil
}

// waitWritable polls a freshly created partition until the host stops
// reporting it read-only. It fails with an errors.Timeout error once the
// settle timeout has passed.
func (r *Reconciler) waitWritable(partition Partition) error {
	storage := r.config.Storage
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			current, err := storage.Partition(partition.DiskNumber, partition.Number)
			if err != nil {
				return errors.Trace(err)
			}
			if current.IsReadOnly {
				return errPartitionReadOnly
			}
			return nil
		},
		IsFatalError: func(err error) bool {
			return !errors.Is(err, errPartitionReadOnly)
		},
		NotifyFunc: func(lastError error, attempt int) {
			r.config.Logger.Debugf("partition %d on disk %d still read-only (attempt %d)",
				partition.Number, partition.DiskNumber, attempt)
		},
		Clock:       r.config.Clock,
		Delay:       r.config.SettleDelay,
		MaxDelay:    maxSettleDelay,
		BackoffFunc: retry.DoubleDelay,
		MaxDuration: r.config.SettleTimeout,
	})
	switch {
	case err == nil:
		return nil
	case retry.IsDurationExceeded(err):
		r.config.Logger.Warningf("partition %d on disk %d still read-only after %s",
			partition.Number, partition.DiskNumber, r.config.SettleTimeout)
		return errors.Timeoutf("waiting for partition %d on disk %d to become writable",
			partition.Number, partition.DiskNumber)
	default:
		return errors.Annotatef(err, "waiting for partition %d on disk %d", partition.Number, partition.DiskNumber)
	}
}

// updateVolume fixes the drive letter and label of an existing volume.
// It never reformats, so allocation unit size is not corrected here.
func (r *Reconciler) updateVolume(desired DesiredState, volume Volume) error {
	storage := r.config.Storage
	number := desired.DiskNumber

	switch volume.DriveLetter {
	case desired.DriveLetter:
		r.config.Logger.Debugf("volume on disk %d already has drive letter %s", number, desired.DriveLetter)
	case "":
		r.config.Logger.Infof("assigning drive letter %s to partition %d on disk %d",
			desired.DriveLetter, letterlessPartitionNumber, number)
		if err := storage.SetPartitionDriveLetter(number, letterlessPartitionNumber, desired.DriveLetter); err != nil {
			return errors.Annotatef(err, "assigning drive letter %s", desired.DriveLetter)
		}
	default:
		r.config.Logger.Infof("changing drive letter %s to %s", volume.DriveLetter, desired.DriveLetter)
		if err := storage.ChangeDriveLetter(volume.DriveLetter, desired.DriveLetter); err != nil {
			return errors.Annotatef(err, "changing drive letter %s to %s", volume.DriveLetter, desired.DriveLetter)
		}
	}

	if desired.Label != nil && *desired.Label != volume.FileSystemLabel {
		r.config.Logger.Infof("changing label of %s: from %q to %q", desired.DriveLetter, volume.FileSystemLabel, *desired.Label)
		if err := storage.SetVolumeLabel(desired.DriveLetter, *desired.Label); err != nil {
			return errors.Annotatef(err, "setting label of %s:", desired.DriveLetter)
		}
	}
	return nil
}
