package volume

// Reason names the first check an ObservedState failed.
type Reason string

const (
	ReasonDiskNotFound   Reason = "disk not found"
	ReasonDiskOffline    Reason = "disk offline"
	ReasonDiskReadOnly   Reason = "disk read-only"
	ReasonNotGPT         Reason = "not GPT"
	ReasonLetterNotFound Reason = "target drive letter not found"
	ReasonSizeMismatch   Reason = "size mismatch"
	ReasonLabelMismatch  Reason = "label mismatch"
)

// Result is the outcome of a comparison. Reason is empty when Match is
// true.
type Result struct {
	Match  bool
	Reason Reason
}

func match() Result {
	return Result{Match: true}
}

func mismatch(reason Reason) Result {
	return Result{Reason: reason}
}

// Comparator decides whether an observed state satisfies a desired state.
type Comparator struct {
	logger Logger
}

// NewComparator returns a Comparator logging to log, or to the package
// logger when log is nil.
func NewComparator(log Logger) Comparator {
	if log == nil {
		log = logger
	}
	return Comparator{logger: log}
}

// Compare runs the checks in order and reports the first one that fails.
// The desired state is expected to be normalized.
//
// A differing allocation unit size is only logged: a live volume is never
// reformatted for it.
func (c Comparator) Compare(observed ObservedState, desired DesiredState) Result {
	disk := observed.Disk
	if disk == nil {
		c.logger.Infof("disk %d not found", desired.DiskNumber)
		return mismatch(ReasonDiskNotFound)
	}
	if disk.IsOffline {
		c.logger.Infof("disk %d is offline", disk.Number)
		return mismatch(ReasonDiskOffline)
	}
	if disk.IsReadOnly {
		c.logger.Infof("disk %d is read-only", disk.Number)
		return mismatch(ReasonDiskReadOnly)
	}
	if disk.PartitionStyle != PartitionStyleGPT {
		c.logger.Infof("disk %d partition style is %q, not GPT", disk.Number, disk.PartitionStyle)
		return mismatch(ReasonNotGPT)
	}

	partition := observed.Partition
	if partition == nil || partition.DriveLetter != desired.DriveLetter {
		c.logger.Infof("drive letter %s not found", desired.DriveLetter)
		return mismatch(ReasonLetterNotFound)
	}
	if desired.Size != nil && partition.Size != *desired.Size {
		c.logger.Infof("drive %s size %d does not match desired size %d",
			desired.DriveLetter, partition.Size, *desired.Size)
		return mismatch(ReasonSizeMismatch)
	}

	if observed.AllocationUnitSize != nil && desired.AllocationUnitSize != nil {
		have, want := *observed.AllocationUnitSize, *desired.AllocationUnitSize
		if have != 0 && want != 0 && have != want {
			c.logger.Infof("drive %s allocation unit size %d does not match desired %d; volume will not be reformatted",
				desired.DriveLetter, have, want)
		}
	}

	if desired.Label != nil {
		var label string
		if observed.Volume != nil {
			label = observed.Volume.FileSystemLabel
		}
		if observed.Volume == nil || label != *desired.Label {
			c.logger.Infof("drive %s label %q does not match desired label %q",
				desired.DriveLetter, label, *desired.Label)
			return mismatch(ReasonLabelMismatch)
		}
	}
	return match()
}
