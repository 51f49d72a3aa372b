package volume

import (
	"fmt"

	"github.com/juju/errors"
)

// DiskAlreadyInitializedError is returned when a disk carries a partition
// style the resource cannot manage. Repartitioning would destroy data, so
// the condition has to be fixed out of band. It satisfies
// errors.NotSupported.
type DiskAlreadyInitializedError struct {
	DiskNumber     uint32
	PartitionStyle PartitionStyle
}

func (e *DiskAlreadyInitializedError) Error() string {
	return fmt.Sprintf("disk %d is already initialized with partition style %s", e.DiskNumber, e.PartitionStyle)
}

// Is makes the error match errors.NotSupported.
func (e *DiskAlreadyInitializedError) Is(target error) bool {
	return target == errors.NotSupported
}

// IsDiskAlreadyInitialized reports whether err is, or wraps, a
// DiskAlreadyInitializedError.
func IsDiskAlreadyInitialized(err error) bool {
	var target *DiskAlreadyInitializedError
	return errors.As(err, &target)
}
