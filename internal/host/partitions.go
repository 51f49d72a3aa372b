package host

import (
	"fmt"

	"github.com/juju/errors"

	"dskvolume/internal/volume"
)

const partitionFields = "DiskNumber, PartitionNumber, @{n='DriveLetter';e={[string]$_.DriveLetter}}, Size, IsReadOnly"

type partitionRow struct {
	DiskNumber      uint32 `json:"DiskNumber"`
	PartitionNumber uint32 `json:"PartitionNumber"`
	DriveLetter     string `json:"DriveLetter"`
	Size            uint64 `json:"Size"`
	IsReadOnly      bool   `json:"IsReadOnly"`
}

func (r partitionRow) partition() volume.Partition {
	return volume.Partition{
		DiskNumber:  r.DiskNumber,
		Number:      r.PartitionNumber,
		DriveLetter: letter(r.DriveLetter),
		Size:        r.Size,
		IsReadOnly:  r.IsReadOnly,
	}
}

func (p *PowerShell) partition(pipeline, what string) (volume.Partition, error) {
	rows, err := query[partitionRow](p, pipeline+" | Select-Object "+partitionFields)
	if err != nil {
		return volume.Partition{}, errors.Trace(err)
	}
	if len(rows) == 0 {
		return volume.Partition{}, errors.NotFoundf("%s", what)
	}
	return rows[0].partition(), nil
}

// PartitionByDriveLetter is part of volume.PartitionManager.
func (p *PowerShell) PartitionByDriveLetter(letter string) (volume.Partition, error) {
	return p.partition(
		fmt.Sprintf("Get-Partition -DriveLetter %s -ErrorAction SilentlyContinue", letter),
		fmt.Sprintf("partition %s:", letter),
	)
}

// Partition is part of volume.PartitionManager.
func (p *PowerShell) Partition(diskNumber, partitionNumber uint32) (volume.Partition, error) {
	return p.partition(
		fmt.Sprintf("Get-Partition -DiskNumber %d -PartitionNumber %d -ErrorAction SilentlyContinue", diskNumber, partitionNumber),
		fmt.Sprintf("partition %d on disk %d", partitionNumber, diskNumber),
	)
}

// NewPartition is part of volume.PartitionManager.
func (p *PowerShell) NewPartition(args volume.NewPartitionArgs) (volume.Partition, error) {
	size := "-UseMaximumSize"
	if args.Size != nil {
		size = fmt.Sprintf("-Size %d", *args.Size)
	}
	partition, err := p.partition(
		fmt.Sprintf("New-Partition -DiskNumber %d -DriveLetter %s %s", args.DiskNumber, args.DriveLetter, size),
		fmt.Sprintf("new partition on disk %d", args.DiskNumber),
	)
	if errors.Is(err, errors.NotFound) {
		return volume.Partition{}, errors.Errorf("New-Partition on disk %d returned no partition", args.DiskNumber)
	}
	return partition, errors.Trace(err)
}

// SetPartitionDriveLetter is part of volume.PartitionManager.
func (p *PowerShell) SetPartitionDriveLetter(diskNumber, partitionNumber uint32, letter string) error {
	_, err := p.run(fmt.Sprintf("Set-Partition -DiskNumber %d -PartitionNumber %d -NewDriveLetter %s",
		diskNumber, partitionNumber, letter))
	return errors.Trace(err)
}

// ChangeDriveLetter is part of volume.PartitionManager.
func (p *PowerShell) ChangeDriveLetter(from, to string) error {
	_, err := p.run(fmt.Sprintf("Set-Partition -DriveLetter %s -NewDriveLetter %s", from, to))
	return errors.Trace(err)
}
