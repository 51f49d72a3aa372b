package host

import (
	"fmt"
	"strings"

	"github.com/juju/errors"

	"dskvolume/internal/volume"
)

const diskFields = "Number, IsOffline, IsReadOnly, @{n='PartitionStyle';e={[string]$_.PartitionStyle}}"

type diskRow struct {
	Number         uint32 `json:"Number"`
	IsOffline      bool   `json:"IsOffline"`
	IsReadOnly     bool   `json:"IsReadOnly"`
	PartitionStyle string `json:"PartitionStyle"`
}

func (r diskRow) disk() volume.Disk {
	return volume.Disk{
		Number:         r.Number,
		IsOffline:      r.IsOffline,
		IsReadOnly:     r.IsReadOnly,
		PartitionStyle: volume.PartitionStyle(strings.ToUpper(r.PartitionStyle)),
	}
}

// Disk is part of volume.DiskManager.
func (p *PowerShell) Disk(number uint32) (volume.Disk, error) {
	rows, err := query[diskRow](p, fmt.Sprintf(
		"Get-Disk -Number %d -ErrorAction SilentlyContinue | Select-Object %s", number, diskFields))
	if err != nil {
		return volume.Disk{}, errors.Trace(err)
	}
	if len(rows) == 0 {
		return volume.Disk{}, errors.NotFoundf("disk %d", number)
	}
	return rows[0].disk(), nil
}

// SetDiskOnline is part of volume.DiskManager.
func (p *PowerShell) SetDiskOnline(number uint32) error {
	_, err := p.run(fmt.Sprintf("Set-Disk -Number %d -IsOffline $false", number))
	return errors.Trace(err)
}

// SetDiskWritable is part of volume.DiskManager.
func (p *PowerShell) SetDiskWritable(number uint32) error {
	_, err := p.run(fmt.Sprintf("Set-Disk -Number %d -IsReadOnly $false", number))
	return errors.Trace(err)
}

// InitializeDisk is part of volume.DiskManager.
func (p *PowerShell) InitializeDisk(number uint32, style volume.PartitionStyle) error {
	if style != volume.PartitionStyleGPT && style != volume.PartitionStyleMBR {
		return errors.NotValidf("partition style %q", style)
	}
	_, err := p.run(fmt.Sprintf("Initialize-Disk -Number %d -PartitionStyle %s", number, style))
	return errors.Trace(err)
}
