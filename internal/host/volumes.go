package host

import (
	"fmt"
	"strings"

	"github.com/juju/errors"

	"dskvolume/internal/volume"
)

const volumeFields = "@{n='DriveLetter';e={[string]$_.DriveLetter}}, FileSystem, FileSystemLabel, Size"

type volumeRow struct {
	DriveLetter     string `json:"DriveLetter"`
	FileSystem      string `json:"FileSystem"`
	FileSystemLabel string `json:"FileSystemLabel"`
	Size            uint64 `json:"Size"`
}

func (r volumeRow) volume() volume.Volume {
	return volume.Volume{
		DriveLetter:     letter(r.DriveLetter),
		FileSystem:      r.FileSystem,
		FileSystemLabel: r.FileSystemLabel,
		Size:            r.Size,
	}
}

// VolumeByDriveLetter is part of volume.VolumeManager.
func (p *PowerShell) VolumeByDriveLetter(letter string) (volume.Volume, error) {
	rows, err := query[volumeRow](p, fmt.Sprintf(
		"Get-Volume -DriveLetter %s -ErrorAction SilentlyContinue | Select-Object %s", letter, volumeFields))
	if err != nil {
		return volume.Volume{}, errors.Trace(err)
	}
	if len(rows) == 0 {
		return volume.Volume{}, errors.NotFoundf("volume %s:", letter)
	}
	return rows[0].volume(), nil
}

// DiskVolumes is part of volume.VolumeManager.
func (p *PowerShell) DiskVolumes(diskNumber uint32) ([]volume.Volume, error) {
	rows, err := query[volumeRow](p, fmt.Sprintf(
		"Get-Partition -DiskNumber %d -ErrorAction SilentlyContinue | Get-Volume -ErrorAction SilentlyContinue | "+
			"Where-Object { $_.FileSystem } | Select-Object %s", diskNumber, volumeFields))
	if err != nil {
		return nil, errors.Trace(err)
	}
	volumes := make([]volume.Volume, 0, len(rows))
	for _, row := range rows {
		volumes = append(volumes, row.volume())
	}
	return volumes, nil
}

// FormatVolume is part of volume.VolumeManager.
func (p *PowerShell) FormatVolume(args volume.FormatArgs) error {
	if args.FileSystem == "" {
		return errors.NotValidf("empty file system")
	}
	var script strings.Builder
	fmt.Fprintf(&script, "Get-Partition -DiskNumber %d -PartitionNumber %d | Format-Volume -FileSystem %s -Confirm:$false -Force",
		args.DiskNumber, args.PartitionNumber, args.FileSystem)
	if args.Label != nil {
		fmt.Fprintf(&script, " -NewFileSystemLabel %s", quote(*args.Label))
	}
	if args.AllocationUnitSize != nil {
		fmt.Fprintf(&script, " -AllocationUnitSize %d", *args.AllocationUnitSize)
	}
	script.WriteString(" | Out-Null")
	_, err := p.run(script.String())
	return errors.Trace(err)
}

// SetVolumeLabel is part of volume.VolumeManager.
func (p *PowerShell) SetVolumeLabel(letter, label string) error {
	_, err := p.run(fmt.Sprintf("Set-Volume -DriveLetter %s -NewFileSystemLabel %s", letter, quote(label)))
	return errors.Trace(err)
}
