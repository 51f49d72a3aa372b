package host

import (
	"fmt"
	"math"

	"github.com/juju/errors"

	"dskvolume/internal/driveletter"
	"dskvolume/internal/volume"
)

type blockSizeRow struct {
	BlockSize *uint64 `json:"BlockSize"`
}

// wmiBlockSize reads Win32_Volume.BlockSize through one of the two
// PowerShell WMI front ends.
type wmiBlockSize struct {
	p *PowerShell
	// pipeline is a format string taking the "D:" drive path.
	pipeline string
}

var (
	cimVolumeQuery    = `Get-CimInstance -ClassName Win32_Volume -Filter "DriveLetter = '%s'" -ErrorAction SilentlyContinue`
	legacyVolumeQuery = `Get-WmiObject -Class Win32_Volume -Filter "DriveLetter = '%s'" -ErrorAction SilentlyContinue`
)

// BlockSize is part of volume.BlockSizeSource.
func (s wmiBlockSize) BlockSize(letter string) (uint32, error) {
	pipeline := fmt.Sprintf(s.pipeline, driveletter.Path(letter)) + " | Select-Object BlockSize"
	rows, err := query[blockSizeRow](s.p, pipeline)
	if err != nil {
		return 0, errors.Trace(err)
	}
	for _, row := range rows {
		if row.BlockSize == nil || *row.BlockSize == 0 {
			continue
		}
		if *row.BlockSize > math.MaxUint32 {
			return 0, errors.NotValidf("block size %d for %s", *row.BlockSize, driveletter.Path(letter))
		}
		return uint32(*row.BlockSize), nil
	}
	return 0, errors.NotFoundf("block size for %s:", letter)
}

// BlockSizeSources returns the allocation unit size sources in the order
// they are asked: CIM, the legacy WMI cmdlet, then any native source the
// platform offers.
func (p *PowerShell) BlockSizeSources() volume.BlockSizeChain {
	chain := volume.BlockSizeChain{
		wmiBlockSize{p: p, pipeline: cimVolumeQuery},
		wmiBlockSize{p: p, pipeline: legacyVolumeQuery},
	}
	return append(chain, nativeBlockSizeSources()...)
}
