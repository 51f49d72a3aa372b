//go:build windows

package host

import (
	"unsafe"

	"github.com/juju/errors"
	"golang.org/x/sys/windows"

	"dskvolume/internal/driveletter"
	"dskvolume/internal/volume"
)

const FSCTL_GET_NTFS_VOLUME_DATA = 0x00090064

// ntfsVolumeData mirrors NTFS_VOLUME_DATA_BUFFER.
type ntfsVolumeData struct {
	VolumeSerialNumber           int64
	NumberSectors                int64
	TotalClusters                int64
	FreeClusters                 int64
	TotalReserved                int64
	BytesPerSector               uint32
	BytesPerCluster              uint32
	BytesPerFileRecordSegment    uint32
	ClustersPerFileRecordSegment uint32
	MftValidDataLength           int64
	MftStartLcn                  int64
	Mft2StartLcn                 int64
	MftZoneStart                 int64
	MftZoneEnd                   int64
}

// ioctlBlockSize asks the NTFS driver for the cluster size directly.
type ioctlBlockSize struct{}

func nativeBlockSizeSources() []volume.BlockSizeSource {
	return []volume.BlockSizeSource{ioctlBlockSize{}}
}

// BlockSize is part of volume.BlockSizeSource.
func (ioctlBlockSize) BlockSize(letter string) (uint32, error) {
	volumePath := `\\.\` + driveletter.Path(letter)
	handle, err := windows.CreateFile(
		windows.StringToUTF16Ptr(volumePath),
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0)
	if err == windows.ERROR_FILE_NOT_FOUND || err == windows.ERROR_PATH_NOT_FOUND {
		return 0, errors.NotFoundf("volume %s:", letter)
	}
	if err != nil {
		return 0, errors.Annotatef(err, "opening volume %s:", letter)
	}
	defer windows.CloseHandle(handle)

	var data ntfsVolumeData
	var bytesReturned uint32
	err = windows.DeviceIoControl(
		handle,
		FSCTL_GET_NTFS_VOLUME_DATA,
		nil,
		0,
		(*byte)(unsafe.Pointer(&data)),
		uint32(unsafe.Sizeof(data)),
		&bytesReturned,
		nil)
	// Volumes that are not NTFS reject the request.
	if err == windows.ERROR_INVALID_PARAMETER || err == windows.ERROR_INVALID_FUNCTION {
		return 0, errors.NotFoundf("NTFS volume data for %s:", letter)
	}
	if err != nil {
		return 0, errors.Annotatef(err, "reading NTFS volume data for %s:", letter)
	}
	if data.BytesPerCluster == 0 {
		return 0, errors.NotFoundf("block size for %s:", letter)
	}
	return data.BytesPerCluster, nil
}
