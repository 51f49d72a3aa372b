//go:build !windows

package host

import "dskvolume/internal/volume"

func nativeBlockSizeSources() []volume.BlockSizeSource {
	return nil
}
