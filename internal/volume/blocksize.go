package volume

import (
	"github.com/juju/errors"
)

// BlockSizeSource answers allocation unit size queries for a drive letter.
// BlockSize returns an error satisfying errors.NotFound when the source
// has no answer for the letter.
type BlockSizeSource interface {
	BlockSize(letter string) (uint32, error)
}

// BlockSizeChain asks each source in turn and keeps the first answer.
type BlockSizeChain []BlockSizeSource

// BlockSize walks the chain for letter. A source that fails is logged and
// skipped, the same as a source with no answer. The second result is
// false when no source produced a size.
func (c BlockSizeChain) BlockSize(letter string, logger Logger) (uint32, bool) {
	for i, source := range c {
		size, err := source.BlockSize(letter)
		switch {
		case errors.Is(err, errors.NotFound):
			logger.Debugf("block size source %d (%T) has no answer for %s:", i, source, letter)
			continue
		case err != nil:
			logger.Warningf("block size source %d (%T) failed for %s: %v", i, source, letter, err)
			continue
		case size == 0:
			continue
		}
		return size, true
	}
	return 0, false
}
