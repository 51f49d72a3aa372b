package volume_test

import (
	"github.com/juju/errors"
	"github.com/juju/loggo"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"dskvolume/internal/volume"
	"dskvolume/internal/volume/volumetesting"
)

type blockSizeSuite struct{}

var _ = gc.Suite(&blockSizeSuite{})

var testLogger = loggo.GetLogger("dskvolume.volume.test")

func (s *blockSizeSuite) TestFirstAnswerWins(c *gc.C) {
	first := &volumetesting.StaticBlockSize{Size: 4096}
	second := &volumetesting.StaticBlockSize{Size: 65536}
	size, ok := volume.BlockSizeChain{first, second}.BlockSize("D", testLogger)
	c.Assert(ok, jc.IsTrue)
	c.Check(size, gc.Equals, uint32(4096))
	c.Check(second.Asked, gc.HasLen, 0)
}

func (s *blockSizeSuite) TestFallsBackWhenEmpty(c *gc.C) {
	first := &volumetesting.StaticBlockSize{}
	second := &volumetesting.StaticBlockSize{Size: 65536}
	size, ok := volume.BlockSizeChain{first, second}.BlockSize("D", testLogger)
	c.Assert(ok, jc.IsTrue)
	c.Check(size, gc.Equals, uint32(65536))
	c.Check(first.Asked, jc.DeepEquals, []string{"D"})
	c.Check(second.Asked, jc.DeepEquals, []string{"D"})
}

func (s *blockSizeSuite) TestFallsBackOnError(c *gc.C) {
	first := &volumetesting.StaticBlockSize{Err: errors.New("wmi unavailable")}
	second := &volumetesting.StaticBlockSize{Size: 8192}
	size, ok := volume.BlockSizeChain{first, second}.BlockSize("D", testLogger)
	c.Assert(ok, jc.IsTrue)
	c.Check(size, gc.Equals, uint32(8192))
}

func (s *blockSizeSuite) TestNoAnswer(c *gc.C) {
	_, ok := volume.BlockSizeChain{
		&volumetesting.StaticBlockSize{},
		&volumetesting.StaticBlockSize{Err: errors.New("boom")},
	}.BlockSize("D", testLogger)
	c.Check(ok, jc.IsFalse)

	_, ok = volume.BlockSizeChain(nil).BlockSize("D", testLogger)
	c.Check(ok, jc.IsFalse)
}
