package volume_test

import (
	"strings"

	"github.com/juju/loggo"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"dskvolume/internal/volume"
)

type compareSuite struct{}

var _ = gc.Suite(&compareSuite{})

func matchingState() volume.ObservedState {
	unit := uint32(4096)
	return volume.ObservedState{
		DiskNumber:  2,
		DriveLetter: "D",
		Disk: &volume.Disk{
			Number:         2,
			PartitionStyle: volume.PartitionStyleGPT,
		},
		Partition: &volume.Partition{
			DiskNumber:  2,
			Number:      2,
			DriveLetter: "D",
			Size:        5 * gib,
		},
		Volume: &volume.Volume{
			DriveLetter:     "D",
			FileSystem:      volume.FileSystemNTFS,
			FileSystemLabel: "DATA",
			Size:            5 * gib,
		},
		AllocationUnitSize: &unit,
	}
}

func (s *compareSuite) TestCompare(c *gc.C) {
	for i, test := range []struct {
		about    string
		observe  func(*volume.ObservedState)
		desired  volume.DesiredState
		expected volume.Result
	}{{
		about:    "everything matches",
		desired:  volume.DesiredState{DiskNumber: 2, DriveLetter: "D", Size: uint64p(5 * gib), Label: stringp("DATA")},
		expected: volume.Result{Match: true},
	}, {
		about:    "optional fields absent",
		desired:  volume.DesiredState{DiskNumber: 2, DriveLetter: "D"},
		expected: volume.Result{Match: true},
	}, {
		about:    "disk missing",
		observe:  func(o *volume.ObservedState) { o.Disk = nil },
		desired:  volume.DesiredState{DiskNumber: 2, DriveLetter: "D"},
		expected: volume.Result{Reason: volume.ReasonDiskNotFound},
	}, {
		about: "offline wins over partition style",
		observe: func(o *volume.ObservedState) {
			o.Disk.IsOffline = true
			o.Disk.IsReadOnly = true
			o.Disk.PartitionStyle = volume.PartitionStyleMBR
		},
		desired:  volume.DesiredState{DiskNumber: 2, DriveLetter: "D"},
		expected: volume.Result{Reason: volume.ReasonDiskOffline},
	}, {
		about: "read-only wins over partition style",
		observe: func(o *volume.ObservedState) {
			o.Disk.IsReadOnly = true
			o.Disk.PartitionStyle = volume.PartitionStyleRAW
		},
		desired:  volume.DesiredState{DiskNumber: 2, DriveLetter: "D"},
		expected: volume.Result{Reason: volume.ReasonDiskReadOnly},
	}, {
		about:    "raw disk",
		observe:  func(o *volume.ObservedState) { o.Disk.PartitionStyle = volume.PartitionStyleRAW },
		desired:  volume.DesiredState{DiskNumber: 2, DriveLetter: "D"},
		expected: volume.Result{Reason: volume.ReasonNotGPT},
	}, {
		about:    "no partition",
		observe:  func(o *volume.ObservedState) { o.Partition = nil },
		desired:  volume.DesiredState{DiskNumber: 2, DriveLetter: "D"},
		expected: volume.Result{Reason: volume.ReasonLetterNotFound},
	}, {
		about:    "other letter",
		desired:  volume.DesiredState{DiskNumber: 2, DriveLetter: "E"},
		expected: volume.Result{Reason: volume.ReasonLetterNotFound},
	}, {
		about:    "size differs",
		desired:  volume.DesiredState{DiskNumber: 2, DriveLetter: "D", Size: uint64p(6 * gib), Label: stringp("OTHER")},
		expected: volume.Result{Reason: volume.ReasonSizeMismatch},
	}, {
		about:    "allocation unit differs",
		desired:  volume.DesiredState{DiskNumber: 2, DriveLetter: "D", AllocationUnitSize: uint32p(65536)},
		expected: volume.Result{Match: true},
	}, {
		about:    "label differs",
		desired:  volume.DesiredState{DiskNumber: 2, DriveLetter: "D", Label: stringp("OTHER")},
		expected: volume.Result{Reason: volume.ReasonLabelMismatch},
	}, {
		about:    "empty label is a supplied label",
		desired:  volume.DesiredState{DiskNumber: 2, DriveLetter: "D", Label: stringp("")},
		expected: volume.Result{Reason: volume.ReasonLabelMismatch},
	}, {
		about:    "label without a volume",
		observe:  func(o *volume.ObservedState) { o.Volume = nil },
		desired:  volume.DesiredState{DiskNumber: 2, DriveLetter: "D", Label: stringp("")},
		expected: volume.Result{Reason: volume.ReasonLabelMismatch},
	}, {
		about:    "no volume and no label",
		observe:  func(o *volume.ObservedState) { o.Volume = nil },
		desired:  volume.DesiredState{DiskNumber: 2, DriveLetter: "D"},
		expected: volume.Result{Match: true},
	}} {
		c.Logf("test %d: %s", i, test.about)
		observed := matchingState()
		if test.observe != nil {
			test.observe(&observed)
		}
		result := volume.NewComparator(nil).Compare(observed, test.desired)
		c.Check(result, jc.DeepEquals, test.expected)
	}
}

func (s *compareSuite) TestAllocationUnitDriftIsLogged(c *gc.C) {
	var writer loggo.TestWriter
	c.Assert(loggo.RegisterWriter("compare-test", &writer), jc.ErrorIsNil)
	defer loggo.RemoveWriter("compare-test")
	log := loggo.GetLogger("dskvolume.volume.comparetest")
	log.SetLogLevel(loggo.INFO)

	desired := volume.DesiredState{DiskNumber: 2, DriveLetter: "D", AllocationUnitSize: uint32p(65536)}
	result := volume.NewComparator(log).Compare(matchingState(), desired)
	c.Assert(result.Match, jc.IsTrue)

	var found bool
	for _, entry := range writer.Log() {
		if strings.Contains(entry.Message, "allocation unit size 4096 does not match desired 65536") {
			found = true
		}
	}
	c.Check(found, jc.IsTrue)
}

func (s *compareSuite) TestZeroAllocationUnitIsIgnored(c *gc.C) {
	observed := matchingState()
	zero := uint32(0)
	observed.AllocationUnitSize = &zero
	desired := volume.DesiredState{DiskNumber: 2, DriveLetter: "D", AllocationUnitSize: uint32p(65536)}
	c.Check(volume.NewComparator(nil).Compare(observed, desired).Match, jc.IsTrue)
}
