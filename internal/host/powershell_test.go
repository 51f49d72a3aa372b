package host

import (
	"strings"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	"go.uber.org/mock/gomock"
	gc "gopkg.in/check.v1"

	"dskvolume/internal/volume"
)

type powerShellSuite struct {
	runner *MockRunner
}

var _ = gc.Suite(&powerShellSuite{})

func (s *powerShellSuite) setup(c *gc.C) (*PowerShell, *gomock.Controller) {
	ctrl := gomock.NewController(c)
	s.runner = NewMockRunner(ctrl)
	return New(s.runner), ctrl
}

// expect queues one script run. The script must start with the preamble
// and contain every fragment in order.
func (s *powerShellSuite) expect(c *gc.C, output string, err error, fragments ...string) {
	s.runner.EXPECT().Run(gomock.Any()).DoAndReturn(func(script string) ([]byte, error) {
		c.Check(strings.HasPrefix(script, preamble), jc.IsTrue, gc.Commentf("script %q", script))
		rest := script
		for _, fragment := range fragments {
			i := strings.Index(rest, fragment)
			c.Check(i >= 0, jc.IsTrue, gc.Commentf("%q not found in %q", fragment, script))
			if i >= 0 {
				rest = rest[i+len(fragment):]
			}
		}
		return []byte(output), err
	})
}

func (s *powerShellSuite) TestDisk(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, `[{"Number":2,"IsOffline":true,"IsReadOnly":false,"PartitionStyle":"Gpt"}]`, nil,
		"ConvertTo-Json", "Get-Disk -Number 2 -ErrorAction SilentlyContinue", "Select-Object Number")

	disk, err := p.Disk(2)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(disk, jc.DeepEquals, volume.Disk{
		Number:         2,
		IsOffline:      true,
		PartitionStyle: volume.PartitionStyleGPT,
	})
}

func (s *powerShellSuite) TestDiskNotFound(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, "[]\r\n", nil, "Get-Disk -Number 9")

	_, err := p.Disk(9)
	c.Check(errors.Is(err, errors.NotFound), jc.IsTrue)
	c.Check(err, gc.ErrorMatches, "disk 9 not found")
}

func (s *powerShellSuite) TestDiskEmptyOutput(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, "", nil, "Get-Disk -Number 9")

	_, err := p.Disk(9)
	c.Check(errors.Is(err, errors.NotFound), jc.IsTrue)
}

func (s *powerShellSuite) TestDiskRunnerFailure(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, "", errors.New("powershell failed: access denied"), "Get-Disk")

	_, err := p.Disk(2)
	c.Check(err, gc.ErrorMatches, "powershell failed: access denied")
	c.Check(errors.Is(err, errors.NotFound), jc.IsFalse)
}

func (s *powerShellSuite) TestDiskBadJSON(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, "WARNING: something", nil, "Get-Disk")

	_, err := p.Disk(2)
	c.Check(err, gc.ErrorMatches, `decoding "WARNING: something": .*`)
}

func (s *powerShellSuite) TestDiskMutations(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, "", nil, "Set-Disk -Number 2 -IsOffline $false")
	s.expect(c, "", nil, "Set-Disk -Number 2 -IsReadOnly $false")
	s.expect(c, "", nil, "Initialize-Disk -Number 2 -PartitionStyle GPT")

	c.Assert(p.SetDiskOnline(2), jc.ErrorIsNil)
	c.Assert(p.SetDiskWritable(2), jc.ErrorIsNil)
	c.Assert(p.InitializeDisk(2, volume.PartitionStyleGPT), jc.ErrorIsNil)
}

func (s *powerShellSuite) TestInitializeDiskRejectsStyle(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()

	err := p.InitializeDisk(2, volume.PartitionStyle("GPT; Clear-Disk"))
	c.Check(errors.Is(err, errors.NotValid), jc.IsTrue)
}

func (s *powerShellSuite) TestPartitionByDriveLetter(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, `[{"DiskNumber":2,"PartitionNumber":2,"DriveLetter":"D","Size":1073741824,"IsReadOnly":false}]`, nil,
		"Get-Partition -DriveLetter D -ErrorAction SilentlyContinue", "Select-Object DiskNumber")

	partition, err := p.PartitionByDriveLetter("D")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(partition, jc.DeepEquals, volume.Partition{
		DiskNumber:  2,
		Number:      2,
		DriveLetter: "D",
		Size:        1 << 30,
	})
}

func (s *powerShellSuite) TestPartitionWithoutLetter(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, `[{"DiskNumber":2,"PartitionNumber":3,"DriveLetter":"\u0000","Size":4096,"IsReadOnly":true}]`, nil,
		"Get-Partition -DiskNumber 2 -PartitionNumber 3")

	partition, err := p.Partition(2, 3)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(partition.DriveLetter, gc.Equals, "")
	c.Check(partition.IsReadOnly, jc.IsTrue)
}

func (s *powerShellSuite) TestPartitionNotFound(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, "[]", nil, "Get-Partition -DriveLetter Q")

	_, err := p.PartitionByDriveLetter("Q")
	c.Check(errors.Is(err, errors.NotFound), jc.IsTrue)
	c.Check(err, gc.ErrorMatches, "partition Q: not found")
}

func (s *powerShellSuite) TestNewPartition(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, `[{"DiskNumber":2,"PartitionNumber":2,"DriveLetter":"D","Size":1073741824,"IsReadOnly":true}]`, nil,
		"New-Partition -DiskNumber 2 -DriveLetter D -Size 1073741824 | Select-Object")
	s.expect(c, `[{"DiskNumber":2,"PartitionNumber":2,"DriveLetter":"E","Size":9000,"IsReadOnly":false}]`, nil,
		"New-Partition -DiskNumber 2 -DriveLetter E -UseMaximumSize | Select-Object")

	size := uint64(1 << 30)
	partition, err := p.NewPartition(volume.NewPartitionArgs{DiskNumber: 2, DriveLetter: "D", Size: &size})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(partition.Number, gc.Equals, uint32(2))
	c.Check(partition.IsReadOnly, jc.IsTrue)

	partition, err = p.NewPartition(volume.NewPartitionArgs{DiskNumber: 2, DriveLetter: "E"})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(partition.Size, gc.Equals, uint64(9000))
}

func (s *powerShellSuite) TestNewPartitionNoOutput(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, "[]", nil, "New-Partition")

	_, err := p.NewPartition(volume.NewPartitionArgs{DiskNumber: 2, DriveLetter: "D"})
	c.Check(err, gc.ErrorMatches, "New-Partition on disk 2 returned no partition")
}

func (s *powerShellSuite) TestDriveLetterChanges(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, "", nil, "Set-Partition -DiskNumber 2 -PartitionNumber 2 -NewDriveLetter D")
	s.expect(c, "", nil, "Set-Partition -DriveLetter E -NewDriveLetter D")

	c.Assert(p.SetPartitionDriveLetter(2, 2, "D"), jc.ErrorIsNil)
	c.Assert(p.ChangeDriveLetter("E", "D"), jc.ErrorIsNil)
}

func (s *powerShellSuite) TestVolumeByDriveLetter(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, `[{"DriveLetter":"D","FileSystem":"NTFS","FileSystemLabel":"DATA","Size":1073741824}]`, nil,
		"Get-Volume -DriveLetter D -ErrorAction SilentlyContinue")

	v, err := p.VolumeByDriveLetter("D")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(v, jc.DeepEquals, volume.Volume{
		DriveLetter:     "D",
		FileSystem:      "NTFS",
		FileSystemLabel: "DATA",
		Size:            1 << 30,
	})
}

func (s *powerShellSuite) TestDiskVolumes(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, `[{"DriveLetter":null,"FileSystem":"NTFS","FileSystemLabel":"","Size":10}]`, nil,
		"Get-Partition -DiskNumber 2", "Get-Volume", "Where-Object { $_.FileSystem }")

	volumes, err := p.DiskVolumes(2)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(volumes, jc.DeepEquals, []volume.Volume{{FileSystem: "NTFS", Size: 10}})
}

func (s *powerShellSuite) TestFormatVolume(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, "", nil,
		"Get-Partition -DiskNumber 2 -PartitionNumber 2 | Format-Volume -FileSystem NTFS -Confirm:$false -Force | Out-Null")
	s.expect(c, "", nil,
		"Format-Volume -FileSystem NTFS", "-NewFileSystemLabel 'Bob''s data'", "-AllocationUnitSize 65536", "| Out-Null")

	c.Assert(p.FormatVolume(volume.FormatArgs{DiskNumber: 2, PartitionNumber: 2, FileSystem: "NTFS"}), jc.ErrorIsNil)

	label := "Bob's data"
	unit := uint32(65536)
	c.Assert(p.FormatVolume(volume.FormatArgs{
		DiskNumber:         2,
		PartitionNumber:    2,
		FileSystem:         "NTFS",
		Label:              &label,
		AllocationUnitSize: &unit,
	}), jc.ErrorIsNil)
}

func (s *powerShellSuite) TestSetVolumeLabel(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, "", nil, "Set-Volume -DriveLetter D -NewFileSystemLabel ''")

	c.Assert(p.SetVolumeLabel("D", ""), jc.ErrorIsNil)
}

func (s *powerShellSuite) TestBlockSizeSources(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, `[{"BlockSize":null}]`, nil, "Get-CimInstance -ClassName Win32_Volume", `"DriveLetter = 'D:'"`)
	s.expect(c, `[{"BlockSize":65536}]`, nil, "Get-WmiObject -Class Win32_Volume", `"DriveLetter = 'D:'"`)

	chain := p.BlockSizeSources()
	c.Assert(len(chain) >= 2, jc.IsTrue)
	_, err := chain[0].BlockSize("D")
	c.Check(errors.Is(err, errors.NotFound), jc.IsTrue)
	size, err := chain[1].BlockSize("D")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(size, gc.Equals, uint32(65536))
}

func (s *powerShellSuite) TestQuote(c *gc.C) {
	c.Check(quote(""), gc.Equals, "''")
	c.Check(quote("DATA"), gc.Equals, "'DATA'")
	c.Check(quote("it's"), gc.Equals, "'it''s'")
	c.Check(quote("it’s"), gc.Equals, "'it’’s'")
	c.Check(quote("$env:PATH"), gc.Equals, "'$env:PATH'")
}

func (s *powerShellSuite) TestLetter(c *gc.C) {
	c.Check(letter("d"), gc.Equals, "D")
	c.Check(letter("\x00"), gc.Equals, "")
	c.Check(letter(""), gc.Equals, "")
}

func (s *powerShellSuite) TestBlockSizeOutOfRange(c *gc.C) {
	p, ctrl := s.setup(c)
	defer ctrl.Finish()
	s.expect(c, `[{"BlockSize":4294967296}]`, nil, "Get-CimInstance", `"DriveLetter = 'D:'"`)

	_, err := p.BlockSizeSources()[0].BlockSize("D")
	c.Check(errors.Is(err, errors.NotValid), jc.IsTrue)
	c.Check(err, gc.ErrorMatches, "block size 4294967296 for D: not valid")
}
