package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"
	"github.com/juju/errors"

	"dskvolume/internal/volume"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

func writeObserved(w io.Writer, format string, observed volume.ObservedState) error {
	switch format {
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return errors.Trace(encoder.Encode(observed))
	case formatTable:
		_, err := fmt.Fprintln(w, observedTable(observed))
		return errors.Trace(err)
	}
	return errors.NotValidf("output format %q", format)
}

func observedTable(observed volume.ObservedState) *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 50
	table.AddRow("PROPERTY", "VALUE")
	table.AddRow("Disk", strconv.FormatUint(uint64(observed.DiskNumber), 10))

	if disk := observed.Disk; disk == nil {
		table.AddRow("Status", "not found")
	} else {
		status := "online"
		if disk.IsOffline {
			status = "offline"
		}
		if disk.IsReadOnly {
			status += ", read-only"
		}
		table.AddRow("Status", status)
		table.AddRow("Partition style", string(disk.PartitionStyle))
	}

	table.AddRow("Drive letter", observed.DriveLetter+":")
	if partition := observed.Partition; partition == nil {
		table.AddRow("Partition", "not found")
	} else {
		table.AddRow("Partition", fmt.Sprintf("%d on disk %d", partition.Number, partition.DiskNumber))
		table.AddRow("Size", sizeString(partition.Size))
	}

	if v := observed.Volume; v == nil {
		table.AddRow("Volume", "not found")
	} else {
		table.AddRow("File system", v.FileSystem)
		table.AddRow("Label", strconv.Quote(v.FileSystemLabel))
	}
	if unit := observed.AllocationUnitSize; unit != nil {
		table.AddRow("Allocation unit", humanize.IBytes(uint64(*unit)))
	} else {
		table.AddRow("Allocation unit", "unknown")
	}
	return table
}

func sizeString(size uint64) string {
	return fmt.Sprintf("%s (%d bytes)", humanize.IBytes(size), size)
}
