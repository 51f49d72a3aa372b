package main

import (
	"time"

	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"dskvolume/internal/config"
	"dskvolume/internal/units"
	"dskvolume/internal/volume"
)

const defaultLogLevel = "<root>=WARNING"

// desiredFlags are the persistent flags shared by get, test and set. Flags
// that were given override the keys of the --config document.
type desiredFlags struct {
	configPath         string
	diskNumber         uint32
	driveLetter        string
	size               string
	label              string
	allocationUnitSize string
	settleTimeout      time.Duration
	settleDelay        time.Duration
	logLevel           string
}

func (f *desiredFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.configPath, "config", "c", "", "TOML document describing the desired volume")
	flags.Uint32VarP(&f.diskNumber, "disk-number", "n", 0, "number of the disk holding the volume")
	flags.StringVarP(&f.driveLetter, "drive-letter", "l", "", "drive letter of the volume, such as D")
	flags.StringVar(&f.size, "size", "", "partition size, such as 100G (default all free space)")
	flags.StringVar(&f.label, "label", "", "file system label of the volume")
	flags.StringVar(&f.allocationUnitSize, "allocation-unit-size", "", "allocation unit size used when formatting, such as 64K")
	flags.DurationVar(&f.settleTimeout, "settle-timeout", 0, "how long to wait for a new partition to become writable")
	flags.DurationVar(&f.settleDelay, "settle-delay", 0, "first pause between writable checks of a new partition")
	flags.StringVar(&f.logLevel, "log-level", "", `logging config, such as "<root>=INFO;dskvolume.host=TRACE"`)
}

// settings is the merged result of the --config document and the flags.
type settings struct {
	desired       volume.DesiredState
	settleTimeout time.Duration
	settleDelay   time.Duration
	logLevel      string
}

func (f *desiredFlags) resolve(flags *pflag.FlagSet) (settings, error) {
	var cfg config.Config
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return settings{}, errors.Trace(err)
		}
	}

	s := settings{
		desired:       cfg.Desired,
		settleTimeout: cfg.SettleTimeout,
		settleDelay:   cfg.SettleDelay,
		logLevel:      cfg.LogLevel,
	}
	hasDiskNumber := cfg.HasDiskNumber
	if flags.Changed("disk-number") {
		s.desired.DiskNumber = f.diskNumber
		hasDiskNumber = true
	}
	if flags.Changed("drive-letter") {
		s.desired.DriveLetter = f.driveLetter
	}
	if flags.Changed("size") {
		size, err := units.Parse(f.size)
		if err != nil {
			return settings{}, errors.Annotate(err, "--size")
		}
		if size == 0 {
			return settings{}, errors.NotValidf("--size %s", f.size)
		}
		s.desired.Size = &size
	}
	if flags.Changed("label") {
		label := f.label
		s.desired.Label = &label
	}
	if flags.Changed("allocation-unit-size") {
		unit, err := units.Parse(f.allocationUnitSize)
		if err != nil {
			return settings{}, errors.Annotate(err, "--allocation-unit-size")
		}
		if unit == 0 || unit > 1<<32-1 {
			return settings{}, errors.NotValidf("--allocation-unit-size %s", f.allocationUnitSize)
		}
		unit32 := uint32(unit)
		s.desired.AllocationUnitSize = &unit32
	}
	if flags.Changed("settle-timeout") {
		s.settleTimeout = f.settleTimeout
	}
	if flags.Changed("settle-delay") {
		s.settleDelay = f.settleDelay
	}
	if flags.Changed("log-level") {
		s.logLevel = f.logLevel
	}
	if s.logLevel == "" {
		s.logLevel = defaultLogLevel
	}

	if !hasDiskNumber {
		return settings{}, errors.NewNotValid(nil, "disk number required (--disk-number or disk_number)")
	}
	if s.desired.DriveLetter == "" {
		return settings{}, errors.NewNotValid(nil, "drive letter required (--drive-letter or drive_letter)")
	}
	desired, err := s.desired.Normalize()
	if err != nil {
		return settings{}, errors.Trace(err)
	}
	s.desired = desired
	return s, nil
}

// resolveFlags resolves the desired flags of cmd and applies the logging
// config they name.
func (f *desiredFlags) resolveFlags(cmd *cobra.Command, progress *progressWriter) (settings, error) {
	s, err := f.resolve(cmd.Flags())
	if err != nil {
		return settings{}, errors.Trace(err)
	}
	if err := setupLogging(cmd.ErrOrStderr(), s.logLevel, progress); err != nil {
		return settings{}, errors.Trace(err)
	}
	return s, nil
}
