// Package config loads the desired state of a volume from a TOML document.
package config

import (
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/juju/errors"

	"dskvolume/internal/driveletter"
	"dskvolume/internal/units"
	"dskvolume/internal/volume"
)

// ByteSize is a byte count written either as a TOML integer or as a
// string with a binary unit suffix such as "100G".
type ByteSize uint64

// UnmarshalTOML implements toml.Unmarshaler.
func (b *ByteSize) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case int64:
		if v < 0 {
			return errors.NotValidf("negative size %d", v)
		}
		*b = ByteSize(v)
	case string:
		n, err := units.Parse(v)
		if err != nil {
			return errors.Trace(err)
		}
		*b = ByteSize(n)
	default:
		return errors.NotValidf("size of type %T", data)
	}
	return nil
}

// fileConfig maps the keys of the document.
type fileConfig struct {
	DiskNumber         int64    `toml:"disk_number"`
	DriveLetter        string   `toml:"drive_letter"`
	Size               ByteSize `toml:"size"`
	Label              string   `toml:"label"`
	AllocationUnitSize ByteSize `toml:"allocation_unit_size"`
	Settle             struct {
		Timeout time.Duration `toml:"timeout"`
		Delay   time.Duration `toml:"delay"`
	} `toml:"settle"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// Config is a loaded document. Keys absent from the document leave the
// matching optional field of Desired nil, and HasDiskNumber false.
type Config struct {
	Desired       volume.DesiredState
	HasDiskNumber bool

	// Zero settle durations mean the provider defaults.
	SettleTimeout time.Duration
	SettleDelay   time.Duration

	// LogLevel is a loggo logging config such as "<root>=INFO".
	LogLevel string
}

// Load reads the document at path.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, errors.NotFoundf("config file %q", path)
	}
	if err != nil {
		return Config{}, errors.Annotatef(err, "loading %s", path)
	}
	cfg, err := fromFile(raw, meta)
	return cfg, errors.Annotatef(err, "loading %s", path)
}

// Parse reads a document held in memory.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, errors.Annotate(err, "parsing config")
	}
	cfg, err := fromFile(raw, meta)
	return cfg, errors.Trace(err)
}

func fromFile(raw fileConfig, meta toml.MetaData) (Config, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		sort.Strings(keys)
		return Config{}, errors.NotValidf("unknown keys %s", strings.Join(keys, ", "))
	}

	var cfg Config
	if meta.IsDefined("disk_number") {
		if raw.DiskNumber < 0 || raw.DiskNumber > math.MaxUint32 {
			return Config{}, errors.NotValidf("disk_number %d", raw.DiskNumber)
		}
		cfg.Desired.DiskNumber = uint32(raw.DiskNumber)
		cfg.HasDiskNumber = true
	}
	if meta.IsDefined("drive_letter") {
		letter, err := driveletter.Normalize(raw.DriveLetter)
		if err != nil {
			return Config{}, errors.Trace(err)
		}
		cfg.Desired.DriveLetter = letter
	}
	if meta.IsDefined("size") {
		if raw.Size == 0 {
			return Config{}, errors.NotValidf("size 0")
		}
		size := uint64(raw.Size)
		cfg.Desired.Size = &size
	}
	if meta.IsDefined("label") {
		label := raw.Label
		cfg.Desired.Label = &label
	}
	if meta.IsDefined("allocation_unit_size") {
		if raw.AllocationUnitSize == 0 || raw.AllocationUnitSize > math.MaxUint32 {
			return Config{}, errors.NotValidf("allocation_unit_size %d", raw.AllocationUnitSize)
		}
		unit := uint32(raw.AllocationUnitSize)
		cfg.Desired.AllocationUnitSize = &unit
	}
	if raw.Settle.Timeout < 0 {
		return Config{}, errors.NotValidf("negative settle.timeout")
	}
	if raw.Settle.Delay < 0 {
		return Config{}, errors.NotValidf("negative settle.delay")
	}
	cfg.SettleTimeout = raw.Settle.Timeout
	cfg.SettleDelay = raw.Settle.Delay
	cfg.LogLevel = strings.TrimSpace(raw.Log.Level)
	return cfg, nil
}
