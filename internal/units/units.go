// Package units parses byte counts written with binary unit suffixes.
package units

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/juju/errors"
)

const (
	kb = 1 << 10
	mb = 1 << 20
	gb = 1 << 30
	tb = 1 << 40
	pb = 1 << 50
)

// Unit represents a data size unit with its suffixes and multiplier.
type Unit struct {
	Names      []string
	Multiplier uint64
}

// Units accepted by Parse. Every multiplier is a power of 1024, the same
// meaning PowerShell gives to its KB/MB/GB/TB/PB literals.
var units = []Unit{
	{[]string{"", "B"}, 1},
	{[]string{"K", "KB", "KIB"}, kb},
	{[]string{"M", "MB", "MIB"}, mb},
	{[]string{"G", "GB", "GIB"}, gb},
	{[]string{"T", "TB", "TIB"}, tb},
	{[]string{"P", "PB", "PIB"}, pb},
}

// Parse parses size strings like "1G", "500M", "1GB", "512MiB" or a plain
// byte count into bytes.
func Parse(sizeStr string) (uint64, error) {
	sizeStr = strings.TrimSpace(sizeStr)
	if sizeStr == "" {
		return 0, errors.NotValidf("empty size")
	}

	split := strings.IndexFunc(sizeStr, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '.'
	})
	number, suffix := sizeStr, ""
	if split >= 0 {
		number, suffix = sizeStr[:split], sizeStr[split:]
	}
	if number == "" {
		return 0, errors.NotValidf("size %q", sizeStr)
	}

	multiplier, ok := lookup(strings.ToUpper(strings.TrimSpace(suffix)))
	if !ok {
		return 0, errors.NotValidf("unit %q in size %q (use B, K/KB, M/MB, G/GB, T/TB, P/PB)", suffix, sizeStr)
	}

	if whole, err := strconv.ParseUint(number, 10, 64); err == nil {
		if whole > math.MaxUint64/multiplier {
			return 0, errors.NotValidf("size %q overflows", sizeStr)
		}
		return whole * multiplier, nil
	}

	fraction, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, errors.NotValidf("size %q", sizeStr)
	}
	bytes := fraction * float64(multiplier)
	if bytes >= math.MaxUint64 {
		return 0, errors.NotValidf("size %q overflows", sizeStr)
	}
	return uint64(bytes), nil
}

func lookup(suffix string) (uint64, bool) {
	for _, unit := range units {
		for _, name := range unit.Names {
			if name == suffix {
				return unit.Multiplier, true
			}
		}
	}
	return 0, false
}
