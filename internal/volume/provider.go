package volume

import (
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
)

// Config holds everything a Provider needs.
type Config struct {
	Storage          Storage
	BlockSizeSources BlockSizeChain
	Clock            clock.Clock
	SettleTimeout    time.Duration
	SettleDelay      time.Duration
	Logger           Logger
}

// Provider exposes the three entry points of the resource: Inspect, Test
// and Converge. Every call reads the host afresh; nothing is cached
// between calls.
type Provider struct {
	inspector  *Inspector
	comparator Comparator
	reconciler *Reconciler
}

// NewProvider returns a Provider for config.
func NewProvider(config Config) (*Provider, error) {
	reconciler, err := NewReconciler(ReconcilerConfig{
		Storage:       config.Storage,
		Clock:         config.Clock,
		SettleTimeout: config.SettleTimeout,
		SettleDelay:   config.SettleDelay,
		Logger:        config.Logger,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Provider{
		inspector:  NewInspector(config.Storage, config.BlockSizeSources, config.Logger),
		comparator: NewComparator(config.Logger),
		reconciler: reconciler,
	}, nil
}

// Inspect returns the current state of the disk and drive letter named in
// desired. The optional fields of desired do not change what is read.
func (p *Provider) Inspect(desired DesiredState) (ObservedState, error) {
	observed, err := p.inspector.Inspect(desired.DiskNumber, desired.DriveLetter)
	return observed, errors.Trace(err)
}

// Evaluate inspects the host and compares the result with desired.
func (p *Provider) Evaluate(desired DesiredState) (Result, error) {
	desired, err := desired.Normalize()
	if err != nil {
		return Result{}, errors.Trace(err)
	}
	observed, err := p.inspector.Inspect(desired.DiskNumber, desired.DriveLetter)
	if err != nil {
		return Result{}, errors.Trace(err)
	}
	return p.comparator.Compare(observed, desired), nil
}

// Test reports whether the host already matches desired.
func (p *Provider) Test(desired DesiredState) (bool, error) {
	result, err := p.Evaluate(desired)
	if err != nil {
		return false, errors.Trace(err)
	}
	return result.Match, nil
}

// Converge drives the host toward desired. It performs every step
// unconditionally; call it only after Test has reported a mismatch.
func (p *Provider) Converge(desired DesiredState) error {
	return errors.Trace(p.reconciler.Converge(desired))
}
