// Package volume brings a disk volume on a host into a desired state.
//
// The package is split in three parts that an external engine drives in
// order:
//
//   - the Inspector reads the current disk, partition, volume and
//     allocation unit facts into an ObservedState;
//   - the Comparator decides whether an ObservedState satisfies a
//     DesiredState, reporting the first check that fails;
//   - the Reconciler performs the ordered, irreversible steps that move the
//     host toward the DesiredState, re-reading the facts each step needs.
//
// All host access goes through the Storage interface so the logic can be
// exercised against a fake.
package volume

import "github.com/juju/loggo"

var logger = loggo.GetLogger("dskvolume.volume")
