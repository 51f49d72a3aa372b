package main

import (
	"fmt"
	"io"
	"os"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"dskvolume/internal/host"
	"dskvolume/internal/volume"
)

var appversion = "0.1.0"

const (
	exitMismatch     = 1
	exitError        = 2
	exitNoPermission = 13
)

// errMismatch is returned by the test command when the host does not match.
const errMismatch = errors.ConstError("host does not match the desired state")

// environ is everything the commands touch outside the process.
type environ struct {
	stdout io.Writer
	stderr io.Writer

	storage      volume.Storage
	blockSizes   volume.BlockSizeChain
	clock        clock.Clock
	requireAdmin func() error
}

func hostEnviron() *environ {
	ps := host.New(host.NewRunner())
	return &environ{
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		storage:      ps,
		blockSizes:   ps.BlockSizeSources(),
		clock:        clock.WallClock,
		requireAdmin: host.RequireAdmin,
	}
}

func main() {
	os.Exit(run(hostEnviron(), os.Args[1:]))
}

func run(env *environ, args []string) int {
	root := newRootCommand(env)
	root.SetArgs(args)
	root.SetOut(env.stdout)
	root.SetErr(env.stderr)
	return exitCode(env.stderr, root.Execute())
}

func exitCode(stderr io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errMismatch):
		return exitMismatch
	case errors.Is(err, errors.Unauthorized):
		fmt.Fprintf(stderr, "ERROR %v, try with elevated privileges\n", err)
		return exitNoPermission
	default:
		fmt.Fprintf(stderr, "ERROR %v\n", err)
		return exitError
	}
}
