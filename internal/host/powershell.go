// Package host implements the volume storage capability on a Windows host
// by driving the Storage module cmdlets through PowerShell.
package host

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"dskvolume/internal/volume"
)

var logger = loggo.GetLogger("dskvolume.host")

// preamble makes every cmdlet failure terminate the script with a non-zero
// exit status and keeps progress bars out of the output.
const preamble = "$ErrorActionPreference = 'Stop'; $ProgressPreference = 'SilentlyContinue'; "

// Runner runs a PowerShell script and returns its standard output.
type Runner interface {
	Run(script string) ([]byte, error)
}

type execRunner struct {
	path string
}

// NewRunner returns a Runner that starts powershell.exe for every script.
func NewRunner() Runner {
	return &execRunner{path: "powershell.exe"}
}

// Run is part of Runner.
func (r *execRunner) Run(script string) ([]byte, error) {
	cmd := exec.Command(r.path,
		"-NoLogo",
		"-NoProfile",
		"-NonInteractive",
		"-ExecutionPolicy", "Bypass",
		"-Command", script,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, errors.Annotatef(err, "powershell failed: %s", strings.TrimSpace(stderr.String()))
	}
	return output, nil
}

// PowerShell implements volume.Storage with Storage module cmdlets.
type PowerShell struct {
	runner Runner
}

var _ volume.Storage = (*PowerShell)(nil)

// New returns a PowerShell storage running scripts through runner.
func New(runner Runner) *PowerShell {
	return &PowerShell{runner: runner}
}

func (p *PowerShell) run(script string) ([]byte, error) {
	logger.Tracef("running %s", script)
	output, err := p.runner.Run(preamble + script)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return output, nil
}

// query runs pipeline and decodes its objects as JSON. The pipeline is
// wrapped in an array so one result and none decode the same way.
func query[T any](p *PowerShell, pipeline string) ([]T, error) {
	output, err := p.run(fmt.Sprintf("ConvertTo-Json -Compress -Depth 2 -InputObject @(%s)", pipeline))
	if err != nil {
		return nil, errors.Trace(err)
	}
	output = bytes.TrimSpace(output)
	if len(output) == 0 {
		return nil, nil
	}
	var rows []T
	if err := json.Unmarshal(output, &rows); err != nil {
		return nil, errors.Annotatef(err, "decoding %q", output)
	}
	return rows, nil
}

// quote renders s as a single-quoted PowerShell string.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		// PowerShell treats the typographic single quotes as quotes too.
		case '\'', '‘', '’', '‚', '‛':
			b.WriteRune(r)
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

// letter strips the NUL PowerShell reports for an unassigned drive letter.
func letter(s string) string {
	return strings.ToUpper(strings.Trim(s, "\x00 "))
}
