package main

import (
	"fmt"
	"io"
	"time"

	"github.com/gosuri/uilive"
	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("dskvolume.cmd")

const progressWriterName = "progress"

func logFormatter(entry loggo.Entry) string {
	ts := entry.Timestamp.In(time.UTC).Format("2006-01-02 15:04:05")
	return fmt.Sprintf("%s %s %s %s", ts, entry.Level, entry.Module, entry.Message)
}

// setupLogging sends log entries to stderr and applies the loggo config
// string. With a progress writer, INFO and above go to the live line instead
// and stderr only gets warnings.
func setupLogging(stderr io.Writer, logConfig string, progress *progressWriter) error {
	var writer loggo.Writer = loggo.NewSimpleWriter(stderr, logFormatter)
	if progress != nil {
		writer = loggo.NewMinimumLevelWriter(writer, loggo.WARNING)
	}
	// The default writer may already be gone, as after loggo.ResetLogging.
	_, _ = loggo.RemoveWriter(loggo.DefaultWriterName)
	if err := loggo.RegisterWriter(loggo.DefaultWriterName, writer); err != nil {
		return errors.Trace(err)
	}
	if err := loggo.ConfigureLoggers(logConfig); err != nil {
		return errors.Annotatef(err, "log level %q", logConfig)
	}
	if progress == nil {
		return nil
	}
	volumeLogger := loggo.GetLogger("dskvolume.volume")
	if volumeLogger.EffectiveLogLevel() > loggo.INFO {
		volumeLogger.SetLogLevel(loggo.INFO)
	}
	_, _ = loggo.RemoveWriter(progressWriterName)
	return errors.Trace(loggo.RegisterWriter(progressWriterName, progress))
}

// progressWriter is a loggo writer that shows the latest INFO message of a
// running command on one live terminal line.
type progressWriter struct {
	live *uilive.Writer
}

func newProgressWriter(out io.Writer) *progressWriter {
	live := uilive.New()
	live.Out = out
	return &progressWriter{live: live}
}

// Write is part of loggo.Writer.
func (w *progressWriter) Write(entry loggo.Entry) {
	if entry.Level < loggo.INFO {
		return
	}
	_, _ = fmt.Fprintf(w.live, "%s...\n", entry.Message)
	_ = w.live.Flush()
}

// Done replaces the live line with msg and detaches the writer.
func (w *progressWriter) Done(msg string) {
	_, _ = loggo.RemoveWriter(progressWriterName)
	_, _ = fmt.Fprintln(w.live, msg)
	_ = w.live.Flush()
}
