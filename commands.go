package main

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"dskvolume/internal/volume"
)

func newRootCommand(env *environ) *cobra.Command {
	flags := &desiredFlags{}
	root := &cobra.Command{
		Use:           "dskvolume",
		Short:         "Declarative disk and volume configuration for Windows hosts",
		Version:       appversion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.register(root.PersistentFlags())
	root.AddCommand(
		newGetCommand(env, flags),
		newTestCommand(env, flags),
		newSetCommand(env, flags),
		newVersionCommand(),
	)
	return root
}

func newProvider(env *environ, s settings) (*volume.Provider, error) {
	provider, err := volume.NewProvider(volume.Config{
		Storage:          env.storage,
		BlockSizeSources: env.blockSizes,
		Clock:            env.clock,
		SettleTimeout:    s.settleTimeout,
		SettleDelay:      s.settleDelay,
	})
	return provider, errors.Trace(err)
}

func newGetCommand(env *environ, flags *desiredFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the current state of the disk and drive letter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := flags.resolveFlags(cmd, nil)
			if err != nil {
				return errors.Trace(err)
			}
			provider, err := newProvider(env, s)
			if err != nil {
				return errors.Trace(err)
			}
			observed, err := provider.Inspect(s.desired)
			if err != nil {
				return errors.Trace(err)
			}
			return writeObserved(env.stdout, format, observed)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", formatJSON, "output format: json or table")
	return cmd
}

func newTestCommand(env *environ, flags *desiredFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Report whether the host matches the desired state",
		Long: "Prints true and exits 0 when the host matches the desired state,\n" +
			"otherwise prints false and exits 1.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := flags.resolveFlags(cmd, nil)
			if err != nil {
				return errors.Trace(err)
			}
			provider, err := newProvider(env, s)
			if err != nil {
				return errors.Trace(err)
			}
			result, err := provider.Evaluate(s.desired)
			if err != nil {
				return errors.Trace(err)
			}
			fmt.Fprintln(env.stdout, result.Match)
			if !result.Match {
				fmt.Fprintf(env.stderr, "mismatch: %s\n", result.Reason)
				return errMismatch
			}
			return nil
		},
	}
}

func newSetCommand(env *environ, flags *desiredFlags) *cobra.Command {
	var showProgress bool
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Bring the host to the desired state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var progress *progressWriter
			if showProgress {
				progress = newProgressWriter(env.stdout)
			}
			s, err := flags.resolveFlags(cmd, progress)
			if err != nil {
				return errors.Trace(err)
			}
			if err := env.requireAdmin(); err != nil {
				return errors.Trace(err)
			}
			provider, err := newProvider(env, s)
			if err != nil {
				return errors.Trace(err)
			}

			result, err := provider.Evaluate(s.desired)
			if err != nil {
				return errors.Trace(err)
			}
			if result.Match {
				// A partition left unformatted by an earlier failed run
				// still compares equal when no label is asked for.
				observed, err := provider.Inspect(s.desired)
				if err != nil {
					return errors.Trace(err)
				}
				if observed.Volume == nil || observed.Volume.FileSystem == "" {
					result = volume.Result{Reason: "volume has no file system"}
				}
			}
			if result.Match {
				logger.Infof("disk %d drive %s: already in the desired state", s.desired.DiskNumber, s.desired.DriveLetter)
				if progress != nil {
					progress.Done("already in the desired state")
				}
				return nil
			}
			logger.Infof("disk %d drive %s: %s, converging", s.desired.DiskNumber, s.desired.DriveLetter, result.Reason)

			err = provider.Converge(s.desired)
			if progress != nil {
				if err != nil {
					progress.Done("failed")
				} else {
					progress.Done("done")
				}
			}
			return errors.Trace(err)
		},
	}
	cmd.Flags().BoolVarP(&showProgress, "progress", "p", false, "show converge steps on a live line")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), appversion)
		},
	}
}
