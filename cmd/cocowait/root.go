package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/imagvfx/cocowait"
	"github.com/imagvfx/cocowait/jobspec"
	"github.com/imagvfx/cocowait/lib/logging"
	"github.com/imagvfx/cocowait/manager"
	"github.com/imagvfx/cocowait/remote"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const dialTimeout = 10 * time.Second

// rootCmd creates the cocowait command. Every flag can also be set
// with a COCO_ prefixed environment variable, like COCO_ADDR.
func rootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("COCO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "cocowait [njobs]",
		Short: "Submit a batch of jobs to the farm, and wait for every one of them",
		Long: `cocowait submits njobs waitable jobs (default 10) to the farm.
The first half of them run the true command, the rest run the false command.
Then it waits for each job to finish and prints its result as it comes.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return v.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, v, args)
		},
	}
	cmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn or error")
	cmd.PersistentFlags().String("addr", "localhost:8283", "farm address to connect")
	cmd.Flags().Bool("local", false, "run jobs on an in-process farm instead of connecting to one")
	cmd.Flags().Int("slots", 4, "number of jobs the in-process farm runs at once")
	cmd.Flags().String("true", "/bin/true", "command of the jobs expected to succeed")
	cmd.Flags().String("false", "/bin/false", "command of the jobs expected to fail")

	cmd.AddCommand(
		submitCmd(v),
		listCmd(v),
		cancelCmd(v),
	)
	return cmd
}

func parseNJobs(args []string) (int, error) {
	if len(args) == 0 {
		return cocowait.DefaultJobs, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, errors.Errorf("njobs should be a non-negative integer: %v", args[0])
	}
	return n, nil
}

func commandSpec(flag, cmdline string) (*jobspec.Jobspec, error) {
	cmd := strings.Fields(cmdline)
	if len(cmd) == 0 {
		return nil, errors.Errorf("--%v command is empty", flag)
	}
	return jobspec.FromCommand(cmd), nil
}

func runBatch(cmd *cobra.Command, v *viper.Viper, args []string) (err error) {
	n, err := parseNJobs(args)
	if err != nil {
		return err
	}
	pass, err := commandSpec("true", v.GetString("true"))
	if err != nil {
		return err
	}
	fail, err := commandSpec("false", v.GetString("false"))
	if err != nil {
		return err
	}

	log := logging.New(v.GetString("log-level"))
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, closeSession, err := openSession(ctx, v, log)
	if err != nil {
		return err
	}
	defer func() {
		cerr := closeSession()
		if err == nil {
			err = cerr
		}
	}()

	r, err := cocowait.Run(ctx, s, cocowait.RunOptions{
		N:    n,
		Pass: pass,
		Fail: fail,
		Out:  cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	log.Info("batch finished", "jobs", r.Len(), "succeeded", r.Succeeded(), "failed", r.Failed())
	return nil
}

// openSession connects to the farm, or starts an in-process one when --local is set.
// The returned func closes everything it opened.
func openSession(ctx context.Context, v *viper.Viper, log *logging.Logger) (cocowait.Session, func() error, error) {
	if v.GetBool("local") {
		m, err := manager.New(manager.DefaultConfig(v.GetInt("slots")), nil, log)
		if err != nil {
			return nil, nil, err
		}
		s, err := m.Connect(ctx)
		if err != nil {
			m.Close()
			return nil, nil, err
		}
		closeAll := func() error {
			s.Close()
			return m.Close()
		}
		return s, closeAll, nil
	}
	addr := v.GetString("addr")
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	s, err := remote.Connect(dialCtx, addr)
	if err != nil {
		return nil, nil, err
	}
	log.Debug("connected", "addr", addr, "session", s.ID())
	return s, s.Close, nil
}
