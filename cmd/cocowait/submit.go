package main

import (
	"context"
	"fmt"
	"os"

	"github.com/imagvfx/cocowait"
	"github.com/imagvfx/cocowait/jobspec"
	"github.com/imagvfx/cocowait/remote"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func submitCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit jobspec-file",
		Short: "Submit a job described in a jobspec file to the farm",
		Long: `submit reads a jobspec in yaml or json, and submits it to the farm.
With --wait, it waits for the job and prints its result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return submitFile(cmd, v, args[0])
		},
	}
	cmd.Flags().Bool("wait", false, "wait for the job to finish")
	return cmd
}

func submitFile(cmd *cobra.Command, v *viper.Viper, path string) (err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	spec, err := jobspec.Decode(data)
	if err != nil {
		return errors.Wrap(err, path)
	}
	err = spec.Validate()
	if err != nil {
		return errors.Wrap(err, path)
	}

	ctx := cmd.Context()
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	s, err := remote.Connect(dialCtx, v.GetString("addr"))
	if err != nil {
		return err
	}
	defer func() {
		cerr := s.Close()
		if err == nil {
			err = cerr
		}
	}()

	wait := v.GetBool("wait")
	id, err := s.Submit(ctx, spec, wait)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "submit: %s %s\n", id, spec)
	if !wait {
		return nil
	}
	d := &cocowait.CompletionDrain{Out: out}
	_, err = d.Drain(ctx, s, 1)
	return err
}
