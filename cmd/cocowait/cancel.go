package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func cancelCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel jobid...",
		Short: "Cancel jobs in the farm",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range args {
				err := cancelJob(cmd.Context(), v.GetString("http"), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "canceled: %v\n", id)
			}
			return nil
		},
	}
	addHTTPFlag(cmd)
	return cmd
}

func cancelJob(ctx context.Context, addr, id string) error {
	ctx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()
	data := url.Values{}
	data.Set("id", id)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL(addr, "/api/cancel", nil), strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "cancel %v", id)
	}
	defer resp.Body.Close()
	return errors.Wrapf(checkResponse(resp), "cancel %v", id)
}
