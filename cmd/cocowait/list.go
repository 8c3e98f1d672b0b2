package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/imagvfx/cocowait/manager"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const httpTimeout = 10 * time.Second

func cutOrFill(s string, n int, fillLeft bool) string {
	if n < 0 {
		// invalid input
		return s
	}
	if len(s) > n {
		return s[:n]
	}
	spaces := strings.Repeat(" ", n-len(s))
	if fillLeft {
		return spaces + s
	}
	return s + spaces
}

func addHTTPFlag(cmd *cobra.Command) {
	cmd.Flags().String("http", "localhost:8282", "farm http api address")
}

// apiURL returns the url of the farm api endpoint.
func apiURL(addr, path string, query url.Values) string {
	u := url.URL{Scheme: "http", Host: addr, Path: path}
	if len(query) != 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// checkResponse returns an error with the response body when the request failed.
func checkResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return errors.Errorf("%v: %v", resp.Status, strings.TrimSpace(string(body)))
}

func listCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs of the farm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := fetchJobs(cmd.Context(), v.GetString("http"), v.GetString("status"), v.GetString("target"))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "no job to show")
			}
			for _, j := range jobs {
				line := fmt.Sprintf("[%v] %v - %v", j.ID, cutOrFill(j.Status, 7, false), strings.Join(j.Command, " "))
				if j.Errstr != "" {
					line += " (" + j.Errstr + ")"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	addHTTPFlag(cmd)
	cmd.Flags().String("status", "", "show only jobs with the status: waiting, running, failed or done")
	cmd.Flags().String("target", "", "show only jobs of the queue")
	return cmd
}

func fetchJobs(ctx context.Context, addr, status, target string) ([]*manager.JobInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, httpTimeout)
	defer cancel()
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if target != "" {
		q.Set("target", target)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL(addr, "/api/jobs", q), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "list jobs")
	}
	defer resp.Body.Close()
	err = checkResponse(resp)
	if err != nil {
		return nil, err
	}
	var jobs []*manager.JobInfo
	err = json.NewDecoder(resp.Body).Decode(&jobs)
	if err != nil {
		return nil, errors.Wrap(err, "decode jobs")
	}
	return jobs, nil
}
