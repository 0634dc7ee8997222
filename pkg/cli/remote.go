// stationd
// Copyright (c) 2026 The Ogrelab Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of stationd.
//
// stationd is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// stationd is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with stationd.  If not, see <http://www.gnu.org/licenses/>.

package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ogrelab/stationd/pkg/api"
	"github.com/ogrelab/stationd/pkg/api/client"
	"github.com/ogrelab/stationd/pkg/display"
	"github.com/ogrelab/stationd/pkg/state"
	"github.com/spf13/cobra"
)

const apiFlag = "api"

// remoteClient talks to --api when given, otherwise to the station on this
// host at its configured port.
func remoteClient(cmd *cobra.Command) (*client.Client, error) {
	if base, _ := cmd.Flags().GetString(apiFlag); base != "" {
		return client.New(base)
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return client.Local(cfg), nil
}

func addAPIFlag(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().String(apiFlag, "", "station API base URL (default: this host)")
	return cmd
}

func printReadings(w io.Writer, snap *state.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "time\t%s\n", display.FormatDateTime(snap.Time))
	for _, name := range state.FieldNames {
		if v, ok := snap.Field(name); ok {
			_, _ = fmt.Fprintf(tw, "%s\t%s\n", name, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	_, _ = fmt.Fprintf(tw, "link\t%t\n", snap.LinkHealthy)
	_ = tw.Flush()
}

func printStatus(w io.Writer, status *api.StatusResponse) {
	_, _ = fmt.Fprintf(w, "stationd %s\n", status.Version)
	if len(status.Lines) > 0 {
		border := "+" + strings.Repeat("-", len([]rune(status.Lines[0]))) + "+"
		_, _ = fmt.Fprintln(w, border)
		for _, line := range status.Lines {
			_, _ = fmt.Fprintf(w, "|%s|\n", line)
		}
		_, _ = fmt.Fprintln(w, border)
	}
	printReadings(w, &status.Snapshot)
	for _, r := range status.Relays {
		_, _ = fmt.Fprintf(w, "relay %s: on=%t\n", r.Name, r.On)
	}
}

func statusCmd() *cobra.Command {
	return addAPIFlag(&cobra.Command{
		Use:   "status",
		Short: "Show the display and latest readings of a running station",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			status, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	})
}

func watchCmd() *cobra.Command {
	var count int
	cmd := addAPIFlag(&cobra.Command{
		Use:   "watch",
		Short: "Stream readings from a running station",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			seen := 0
			return c.Watch(ctx, func(snap state.Snapshot) bool {
				printReadings(cmd.OutOrStdout(), &snap)
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
				seen++
				return count <= 0 || seen < count
			})
		},
	})
	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after n snapshots")
	return cmd
}

func jobsCmd() *cobra.Command {
	cmd := addAPIFlag(&cobra.Command{
		Use:   "jobs",
		Short: "List scheduler jobs of a running station",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			jobs, err := c.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "NAME\tENABLED\tEVERY\tRUNS\tLAST RUN")
			for _, j := range jobs {
				every := j.Period.String()
				switch {
				case j.Schedule != "":
					every = j.Schedule
				case j.Once:
					every = "once"
				}
				last := "-"
				if !j.LastRun.IsZero() {
					last = j.LastRun.Format(time.RFC3339)
				}
				_, _ = fmt.Fprintf(tw, "%s\t%t\t%s\t%d\t%s\n", j.Name, j.Enabled, every, j.Runs, last)
			}
			return tw.Flush()
		},
	})
	for _, enable := range []bool{true, false} {
		use := "disable"
		if enable {
			use = "enable"
		}
		cmd.AddCommand(addAPIFlag(&cobra.Command{
			Use:   use + " NAME",
			Short: use + " a job",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := remoteClient(cmd)
				if err != nil {
					return err
				}
				if err := c.SetJobEnabled(cmd.Context(), args[0], enable); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %sd\n", args[0], use)
				return nil
			},
		}))
	}
	return cmd
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid relay state %q, want on or off", s)
	}
}

func relayCmd() *cobra.Command {
	return addAPIFlag(&cobra.Command{
		Use:   "relay NAME on|off",
		Short: "Switch a relay of a running station",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			on, err := parseSwitch(args[1])
			if err != nil {
				return err
			}
			c, err := remoteClient(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			st, err := c.SetRelay(ctx, args[0], on)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "relay %s: on=%t\n", st.Name, st.On)
			return nil
		},
	})
}
