/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command streamopt reads and analyzes JSON, spreadsheet and columnar files
// through the adaptive optimizers and reports the engine's metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rulego/streamopt"
	"github.com/rulego/streamopt/logger"
	"github.com/rulego/streamopt/store"
	"github.com/rulego/streamopt/types"
)

type globalFlags struct {
	settingsFile string
	profilesFile string
	profile      string
	logLevel     string
	auditDB      string
	metricsAddr  string
}

// app holds what a command needs after the persistent flags are applied.
type app struct {
	flags  globalFlags
	engine *streamopt.Engine
	audit  *store.Store
	server *http.Server
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "streamopt",
		Short:         "Schema aware streaming reads with adaptive tuning",
		Long:          "Read and analyze JSON, spreadsheet and columnar files with memory bounded streaming, schema validation and self-tuning settings.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&a.flags.settingsFile, "settings", "", "YAML or JSON settings file")
	f.StringVar(&a.flags.profilesFile, "profiles", "", "YAML file with extra performance profiles")
	f.StringVar(&a.flags.profile, "profile", "", "start from the settings of this profile")
	f.StringVar(&a.flags.logLevel, "log-level", "warn", "debug, info, warn, error or off")
	f.StringVar(&a.flags.auditDB, "audit-db", "", "SQLite file recording alerts and adaptations")
	f.StringVar(&a.flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	root.AddCommand(newReadCmd(a), newAnalyzeCmd(a), newProfilesCmd(a))
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	level, err := logger.ParseLevel(a.flags.logLevel)
	if err != nil {
		return err
	}
	opts := []streamopt.Option{streamopt.WithLogOutput(cmd.ErrOrStderr(), level)}
	if a.flags.settingsFile != "" {
		s, err := types.LoadSettings(a.flags.settingsFile)
		if err != nil {
			return err
		}
		opts = append(opts, streamopt.WithSettings(s))
	}
	if a.flags.profilesFile != "" {
		ps, err := types.LoadProfiles(a.flags.profilesFile)
		if err != nil {
			return err
		}
		opts = append(opts, streamopt.WithProfiles(ps...))
	}
	if a.flags.profile != "" {
		opts = append(opts, streamopt.WithProfile(a.flags.profile))
	}
	if a.flags.auditDB != "" {
		a.audit, err = store.Open(a.flags.auditDB)
		if err != nil {
			return err
		}
		opts = append(opts, streamopt.WithAuditStore(a.audit))
	}
	a.engine = streamopt.New(opts...)
	if err := a.engine.Start(); err != nil {
		return err
	}
	if a.flags.metricsAddr != "" {
		a.serveMetrics(cmd)
	}
	return nil
}

func (a *app) serveMetrics(cmd *cobra.Command) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(a.engine.Collector())
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	a.server = &http.Server{Addr: a.flags.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(cmd.ErrOrStderr(), "metrics server: %v\n", err)
		}
	}()
}

func (a *app) close() error {
	var errs []error
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, a.server.Shutdown(ctx))
	}
	if a.engine != nil {
		errs = append(errs, a.engine.Shutdown())
	}
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
	}
	return errors.Join(errs...)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
