// Command liftline runs lifting line simulations described in TOML scenario files.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	liftline "github.com/NTNU-IMT/stormbird-sub000"
	"github.com/NTNU-IMT/stormbird-sub000/store"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const defaultMetricsAddr = ":2112"

type options struct {
	config      string
	verbose     bool
	jsonPath    string
	storePath   string
	noStore     bool
	metricsAddr string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "liftline",
		Short:         "Lifting line simulations of wings and rotor sails",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.config != "" {
				os.Setenv("LIFTLINE_CONFIG", opts.config)
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.config, "config", "", "directory holding conf.toml (overrides $LIFTLINE_CONFIG)")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "log every step")
	root.PersistentFlags().StringVar(&opts.jsonPath, "json", "", "write the results to this JSON file")
	root.PersistentFlags().StringVar(&opts.storePath, "store", "", "sqlite results database (default from the configuration)")
	root.PersistentFlags().BoolVar(&opts.noStore, "no-store", false, "do not record the results")
	root.PersistentFlags().StringVar(&opts.metricsAddr, "metrics", "", "serve prometheus metrics on this address")
	root.AddCommand(newRunCmd(opts), newSweepCmd(opts))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) logger(name string) log.Logger {
	if !o.verbose {
		return liftline.NewLogger(name)
	}
	l := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	return log.With(level.NewFilter(l, level.AllowDebug()), "simulation", name)
}

// openStore returns nil when results are not recorded.
func (o *options) openStore(logger log.Logger) (*store.Store, error) {
	if o.noStore {
		return nil, nil
	}
	path := o.storePath
	if path == "" {
		path = liftline.StorePath()
	}
	return store.Open(path, logger)
}

// metrics starts the prometheus endpoint when asked for. The returned function stops it.
func (o *options) metrics(logger log.Logger) (*liftline.Metrics, func()) {
	addr := o.metricsAddr
	if addr == "" {
		if !liftline.MetricsEnabled() {
			return nil, func() {}
		}
		addr = defaultMetricsAddr
	}
	reg := prometheus.NewRegistry()
	m := liftline.NewMetrics(reg)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(logger).Log("subsys", "metrics", "addr", addr, "err", err)
		}
	}()
	level.Info(logger).Log("subsys", "metrics", "addr", addr)
	return m, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
