package liftline

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/viper"
)

var (
	cfgOnce sync.Once
	config  = _liftlineconfig{}
)

// _liftlineconfig is a "hidden" struct, just use `liftlineConfig`
type _liftlineconfig struct {
	outputDir      string
	logLevel       string
	exportFormat   ExportFormat
	storePath      string
	metricsEnabled bool
}

func defaultConfig() _liftlineconfig {
	return _liftlineconfig{outputDir: ".", logLevel: "info", exportFormat: VTKFormat, storePath: "liftline.db"}
}

// liftlineConfig returns the package configuration, read once from $LIFTLINE_CONFIG/conf.toml.
// Defaults are used when the variable is not set.
func liftlineConfig() _liftlineconfig {
	cfgOnce.Do(func() {
		config = defaultConfig()
		confPath := os.Getenv("LIFTLINE_CONFIG")
		if confPath == "" {
			return
		}
		loaded, err := loadConfig(confPath)
		if err != nil {
			panic(err)
		}
		config = loaded
	})
	return config
}

func loadConfig(confPath string) (_liftlineconfig, error) {
	conf := defaultConfig()
	v := viper.New()
	v.SetConfigName("conf")
	v.SetConfigType("toml")
	v.AddConfigPath(confPath)
	v.SetDefault("general.output_path", conf.outputDir)
	v.SetDefault("log.level", conf.logLevel)
	v.SetDefault("export.format", conf.exportFormat.String())
	v.SetDefault("store.path", conf.storePath)
	if err := v.ReadInConfig(); err != nil {
		return conf, fmt.Errorf("%s/conf.toml not found: %w", confPath, err)
	}
	format, err := ParseExportFormat(v.GetString("export.format"))
	if err != nil {
		return conf, err
	}
	conf.outputDir = v.GetString("general.output_path")
	conf.logLevel = v.GetString("log.level")
	conf.exportFormat = format
	conf.storePath = v.GetString("store.path")
	conf.metricsEnabled = v.GetBool("metrics.enabled")
	return conf, nil
}

// OutputDir returns the directory exported files are written to.
func OutputDir() string { return liftlineConfig().outputDir }

// StorePath returns the path of the sqlite result store.
func StorePath() string { return liftlineConfig().storePath }

// DefaultExportFormat returns the configured wake export format.
func DefaultExportFormat() ExportFormat { return liftlineConfig().exportFormat }

// MetricsEnabled reports whether the configuration turns on the prometheus endpoint.
func MetricsEnabled() bool { return liftlineConfig().metricsEnabled }

func levelOption(name string) level.Option {
	switch name {
	case "debug":
		return level.AllowDebug()
	case "warn", "warning":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	case "none":
		return level.AllowNone()
	}
	return level.AllowInfo()
}

// NewLogger returns a logfmt logger on stdout, filtered at the configured level and scoped to the
// named simulation.
func NewLogger(name string) log.Logger {
	klog := log.NewLogfmtLogger(log.NewSyncWriter(os.Stdout))
	klog = level.NewFilter(klog, levelOption(liftlineConfig().logLevel))
	return log.With(klog, "simulation", name)
}
