package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/spf13/viper"
)

// Flags holds the command line of the server. Every flag except -config and
// -version overrides a config key, but only when given explicitly.
type Flags struct {
	ConfigFile string
	Version    bool

	overrides map[string]string
}

// flagKeys maps command line flags onto config keys
var flagKeys = map[string]string{
	"host":         "server.host",
	"port":         "server.port",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"metrics-port": "metrics.port",
	"storage":      "storage.type",
	"tls-cert":     "server.tls_cert_file",
	"tls-key":      "server.tls_key_file",
}

// ParseFlags parses args, which excludes the program name
func ParseFlags(args []string, output io.Writer) (*Flags, error) {
	f := &Flags{overrides: make(map[string]string)}

	fs := flag.NewFlagSet("sdc-server", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&f.ConfigFile, "config", "", "Path to configuration file (default $HOME/.sdc.yaml)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	fs.String("host", "", "Server host")
	fs.Int("port", 0, "Server port")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.String("log-format", "", "Log format (json, text)")
	fs.Int("metrics-port", 0, "Dedicated Prometheus metrics port")
	fs.String("storage", "", "Result store backend (memory, redis, postgres, s3)")
	fs.String("tls-cert", "", "Path to TLS certificate")
	fs.String("tls-key", "", "Path to TLS key")

	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: sdc-server [options]\n")
		fmt.Fprintf(output, "\nMicrodata privacy risk and anonymization server\n\n")
		fmt.Fprintf(output, "Every option can also be set in the config file or as SDC_<SECTION>_<KEY>.\n\n")
		fmt.Fprintf(output, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	fs.Visit(func(fl *flag.Flag) {
		if key, ok := flagKeys[fl.Name]; ok {
			f.overrides[key] = fl.Value.String()
		}
	})

	return f, nil
}

// Apply records the explicit flags as viper overrides
func (f *Flags) Apply(v *viper.Viper) {
	for key, value := range f.overrides {
		v.Set(key, value)
	}
}

func printVersion(w io.Writer) {
	info := GetBuildInfo()
	fmt.Fprintf(w, "Version: %s\n", info.Version)
	fmt.Fprintf(w, "Git Commit: %s\n", info.GitCommit)
	fmt.Fprintf(w, "Build Date: %s\n", info.BuildDate)
	fmt.Fprintf(w, "Go Version: %s\n", info.GoVersion)
	fmt.Fprintf(w, "Platform: %s\n", info.Platform)
}
