// Package config loads and validates ippcaptured's process configuration:
// printer identity, bind address, envelope cap, and job retention, with
// defaults overridable by a YAML file. There is no cap on document size;
// the command line overrides only the listen address (serve --addr).
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the fully-resolved process configuration.
type Config struct {
	Addr string

	Printer      PrinterConfig
	EnvelopeCap  int64
	JobRetention time.Duration
	OutputDir    string

	LogLevel  string
	LogFormat string
}

// PrinterConfig describes the printer identity advertised over IPP.
type PrinterConfig struct {
	Name             string
	Info             string
	Location         string
	MakeAndModel     string
	DeviceURI        string
	SupportedFormats []string
	DocumentFormat   string
}

// Default returns the configuration used when no file or flags override
// it: a loopback listener, PDF-only capture, a 1 MiB envelope cap, and a
// five minute job retention.
func Default() Config {
	return Config{
		Addr: "localhost:8631",
		Printer: PrinterConfig{
			Name:             "ippcaptured",
			MakeAndModel:     "ippcaptured virtual printer",
			DeviceURI:        "ipp://localhost:8631/printers/ippcaptured",
			SupportedFormats: []string{"application/pdf"},
			DocumentFormat:   "application/pdf",
		},
		EnvelopeCap:  1 << 20,
		JobRetention: 5 * time.Minute,
		OutputDir:    "./ippcaptured-output",
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

// file mirrors the on-disk YAML shape; zero values mean "not set" so
// Load only overrides fields the file actually specifies.
type file struct {
	Addr string `yaml:"addr"`

	Printer struct {
		Name             string   `yaml:"name"`
		Info             string   `yaml:"info"`
		Location         string   `yaml:"location"`
		MakeAndModel     string   `yaml:"make_and_model"`
		DeviceURI        string   `yaml:"device_uri"`
		SupportedFormats []string `yaml:"supported_formats"`
		DocumentFormat   string   `yaml:"document_format"`
	} `yaml:"printer"`

	EnvelopeCap  int64  `yaml:"envelope_cap_bytes"`
	JobRetention string `yaml:"job_retention"`
	OutputDir    string `yaml:"output_dir"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load starts from Default and applies the YAML file at path on top of
// it. A missing file is not an error — it simply leaves the defaults in
// place, the same convention airprint-bridge uses for its config file.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyFile(&cfg, &f)
	return cfg, nil
}

func applyFile(cfg *Config, f *file) {
	if f.Addr != "" {
		cfg.Addr = f.Addr
	}
	if f.Printer.Name != "" {
		cfg.Printer.Name = f.Printer.Name
	}
	if f.Printer.Info != "" {
		cfg.Printer.Info = f.Printer.Info
	}
	if f.Printer.Location != "" {
		cfg.Printer.Location = f.Printer.Location
	}
	if f.Printer.MakeAndModel != "" {
		cfg.Printer.MakeAndModel = f.Printer.MakeAndModel
	}
	if f.Printer.DeviceURI != "" {
		cfg.Printer.DeviceURI = f.Printer.DeviceURI
	}
	if len(f.Printer.SupportedFormats) > 0 {
		cfg.Printer.SupportedFormats = f.Printer.SupportedFormats
	}
	if f.Printer.DocumentFormat != "" {
		cfg.Printer.DocumentFormat = f.Printer.DocumentFormat
	}
	if f.EnvelopeCap != 0 {
		cfg.EnvelopeCap = f.EnvelopeCap
	}
	if f.JobRetention != "" {
		if d, err := time.ParseDuration(f.JobRetention); err == nil {
			cfg.JobRetention = d
		}
	}
	if f.OutputDir != "" {
		cfg.OutputDir = f.OutputDir
	}
	if f.Log.Level != "" {
		cfg.LogLevel = f.Log.Level
	}
	if f.Log.Format != "" {
		cfg.LogFormat = f.Log.Format
	}
}

// Validate reports whether cfg is usable: a printer needs a name and at
// least one supported format, and the default format, when set, must be
// one of them.
func (c Config) Validate() error {
	if c.Printer.Name == "" {
		return fmt.Errorf("config: printer.name is required")
	}
	if len(c.Printer.SupportedFormats) == 0 {
		return fmt.Errorf("config: printer.supported_formats must list at least one format")
	}
	if c.Printer.DocumentFormat == "" {
		return nil
	}
	for _, f := range c.Printer.SupportedFormats {
		if f == c.Printer.DocumentFormat {
			return nil
		}
	}
	return fmt.Errorf("config: printer.document_format %q is not in supported_formats", c.Printer.DocumentFormat)
}
