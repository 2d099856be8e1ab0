// Command ippcaptured runs a reference IPP printer that accepts jobs and
// captures their documents to disk.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/netprint/ippd/internal/config"
	"github.com/netprint/ippd/ippserver"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "ippcaptured",
		Short: "Reference IPP print server that captures documents to disk",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "/etc/ippcaptured/ippcaptured.yaml",
		"path to config file")

	root.AddCommand(serveCmd(), configCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the IPP server until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := newLogger(cfg)
			return run(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "override the listen address")

	return cmd
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			printConfig(cfg)
			return nil
		},
	}
}

func printConfig(cfg config.Config) {
	fmt.Printf("addr: %s\n", cfg.Addr)
	fmt.Printf("printer.name: %s\n", cfg.Printer.Name)
	fmt.Printf("printer.device_uri: %s\n", cfg.Printer.DeviceURI)
	fmt.Printf("printer.supported_formats: %s\n", strings.Join(cfg.Printer.SupportedFormats, ", "))
	fmt.Printf("printer.document_format: %s\n", cfg.Printer.DocumentFormat)
	fmt.Printf("envelope_cap_bytes: %d\n", cfg.EnvelopeCap)
	fmt.Printf("job_retention: %s\n", cfg.JobRetention)
	fmt.Printf("output_dir: %s\n", cfg.OutputDir)
	fmt.Printf("log.level: %s, log.format: %s\n", cfg.LogLevel, cfg.LogFormat)
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "json" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	printer, err := ippserver.NewPrinterInfoBuilder(cfg.Printer.Name).
		Info(cfg.Printer.Info).
		Location(cfg.Printer.Location).
		MakeAndModel(cfg.Printer.MakeAndModel).
		DeviceURI(cfg.Printer.DeviceURI).
		SupportedFormats(cfg.Printer.SupportedFormats...).
		DocumentFormatDefault(cfg.Printer.DocumentFormat).
		Build()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("ippcaptured: creating output dir: %w", err)
	}

	svc := ippserver.NewSimpleService(printer, fileSink(cfg.OutputDir, log))
	svc.Registry.Close()
	svc.Registry = ippserver.NewRegistry(cfg.JobRetention)
	defer svc.Registry.Close()

	srv := &ippserver.Server{
		Service:     svc,
		EnvelopeCap: cfg.EnvelopeCap,
	}

	httpServer := ippserver.NewHTTPServer(cfg.Addr, srv)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("ippcaptured listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	svc.Registry.CancelAllActive(shutdownCtx)
	return httpServer.Shutdown(shutdownCtx)
}

// fileSink writes each job's document to <dir>/job-<id>.<ext>, with the
// extension guessed from the job's document format.
func fileSink(dir string, log zerolog.Logger) ippserver.DocumentSink {
	return func(job *ippserver.Job) (io.WriteCloser, error) {
		name := fmt.Sprintf("job-%d%s", job.ID, extensionFor(job.DocumentFormat))
		path := filepath.Join(dir, name)

		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}

		log.Info().Int32("job-id", job.ID).Str("path", path).Msg("capturing document")
		return f, nil
	}
}

func extensionFor(format string) string {
	switch format {
	case "application/pdf":
		return ".pdf"
	case "image/pwg-raster":
		return ".pwg"
	case "image/urf":
		return ".urf"
	case "application/postscript":
		return ".ps"
	case "image/jpeg":
		return ".jpg"
	default:
		return ".bin"
	}
}
