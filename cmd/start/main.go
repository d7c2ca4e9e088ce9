package start

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/paulasmuth/brokerd/catalog"
	"github.com/paulasmuth/brokerd/channel"
	"github.com/paulasmuth/brokerd/frontend"
	"github.com/paulasmuth/brokerd/frontend/stream"
	"github.com/paulasmuth/brokerd/metrics"
	"github.com/paulasmuth/brokerd/utils"
	"github.com/paulasmuth/brokerd/utils/log"
)

const (
	usage                 = "start"
	short                 = "Start a brokerd message broker server"
	long                  = "This command starts a brokerd message broker server"
	example               = "brokerd start --config <path>"
	defaultConfigFilePath = "./brokerd.yml"
	configDesc            = "set the path for the brokerd YAML configuration file"

	diskUsageMonitorInterval = 10 * time.Minute
)

var (
	// Cmd is the start command.
	Cmd = &cobra.Command{
		Use:        usage,
		Short:      short,
		Long:       long,
		Aliases:    []string{"s"},
		SuggestFor: []string{"boot", "up"},
		Example:    example,
		RunE:       executeStart,
	}
	// configFilePath set flag for a path to the config file.
	configFilePath string
)

// nolint:gochecknoinits // cobra's standard way to initialize flags
func init() {
	Cmd.Flags().StringVarP(&configFilePath, "config", "c", defaultConfigFilePath, configDesc)
}

// executeStart implements the start command.
func executeStart(cmd *cobra.Command, _ []string) error {
	// Attempt to read config file.
	data, err := os.ReadFile(configFilePath)
	if err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	// Don't output command usage if args are correct
	cmd.SilenceUsage = true

	// Log config location.
	log.Info("using %v for configuration", configFilePath)

	config, err := utils.ParseConfig(data)
	if err != nil {
		return fmt.Errorf("failed to parse configuration file: %w", err)
	}
	config.StartTime = time.Now()

	if err := os.MkdirAll(config.RootDirectory, 0o755); err != nil {
		return fmt.Errorf("failed to create channel root directory: %w", err)
	}

	// Initialize brokerd services.
	// ----------------------------
	log.Info("initializing brokerd...")

	start := time.Now()

	catalogDir, err := catalog.NewDirectory(
		config.RootDirectory,
		catalog.WithMaxSegmentSize(config.MaxSegmentSize))
	if err != nil {
		return fmt.Errorf("failed to open channel root directory: %w", err)
	}

	go metrics.StartDiskUsageMonitor(metrics.TotalDiskUsageBytes, config.RootDirectory, diskUsageMonitorInterval)

	startupTime := time.Since(start)
	metrics.StartupTime.Set(startupTime.Seconds())
	log.Info("startup time: %s, channels: %d", startupTime, len(catalogDir.List()))

	// Set websocket handler.
	log.Info("initializing websocket...")
	stream.Initialize()
	http.HandleFunc("/ws", stream.Handler)

	// Set data API handlers.
	log.Info("launching data server...")
	service := frontend.NewDataService(catalogDir, frontend.PublisherFunc(
		func(channelName string, msg channel.Message) {
			stream.Push(stream.Payload{
				Channel:    channelName,
				Offset:     msg.Offset,
				NextOffset: msg.NextOffset,
				Data:       msg.Data,
			})
		}))
	apiHandler := service.Handler()
	http.Handle("/api/v1/channels", apiHandler)
	http.Handle("/api/v1/channels/", apiHandler)

	// Set monitoring handler.
	log.Info("launching prometheus metrics server...")
	http.Handle("/metrics", promhttp.Handler())

	if config.UtilitiesURL != "" {
		// Start utility endpoints.
		log.Info("launching utility service...")
		uah := frontend.NewUtilityAPIHandlers(config.StartTime)
		go func() {
			if err := uah.Handle(config.UtilitiesURL); err != nil {
				log.Error("utility API handle error: %v", err.Error())
			}
		}()
	}

	// Spawn a goroutine and listen for a signal.
	signalChan := make(chan os.Signal, 1)
	go func() {
		for s := range signalChan {
			switch s {
			case syscall.SIGINT, syscall.SIGTERM:
				log.Info("initiating graceful shutdown due to '%v' request", s)
				log.Info("waiting a grace period of %v to shutdown...", config.StopGracePeriod)
				time.Sleep(config.StopGracePeriod)

				if err := catalogDir.Close(); err != nil {
					log.Error("failed to close channels cleanly: %v", err)
				}
				log.Info("exiting...")
				os.Exit(0)
			}
		}
	}()
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("launching tcp listener for all services on %s...", config.ListenURL())
	if err := http.ListenAndServe(config.ListenURL(), nil); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
