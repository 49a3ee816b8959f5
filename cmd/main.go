package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"luckydraw/internal/config"
	"luckydraw/internal/handlers"
	"luckydraw/internal/notify"
	"luckydraw/internal/services"
	"luckydraw/internal/store"
	"luckydraw/internal/store/memory"
	"luckydraw/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logging
	_, closeLog, err := initLogging(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	// 3. Open the store
	st, err := openStore(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	// 4. Wire result notifiers and the Lottery Service
	hub := notify.NewHub(cfg.WS.WriteTimeout)
	publishers := notify.Fanout{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := notify.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Fatalf("Failed to create kafka producer: %v", err)
		}
		defer producer.Close()
		publishers = append(publishers, producer)
		logger.Infof("Publishing draw results to kafka topic %s", cfg.Kafka.Topic)
	}
	lotteryService := services.NewLotteryService(st, services.WithNotifier(publishers))

	// 5. Initialize the HTTP Handler
	httpHandler := handlers.NewHTTPHandler(lotteryService, hub, cfg.Lottery.DefaultOperator, cfg.Server.CORSOrigins)

	// 6. Set up the Gin router
	if !cfg.Log.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))
	httpHandler.RegisterRoutes(r)

	// 7. Start the background janitor to drop dead websocket clients
	if cfg.WS.PingInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.WS.PingInterval)
			defer ticker.Stop()
			for range ticker.C {
				if n := hub.Ping(cfg.WS.PingInterval / 2); n > 0 {
					logger.Infof("Dropped %d unresponsive websocket clients.", n)
				}
			}
		}()
	}

	// 8. Run the server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Infof("Server starting on http://localhost%s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("Failed to run server: %v", err)
	}
}

func openStore(cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(cfg.DSN)
	default:
		return memory.New(), nil
	}
}

// initLogging starts the logger. Info and warning lines reach stdout only
// when verbose is set; errors always reach stderr. The returned func closes
// the logger and the log file.
func initLogging(cfg config.LogConfig) (*logger.Logger, func(), error) {
	var out io.Writer = io.Discard
	var file *os.File
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o660)
		if err != nil {
			return nil, nil, err
		}
		file, out = f, f
	}
	l := logger.Init("luckydraw", cfg.Verbose, false, out)
	return l, func() {
		l.Close()
		if file != nil {
			file.Close()
		}
	}, nil
}
