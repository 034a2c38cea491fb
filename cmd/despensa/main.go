package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/despensaapp/despensa/internal/api"
	"github.com/despensaapp/despensa/internal/config"
	"github.com/despensaapp/despensa/internal/expiry"
	"github.com/despensaapp/despensa/internal/metrics"
	"github.com/despensaapp/despensa/internal/nfce"
	"github.com/despensaapp/despensa/internal/notify"
	"github.com/despensaapp/despensa/internal/ocr"
	"github.com/despensaapp/despensa/internal/receipt"
	"github.com/despensaapp/despensa/internal/store"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	version    = "dev"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Printf("despensa version %s\n", version)
			return
		}
	}

	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	st, err := store.New(&cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer st.Close()

	opts := receipt.Options{
		MinHTMLLineLen:     cfg.Extraction.MinHTMLLineLen,
		MinContinuationLen: cfg.Extraction.MinContinuationLen,
		MaxNameLen:         cfg.Extraction.MaxNameLen,
		PlaceholderOnEmpty: cfg.Extraction.PlaceholderOnEmpty,
	}

	table := receipt.DefaultCategoryTable()
	if cfg.Extraction.CategoryKeywordsFile != "" {
		loaded, err := receipt.LoadCategoryTable(cfg.Extraction.CategoryKeywordsFile)
		if err != nil {
			logger.Warn("failed to load category keywords, using defaults", zap.Error(err))
		} else {
			table = loaded
		}
	}

	m := metrics.New()

	direct := nfce.NewClient(cfg.Sefaz, opts, table, m, logger)

	var backend *nfce.BackendClient
	if cfg.Sefaz.BackendURL != "" {
		backend = nfce.NewBackendClient(cfg.Sefaz.BackendURL,
			time.Duration(cfg.Sefaz.TimeoutSeconds)*time.Second, logger)
		logger.Info("consultations proxied through backend", zap.String("url", cfg.Sefaz.BackendURL))
	}

	recognizer := ocr.NewTesseractRecognizer(cfg.OCR.TesseractPath, cfg.OCR.Language, logger)
	if !recognizer.IsAvailable() {
		logger.Warn("tesseract not found, receipt photo OCR disabled")
		recognizer = nil
	}

	decoder := ocr.NewZbarDecoder(cfg.OCR.ZbarPath, logger)
	if !decoder.IsAvailable() {
		logger.Warn("zbarimg not found, QR decoding from photos disabled")
		decoder = nil
	}

	var notifier notify.Notifier = &notify.LogNotifier{Logger: logger}
	if cfg.Notify.TelegramEnabled {
		tg, err := notify.NewTelegramNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, logger)
		if err != nil {
			logger.Warn("telegram notifier unavailable, falling back to log alerts", zap.Error(err))
		} else {
			notifier = tg
		}
	}

	var expiryRunner *expiry.Runner
	if cfg.Expiry.Enabled {
		expiryRunner = expiry.NewRunner(cfg.Expiry, st, notifier, logger)
		if err := expiryRunner.Start(); err != nil {
			logger.Fatal("failed to start expiry runner", zap.Error(err))
		}
		defer expiryRunner.Stop()
	}

	server := api.New(cfg, api.Deps{
		Store:      st,
		Consult:    nfce.NewService(direct, backend, logger),
		Extractor:  receipt.NewExtractor(opts, table, logger),
		Recognizer: recognizer,
		Decoder:    decoder,
		Metrics:    m,
	}, logger)

	go func() {
		logger.Info("server starting",
			zap.String("address", cfg.Server.Address),
			zap.Int("port", cfg.Server.Port))
		if err := server.Start(); err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := server.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
