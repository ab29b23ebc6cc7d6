package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	billingapp "github.com/billing/backend/internal/application/billing"
	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/billing/strategy"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/billing/backend/internal/infrastructure/cache"
	"github.com/billing/backend/internal/infrastructure/config"
	"github.com/billing/backend/internal/infrastructure/event"
	"github.com/billing/backend/internal/infrastructure/logger"
	"github.com/billing/backend/internal/infrastructure/numbering"
	"github.com/billing/backend/internal/infrastructure/persistence"
)

func main() {
	var (
		cycleID         string
		processType     string
		invoiceDateFlag string
		cutoffFlag      string
		dueDays         int
		exceptional     bool
		autoAccounting  bool
		splitByPayment  bool
	)

	flag.StringVar(&cycleID, "cycle", "", "Billing cycle ID (required)")
	flag.StringVar(&processType, "process-type", "AUTOMATIC", "Run process type: MANUAL, AUTOMATIC or FULL_AUTOMATIC")
	flag.StringVar(&invoiceDateFlag, "invoice-date", "", "Invoice date yyyy-mm-dd (default: today)")
	flag.StringVar(&cutoffFlag, "last-transaction-date", "", "Rated-item cutoff yyyy-mm-dd (default: invoice date)")
	flag.IntVar(&dueDays, "due-days", 30, "Due-date delay in days")
	flag.BoolVar(&exceptional, "exceptional", false, "Exceptional run: tolerate an unresolved due-date delay")
	flag.BoolVar(&autoAccounting, "auto-accounting", false, "Generate accounting entries directly (FULL_AUTOMATIC only)")
	flag.BoolVar(&splitByPayment, "split-by-payment-method", false, "One invoice per payment method instead of one per account")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting billing run",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("process_type", processType),
	)

	cycle, err := uuid.Parse(cycleID)
	if err != nil {
		log.Fatal("Invalid or missing -cycle flag", zap.Error(err))
	}
	invoiceDate := time.Now().Truncate(24 * time.Hour)
	if invoiceDateFlag != "" {
		invoiceDate, err = time.Parse("2006-01-02", invoiceDateFlag)
		if err != nil {
			log.Fatal("Invalid -invoice-date", zap.Error(err))
		}
	}
	cutoff := invoiceDate
	if cutoffFlag != "" {
		cutoff, err = time.Parse("2006-01-02", cutoffFlag)
		if err != nil {
			log.Fatal("Invalid -last-transaction-date", zap.Error(err))
		}
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize the invoice number sequences
	sequences, err := numbering.NewRedisSequenceReserver(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := sequences.Close(); err != nil {
			log.Error("Error closing Redis client", zap.Error(err))
		}
	}()
	log.Info("Redis connected successfully")

	// Repositories
	runs := persistence.NewGormBillingRunRepository(db.DB)
	ratedItems := persistence.NewGormRatedItemRepository(db.DB)
	accounts := persistence.NewGormAccountRepository(db.DB)
	invoices := persistence.NewGormInvoiceRepository(db.DB)
	rejected := persistence.NewGormRejectedAccountRepository(db.DB)
	refs := persistence.NewGormReferenceRepository(db.DB)
	accounting := persistence.NewGormAccountingEntryGenerator(db.DB, log)

	// Reference data is read for every account; put Redis in front of it
	cachedRefs, err := cache.NewRedisReferenceCache(refs, &cfg.Redis, cache.WithCacheLogger(log))
	if err != nil {
		log.Fatal("Failed to create reference cache", zap.Error(err))
	}
	defer func() {
		if err := cachedRefs.Close(); err != nil {
			log.Error("Error closing reference cache", zap.Error(err))
		}
	}()

	// Pipeline configuration and strategies
	pipelineCfg := pipelineConfig(cfg)
	var splitRule strategy.InvoiceSplitRule = strategy.SingleInvoiceSplitRule{}
	if splitByPayment {
		splitRule = strategy.PaymentMethodSplitRule{}
	}

	aggregator := billingapp.NewAggregator(ratedItems, accounts, splitRule, pipelineCfg, log)
	discounts := billingapp.NewDiscountEngine(nil, nil, pipelineCfg, log)
	taxes := billingapp.NewTaxEngine(nil, pipelineCfg, log)
	assembler := billingapp.NewAssembler(
		strategy.StaticInvoiceTypeRule{},
		strategy.FixedDueDateDelay{Days: dueDays},
		discounts, taxes, pipelineCfg, log,
	)
	// Event bus with the run audit trail attached
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewRunAuditHandler(log))
	if err := bus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := bus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	runner := billingapp.NewBatchRunner(aggregator, assembler, invoices, ratedItems, rejected, bus, pipelineCfg, log)
	numberingStage := billingapp.NewNumberingStage(invoices, accounts, sequences, accounting, bus, pipelineCfg, log)
	machine := billingapp.NewStateMachine(runs, ratedItems, invoices, rejected, cachedRefs, runner, numberingStage, nil, bus, log)

	// Create and execute the run
	run, err := billing.NewBillingRun(billing.ProcessType(processType), cycle, invoiceDate, cutoff)
	if err != nil {
		log.Fatal("Failed to create billing run", zap.Error(err))
	}
	run.Exceptional = exceptional
	run.AutoAccounting = autoAccounting
	if err := runs.Save(context.Background(), run); err != nil {
		log.Fatal("Failed to persist billing run", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, runLog := logger.WithRunID(ctx, log, run.ID.String())
	if err := machine.Execute(ctx, run); err != nil {
		runLog.Error("Billing run failed", zap.Error(err))
	}

	report, err := billingapp.BuildRunReport(ctx, run, rejected)
	if err != nil {
		runLog.Error("Failed to build run report", zap.Error(err))
		os.Exit(1)
	}
	fmt.Print(report.Render())

	if run.Status == billing.RunStatusRejected {
		os.Exit(1)
	}
}

// pipelineConfig maps the loaded configuration onto the pipeline tunables
func pipelineConfig(cfg *config.Config) billingapp.PipelineConfig {
	mode, err := valueobject.ParseRoundingMode(cfg.Billing.RoundingMode)
	if err != nil {
		mode = valueobject.RoundingHalfUp
	}
	return billingapp.PipelineConfig{
		RoundingScale:        int32(cfg.Billing.RoundingScale),
		RoundingMode:         mode,
		TaxInclusivePricing:  cfg.Billing.TaxInclusivePricing,
		DueBalanceSign:       decimal.NewFromInt(int64(cfg.Billing.DueBalanceSign)),
		Workers:              cfg.Billing.Workers,
		BatchSize:            cfg.Billing.BatchSize,
		LinkChunkSize:        cfg.Billing.LinkChunkSize,
		NumberingBatchSize:   cfg.Billing.NumberingBatchSize,
		NumberPrefix:         cfg.Billing.NumberPrefix,
		WholeInvoiceTaxTypes: cfg.Billing.WholeInvoiceTaxTypes,
	}
}
