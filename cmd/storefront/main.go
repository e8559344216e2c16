package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	appservice "github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/application/service"
	domainservice "github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/service"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/infrastructure/event"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/infrastructure/kafka"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/infrastructure/metrics"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/infrastructure/mysql"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/infrastructure/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	app := &cli.App{
		Name:  appID,
		Usage: "storefront order and billing service",
		Commands: []*cli.Command{
			{
				Name:   "service",
				Usage:  "serve the HTTP API and the gRPC health endpoint",
				Action: runService,
			},
			{
				Name:   "migrate",
				Usage:  "apply MySQL schema migrations",
				Action: runMigrate,
			},
			{
				Name:  "create-bill",
				Usage: "create bills for orders that have none",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "order-id",
						Usage: "bill a single order instead of every unbilled one",
					},
				},
				Action: runCreateBill,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("storefront failed")
	}
}

type application struct {
	checkout appservice.CheckoutService
	catalog  domainservice.CatalogService
	orders   domainservice.OrderService
	bills    domainservice.BillService
	metrics  *metrics.Registry
	close    func(ctx context.Context) error
}

func buildApplication(ctx context.Context, c *config) (*application, error) {
	log.SetLevel(c.logLevel())

	policy, err := c.stockPolicy()
	if err != nil {
		return nil, err
	}
	checkoutCfg, err := c.checkoutConfig()
	if err != nil {
		return nil, err
	}

	store, err := openStorage(ctx, c)
	if err != nil {
		return nil, err
	}

	logger := log.StandardLogger()
	dispatchers := []domainservice.EventDispatcher{event.NewLogDispatcher(logger)}
	var producer *kafka.Dispatcher
	if c.KafkaBrokers != "" {
		producer = kafka.NewDispatcher(kafka.Config{
			Brokers:      c.KafkaBrokers,
			Topic:        c.KafkaTopic,
			WriteTimeout: c.KafkaWriteTimeout,
			BatchTimeout: c.KafkaBatchTimeout,
		})
		dispatchers = append(dispatchers, producer)
	}
	dispatcher := event.NewMultiDispatcher(logger, dispatchers...)

	registry := metrics.NewRegistry()
	catalog := domainservice.NewCatalogService(store.catalog, dispatcher, policy)
	orders := domainservice.NewOrderService(store.orders, dispatcher)
	bills := domainservice.NewBillService(store.bills, store.orders, dispatcher)
	checkout := appservice.NewCheckoutService(catalog, orders, bills, store.tx, dispatcher, registry, logger, checkoutCfg)

	log.WithFields(log.Fields{
		"backend":      c.Backend,
		"stock_policy": policy.String(),
		"consistency":  checkoutCfg.Consistency,
		"kafka":        producer != nil,
	}).Info("storefront configured")

	return &application{
		checkout: checkout,
		catalog:  catalog,
		orders:   orders,
		bills:    bills,
		metrics:  registry,
		close: func(ctx context.Context) error {
			if producer != nil {
				if err := producer.Close(); err != nil {
					log.WithError(err).Warn("close kafka writer")
				}
			}
			return store.close(ctx)
		},
	}, nil
}

func runService(cliCtx *cli.Context) error {
	c, err := parseEnv()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cliCtx.Context)
	defer cancel()

	app, err := buildApplication(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.close(context.Background()); err != nil {
			log.WithError(err).Warn("close storage")
		}
	}()

	handler := transport.NewHandler(app.checkout, app.orders, app.bills, app.catalog, log.StandardLogger())
	httpServer := &http.Server{
		Addr:              c.ServeHTTPAddress,
		Handler:           transport.Router(handler, app.metrics, app.metrics.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(appID, grpc_health_v1.HealthCheckResponse_SERVING)

	killSignalChan := getKillSignalChan()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{"url": c.ServeHTTPAddress}).Info("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		listener, err := net.Listen("tcp", c.ServeGRPCAddress)
		if err != nil {
			return errors.Wrap(err, "listen grpc")
		}
		log.WithFields(log.Fields{"url": c.ServeGRPCAddress}).Info("Starting gRPC health server")
		return grpcServer.Serve(listener)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case sig := <-killSignalChan:
			logKillSignal(sig)
		}
		healthServer.Shutdown()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	return g.Wait()
}

func runMigrate(_ *cli.Context) error {
	c, err := parseEnv()
	if err != nil {
		return err
	}
	if c.Backend != backendMySQL {
		log.WithField("backend", c.Backend).Info("nothing to migrate")
		return nil
	}
	version, err := mysql.Migrate(c.MySQLDSN)
	if err != nil {
		return err
	}
	log.WithField("version", version).Info("schema is up to date")
	return nil
}

func runCreateBill(cliCtx *cli.Context) error {
	c, err := parseEnv()
	if err != nil {
		return err
	}
	ctx := cliCtx.Context

	app, err := buildApplication(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.close(context.Background()); err != nil {
			log.WithError(err).Warn("close storage")
		}
	}()

	if raw := cliCtx.String("order-id"); raw != "" {
		orderID, err := uuid.Parse(raw)
		if err != nil {
			return errors.Wrapf(err, "invalid order id %q", raw)
		}
		bill, err := app.checkout.CreateBillForOrder(ctx, orderID)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"order_id": orderID, "bill_number": bill.BillNumber}).Info("order billed")
		return nil
	}

	results, err := app.checkout.CreateMissingBills(ctx)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		log.WithFields(log.Fields{"order_id": r.OrderID, "bill_number": r.Bill.BillNumber}).Info("order billed")
	}
	log.WithFields(log.Fields{"orders": len(results), "failed": failed}).Info("bill recovery finished")
	if failed > 0 {
		return errors.Errorf("%d orders could not be billed", failed)
	}
	return nil
}

func getKillSignalChan() chan os.Signal {
	osKillSignalChan := make(chan os.Signal, 1)
	signal.Notify(osKillSignalChan, os.Interrupt, syscall.SIGTERM)
	return osKillSignalChan
}

func logKillSignal(killSignal os.Signal) {
	switch killSignal {
	case os.Interrupt:
		log.Info("Got SIGINT...")
	case syscall.SIGTERM:
		log.Info("Got SIGTERM...")
	}
}
