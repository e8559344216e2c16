package main

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	appservice "github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/application/service"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
	domainservice "github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/service"
)

const appID = "storefront"

const (
	backendMySQL  = "mysql"
	backendMongo  = "mongo"
	backendMemory = "memory"
)

type config struct {
	LogLevel string `envconfig:"log_level" default:"info"`

	ServeHTTPAddress string `envconfig:"serve_http_address" default:":8080"`
	ServeGRPCAddress string `envconfig:"serve_grpc_address" default:":8081"`

	Backend string `envconfig:"backend" default:"mysql"`

	MySQLDSN             string        `envconfig:"mysql_dsn" default:"storefront:storefront@tcp(localhost:3306)/storefront"`
	MySQLMaxOpenConns    int           `envconfig:"mysql_max_open_conns" default:"20"`
	MySQLMaxIdleConns    int           `envconfig:"mysql_max_idle_conns" default:"10"`
	MySQLConnMaxLifetime time.Duration `envconfig:"mysql_conn_max_lifetime" default:"5m"`

	MongoURI      string `envconfig:"mongo_uri" default:"mongodb://localhost:27017/?replicaSet=rs0"`
	MongoDatabase string `envconfig:"mongo_database" default:"storefront"`

	StockPolicy         string `envconfig:"stock_policy" default:"permissive"`
	CheckoutConsistency string `envconfig:"checkout_consistency"`
	VerifyTotal         bool   `envconfig:"checkout_verify_total" default:"false"`
	TotalTolerance      string `envconfig:"checkout_total_tolerance" default:"0"`

	BillTaxRateBP     int64  `envconfig:"bill_tax_rate_bp" default:"0"`
	BillShippingCost  string `envconfig:"bill_shipping_cost" default:"0"`
	BillPaymentMethod string `envconfig:"bill_payment_method" default:"Online"`

	KafkaBrokers      string        `envconfig:"kafka_brokers"`
	KafkaTopic        string        `envconfig:"kafka_topic" default:"storefront.events"`
	KafkaWriteTimeout time.Duration `envconfig:"kafka_write_timeout" default:"5s"`
	KafkaBatchTimeout time.Duration `envconfig:"kafka_batch_timeout" default:"10ms"`
}

func parseEnv() (*config, error) {
	c := new(config)
	if err := envconfig.Process(appID, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case backendMySQL, backendMongo, backendMemory:
	default:
		return nil, errors.Errorf("unknown backend %q", c.Backend)
	}
	return c, nil
}

func (c *config) logLevel() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

func (c *config) stockPolicy() (model.StockPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(c.StockPolicy)) {
	case "", "permissive":
		return model.PermissiveStock, nil
	case "strict":
		return model.StrictStock, nil
	}
	return 0, errors.Errorf("unknown stock policy %q", c.StockPolicy)
}

// checkoutConfig defaults consistency to a storage transaction for database
// backends and to compensation for the in-memory backend.
func (c *config) checkoutConfig() (appservice.Config, error) {
	consistency := appservice.ConsistencyTransaction
	if c.Backend == backendMemory {
		consistency = appservice.ConsistencyCompensation
	}
	if c.CheckoutConsistency != "" {
		parsed, err := appservice.ParseConsistency(c.CheckoutConsistency)
		if err != nil {
			return appservice.Config{}, err
		}
		consistency = parsed
	}

	tolerance, err := model.ParseMoney(c.TotalTolerance)
	if err != nil {
		return appservice.Config{}, errors.Wrap(err, "checkout total tolerance")
	}
	shipping, err := model.ParseMoney(c.BillShippingCost)
	if err != nil {
		return appservice.Config{}, errors.Wrap(err, "bill shipping cost")
	}
	if c.BillTaxRateBP < 0 || tolerance < 0 || shipping < 0 {
		return appservice.Config{}, model.ErrNegativeAmount
	}

	return appservice.Config{
		Consistency:    consistency,
		VerifyTotal:    c.VerifyTotal,
		TotalTolerance: tolerance,
		Bill: domainservice.BillOptions{
			TaxRateBasisPoints: c.BillTaxRateBP,
			ShippingCost:       shipping,
			PaymentMethod:      c.BillPaymentMethod,
		},
	}, nil
}
