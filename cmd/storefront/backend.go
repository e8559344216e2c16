package main

import (
	"context"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/infrastructure/memory"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/infrastructure/mongodb"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/infrastructure/mysql"
)

type storage struct {
	catalog model.CatalogRepository
	orders  model.OrderRepository
	bills   model.BillRepository
	tx      model.Transactor
	close   func(ctx context.Context) error
}

func openStorage(ctx context.Context, c *config) (*storage, error) {
	switch c.Backend {
	case backendMySQL:
		db, err := mysql.Open(ctx, mysql.Config{
			DSN:             c.MySQLDSN,
			MaxOpenConns:    c.MySQLMaxOpenConns,
			MaxIdleConns:    c.MySQLMaxIdleConns,
			ConnMaxLifetime: c.MySQLConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		return &storage{
			catalog: mysql.NewCatalogRepository(db),
			orders:  mysql.NewOrderRepository(db),
			bills:   mysql.NewBillRepository(db),
			tx:      mysql.NewTransactor(db),
			close:   func(context.Context) error { return db.Close() },
		}, nil

	case backendMongo:
		client, err := mongodb.Connect(ctx, c.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(c.MongoDatabase)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		return &storage{
			catalog: mongodb.NewCatalogRepository(db),
			orders:  mongodb.NewOrderRepository(db),
			bills:   mongodb.NewBillRepository(db),
			tx:      mongodb.NewTransactor(client),
			close:   client.Disconnect,
		}, nil

	case backendMemory:
		log.Warn("in-memory backend selected, data is lost on restart")
		return &storage{
			catalog: memory.NewCatalogRepository(),
			orders:  memory.NewOrderRepository(),
			bills:   memory.NewBillRepository(),
			tx:      memory.Transactor{},
			close:   func(context.Context) error { return nil },
		}, nil
	}
	return nil, errors.Errorf("unknown backend %q", c.Backend)
}
