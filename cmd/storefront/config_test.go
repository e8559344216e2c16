package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appservice "github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/application/service"
	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/domain/model"
)

func TestParseEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := parseEnv()
		require.NoError(t, err)
		assert.Equal(t, backendMySQL, c.Backend)

		policy, err := c.stockPolicy()
		require.NoError(t, err)
		assert.Equal(t, model.PermissiveStock, policy)

		cfg, err := c.checkoutConfig()
		require.NoError(t, err)
		assert.Equal(t, appservice.ConsistencyTransaction, cfg.Consistency)
		assert.False(t, cfg.VerifyTotal)
		assert.Equal(t, model.Money(0), cfg.Bill.ShippingCost)
	})

	t.Run("memory backend compensates", func(t *testing.T) {
		t.Setenv("STOREFRONT_BACKEND", "Memory")
		t.Setenv("STOREFRONT_STOCK_POLICY", "strict")
		t.Setenv("STOREFRONT_BILL_TAX_RATE_BP", "1800")
		t.Setenv("STOREFRONT_BILL_SHIPPING_COST", "49.99")

		c, err := parseEnv()
		require.NoError(t, err)
		policy, err := c.stockPolicy()
		require.NoError(t, err)
		assert.Equal(t, model.StrictStock, policy)

		cfg, err := c.checkoutConfig()
		require.NoError(t, err)
		assert.Equal(t, appservice.ConsistencyCompensation, cfg.Consistency)
		assert.Equal(t, int64(1800), cfg.Bill.TaxRateBasisPoints)
		assert.Equal(t, model.Money(4999), cfg.Bill.ShippingCost)
	})

	t.Run("explicit consistency wins", func(t *testing.T) {
		t.Setenv("STOREFRONT_BACKEND", "memory")
		t.Setenv("STOREFRONT_CHECKOUT_CONSISTENCY", "transaction")

		c, err := parseEnv()
		require.NoError(t, err)
		cfg, err := c.checkoutConfig()
		require.NoError(t, err)
		assert.Equal(t, appservice.ConsistencyTransaction, cfg.Consistency)
	})

	t.Run("rejects bad values", func(t *testing.T) {
		t.Setenv("STOREFRONT_BACKEND", "postgres")
		_, err := parseEnv()
		assert.Error(t, err)

		t.Setenv("STOREFRONT_BACKEND", "memory")
		t.Setenv("STOREFRONT_STOCK_POLICY", "lenient")
		t.Setenv("STOREFRONT_CHECKOUT_CONSISTENCY", "saga")
		c, err := parseEnv()
		require.NoError(t, err)
		_, err = c.stockPolicy()
		assert.Error(t, err)
		_, err = c.checkoutConfig()
		assert.Error(t, err)
	})
}
