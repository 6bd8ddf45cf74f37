// internal/poller/builder.go
package poller

import (
	"go.uber.org/zap"

	"github.com/tamzrod/meterbridge/internal/catalog"
	cfg "github.com/tamzrod/meterbridge/internal/config"
	pmodbus "github.com/tamzrod/meterbridge/internal/poller/modbus"
)

// BuildClient constructs the Modbus transport for the configured device.
// The transport is returned unconnected: the link supervisor owns its
// session lifecycle.
func BuildClient(c *cfg.Config) (*pmodbus.Client, error) {
	return pmodbus.New(pmodbus.Config{
		Endpoint: c.Device.Endpoint(),
		UnitID:   c.Device.UnitID,
		Timeout:  cfg.Ms(c.Device.TimeoutMs),
	})
}

// Build constructs a Poller reading cat through client.
func Build(c *cfg.Config, cat catalog.Catalog, client Client, link Link, logger *zap.Logger) (*Poller, error) {
	return New(
		Config{
			Device:   c.Device.Host,
			Interval: cfg.Ms(c.Poll.IntervalMs),
			Catalog:  cat,
			Retry: RetryPolicy{
				MaxRetries: c.Poll.MaxRetries,
				BaseDelay:  cfg.Ms(c.Poll.RetryBaseMs),
				Increment:  cfg.Ms(c.Poll.RetryIncrementMs),
			},
			SettleDelay:       cfg.Ms(c.Poll.InterFieldDelayMs),
			ExtraSettle:       cfg.Ms(c.Poll.ExtraSettleMs),
			ExtraSettleFields: c.Poll.ExtraSettleFields,
			FailureCooldown:   cfg.Ms(c.Poll.FailureCooldownMs),
		},
		client,
		link,
		logger,
	)
}
