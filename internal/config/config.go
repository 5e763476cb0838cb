package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	pkgconfig "github.com/Skotchmaster/evocart/pkg/config"
)

type ServiceConfig struct {
	pkgconfig.Config

	TaxRate      decimal.Decimal
	ShippingFlat decimal.Decimal
}

// Load reads .env when present, then the process environment. Missing
// required settings are fatal.
func Load() ServiceConfig {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v. Using system environment variables", err)
	}

	base := pkgconfig.Load()
	pkgconfig.MustComplete(base)

	cfg, err := Parse(base)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

func Parse(base pkgconfig.Config) (ServiceConfig, error) {
	rate, err := decimal.NewFromString(base.TaxRate)
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return ServiceConfig{}, fmt.Errorf("TAX_RATE must be a fraction between 0 and 1, got %q", base.TaxRate)
	}
	ship, err := decimal.NewFromString(base.ShippingFlat)
	if err != nil || ship.IsNegative() {
		return ServiceConfig{}, fmt.Errorf("SHIPPING_FLAT must be a non-negative amount, got %q", base.ShippingFlat)
	}

	return ServiceConfig{
		Config:       base,
		TaxRate:      rate,
		ShippingFlat: ship.Round(2),
	}, nil
}
