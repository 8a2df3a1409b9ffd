package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CreditPackage is a purchasable bundle of contact credits.
type CreditPackage struct {
	Code     string `mapstructure:"code"`
	Credits  int64  `mapstructure:"credits"`
	CostUSD  int64  `mapstructure:"cost_usd_cents"`
	Currency string `mapstructure:"currency"`
}

func DefaultCreditPackages() []CreditPackage {
	return []CreditPackage{
		{Code: "starter", Credits: 10, CostUSD: 999, Currency: "usd"},
		{Code: "standard", Credits: 50, CostUSD: 3999, Currency: "usd"},
		{Code: "premium", Credits: 150, CostUSD: 9999, Currency: "usd"},
	}
}

// PackageCatalog holds the purchasable credit packages, reloaded on file change.
type PackageCatalog struct {
	current atomic.Value // holds []CreditPackage
}

func NewPackageCatalog() (*PackageCatalog, error) {
	v := viper.New()

	v.SetConfigName("packages")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/paycore/config")
	v.AddConfigPath("/etc/paycore")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PAYCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		v.SetDefault("packages", DefaultCreditPackages())
	}

	var packages []CreditPackage
	if err := v.UnmarshalKey("packages", &packages); err != nil {
		return nil, err
	}
	if err := validatePackages(packages); err != nil {
		return nil, err
	}

	catalog := &PackageCatalog{}
	catalog.current.Store(packages)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated []CreditPackage
		if err := v.UnmarshalKey("packages", &updated); err != nil {
			log.Printf("[package-catalog] reload failed: %v", err)
			return
		}
		if err := validatePackages(updated); err != nil {
			log.Printf("[package-catalog] invalid catalog ignored: %v", err)
			return
		}
		catalog.current.Store(updated)
		log.Printf("[package-catalog] reloaded from %s", e.Name)
	})

	return catalog, nil
}

// NewStaticCatalog builds a catalog from a fixed package list, without the
// config file watcher.
func NewStaticCatalog(packages []CreditPackage) (*PackageCatalog, error) {
	if err := validatePackages(packages); err != nil {
		return nil, err
	}
	catalog := &PackageCatalog{}
	catalog.current.Store(packages)
	return catalog, nil
}

func (c *PackageCatalog) All() []CreditPackage {
	return c.current.Load().([]CreditPackage)
}

// Find returns the package with the given code, or nil.
func (c *PackageCatalog) Find(code string) *CreditPackage {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, pkg := range c.All() {
		if pkg.Code == code {
			found := pkg
			return &found
		}
	}
	return nil
}

func validatePackages(packages []CreditPackage) error {
	if len(packages) == 0 {
		return errors.New("package catalog is empty")
	}
	seen := make(map[string]bool, len(packages))
	for _, pkg := range packages {
		code := strings.ToLower(strings.TrimSpace(pkg.Code))
		if code == "" {
			return errors.New("package code is required")
		}
		if seen[code] {
			return errors.New("duplicate package code: " + code)
		}
		seen[code] = true
		if pkg.Credits <= 0 {
			return errors.New("package credits must be positive: " + code)
		}
		if pkg.CostUSD <= 0 {
			return errors.New("package cost must be positive: " + code)
		}
	}
	return nil
}
