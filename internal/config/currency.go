package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/coinage-io/coinage/internal/domain"
)

// currencyFile is the on-disk shape of one currency definition. The file
// stem is the currency ID, e.g. currencies/euro.yml defines "euro".
type currencyFile struct {
	Currency struct {
		Symbol           string `yaml:"symbol"`
		Name             string `yaml:"name"`
		NamePlural       string `yaml:"name-plural"`
		FractionalDigits int    `yaml:"fractional-digits"`
	} `yaml:"currency"`
	Default struct {
		User balanceDefaults `yaml:"user"`
		Bank balanceDefaults `yaml:"bank"`
	} `yaml:"default"`
	Format          string              `yaml:"format"`
	FormatLocale    string              `yaml:"format-locale"`
	ContextMirrored map[string][]string `yaml:"context-mirrored"`
}

type balanceDefaults struct {
	Balance        string `yaml:"balance"`
	MinimumBalance string `yaml:"minimum-balance"`
}

func (d balanceDefaults) parse() (balance, minimum decimal.Decimal, err error) {
	balance, err = parseAmount(d.Balance)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	minimum, err = parseAmount(d.MinimumBalance)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return balance, minimum, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return d, nil
}

// LoadCurrencies reads every *.yml / *.yaml file in dir and builds the
// immutable currency set. Currencies do not hot-reload; this runs once
// at startup.
func LoadCurrencies(dir, defaultID string) (*domain.Currencies, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("LoadCurrencies: %w", err)
	}

	var all []*domain.Currency
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yml" && ext != ".yaml" {
			continue
		}
		cur, err := loadCurrencyFile(filepath.Join(dir, e.Name()), strings.TrimSuffix(e.Name(), ext))
		if err != nil {
			return nil, fmt.Errorf("LoadCurrencies: %w", err)
		}
		all = append(all, cur)
	}

	currencies, err := domain.NewCurrencies(all, defaultID)
	if err != nil {
		return nil, fmt.Errorf("LoadCurrencies: %w", err)
	}
	return currencies, nil
}

func loadCurrencyFile(path, id string) (*domain.Currency, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loadCurrencyFile: %w", err)
	}

	var f currencyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("loadCurrencyFile: %s: %w", path, err)
	}

	mirrored := make(map[domain.Scope][]domain.Scope, len(f.ContextMirrored))
	for canonical, scopes := range f.ContextMirrored {
		canonicalScope, err := domain.ParseScope(canonical)
		if err != nil {
			return nil, fmt.Errorf("loadCurrencyFile: %s: %w", path, err)
		}
		parsed := make([]domain.Scope, 0, len(scopes))
		for _, s := range scopes {
			scope, err := domain.ParseScope(s)
			if err != nil {
				return nil, fmt.Errorf("loadCurrencyFile: %s: %w", path, err)
			}
			parsed = append(parsed, scope)
		}
		mirrored[canonicalScope] = parsed
	}

	userDefault, userMinimum, err := f.Default.User.parse()
	if err != nil {
		return nil, fmt.Errorf("loadCurrencyFile: %s: user defaults: %w", path, err)
	}
	bankDefault, bankMinimum, err := f.Default.Bank.parse()
	if err != nil {
		return nil, fmt.Errorf("loadCurrencyFile: %s: bank defaults: %w", path, err)
	}

	cur, err := domain.NewCurrency(domain.CurrencyDefinition{
		ID:               id,
		Symbol:           f.Currency.Symbol,
		Name:             f.Currency.Name,
		NamePlural:       f.Currency.NamePlural,
		FractionalDigits: f.Currency.FractionalDigits,
		Format:           f.Format,
		FormatLocale:     f.FormatLocale,
		UserDefault:      userDefault,
		UserMinimum:      userMinimum,
		BankDefault:      bankDefault,
		BankMinimum:      bankMinimum,
		MirroredScopes:   mirrored,
	})
	if err != nil {
		return nil, fmt.Errorf("loadCurrencyFile: %s: %w", path, err)
	}
	return cur, nil
}
