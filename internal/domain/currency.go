package domain

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CurrencyDefinition is the decoded configuration for a single currency.
// Currencies are loaded once at startup and are immutable afterwards.
type CurrencyDefinition struct {
	ID               string
	Symbol           string
	Name             string
	NamePlural       string
	FractionalDigits int
	Format           string
	FormatLocale     string
	UserDefault      decimal.Decimal
	UserMinimum      decimal.Decimal
	BankDefault      decimal.Decimal
	BankMinimum      decimal.Decimal

	// MirroredScopes maps a canonical scope to the scopes whose balances
	// are shared with it. Empty means balances live under the global scope.
	MirroredScopes map[Scope][]Scope
}

type Currency struct {
	ID               string
	Symbol           string
	Name             string
	NamePlural       string
	FractionalDigits int

	format     string
	locale     language.Tag
	decimalSep string
	mirrors    map[Scope]Scope

	userDefault int64
	userMinimum int64
	bankDefault int64
	bankMinimum int64
}

func NewCurrency(def CurrencyDefinition) (*Currency, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("NewCurrency: %w: missing id", ErrInvalidCurrency)
	}
	if def.FractionalDigits < 0 {
		return nil, fmt.Errorf("NewCurrency: %s: %w: fractional digits must be >= 0", def.ID, ErrInvalidCurrency)
	}

	locale := language.English
	if def.FormatLocale != "" {
		tag, err := language.Parse(def.FormatLocale)
		if err != nil {
			return nil, fmt.Errorf("NewCurrency: %s: parse locale %q: %w", def.ID, def.FormatLocale, err)
		}
		locale = tag
	}

	format := def.Format
	if format == "" {
		format = "{AMOUNT} {SYMBOL}"
	}

	// Every canonical scope maps to itself, every mirrored scope to its
	// canonical one, so the table is a function over known scopes.
	mirrors := make(map[Scope]Scope, len(def.MirroredScopes))
	for canonical, mirrored := range def.MirroredScopes {
		mirrors[canonical] = canonical
		for _, s := range mirrored {
			mirrors[s] = canonical
		}
	}

	c := &Currency{
		ID:               def.ID,
		Symbol:           def.Symbol,
		Name:             def.Name,
		NamePlural:       def.NamePlural,
		FractionalDigits: def.FractionalDigits,
		format:           format,
		locale:           locale,
		decimalSep:       decimalSeparator(locale),
		mirrors:          mirrors,
	}
	c.userDefault = c.ToMinorUnits(def.UserDefault)
	c.userMinimum = c.ToMinorUnits(def.UserMinimum)
	c.bankDefault = c.ToMinorUnits(def.BankDefault)
	c.bankMinimum = c.ToMinorUnits(def.BankMinimum)
	return c, nil
}

// ResolveScope maps a requested scope set to the canonical scope the
// currency tracks balances under. With no mirroring configured every
// request resolves to the global scope. A false return means none of the
// requested scopes is known to this currency (a context mismatch, not an
// error).
func (c *Currency) ResolveScope(requested []Scope) (Scope, bool) {
	if len(c.mirrors) == 0 {
		return GlobalScope, true
	}
	for _, s := range requested {
		if canonical, ok := c.mirrors[s]; ok {
			return canonical, true
		}
	}
	return Scope{}, false
}

// ToMinorUnits converts a decimal amount to the integer minor-unit
// representation, rounding half away from zero at the configured
// precision.
func (c *Currency) ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(int32(c.FractionalDigits)).Round(0).IntPart()
}

func (c *Currency) FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -int32(c.FractionalDigits))
}

func (c *Currency) DefaultBalance(kind AccountKind) int64 {
	if kind == AccountKindBank {
		return c.bankDefault
	}
	return c.userDefault
}

func (c *Currency) MinimumBalance(kind AccountKind) int64 {
	if kind == AccountKindBank {
		return c.bankMinimum
	}
	return c.userMinimum
}

// Format renders an amount using the configured template. Supported
// substitutions: {AMOUNT}, {SYMBOL}, {NAME}. Grouping runs over the
// integer units while the fraction is taken from the decimal's own
// digits, so amounts past float64 precision still render exactly.
func (c *Currency) Format(amount decimal.Decimal) string {
	amount = amount.Round(int32(c.FractionalDigits))
	units := amount.Truncate(0)

	printer := message.NewPrinter(c.locale)
	rendered := printer.Sprintf("%v", number.Decimal(units.IntPart(), number.MaxFractionDigits(0)))
	if amount.Sign() < 0 && units.IsZero() {
		rendered = "-" + rendered
	}
	if c.FractionalDigits > 0 {
		frac := amount.Sub(units).Shift(int32(c.FractionalDigits)).Abs().IntPart()
		rendered += c.decimalSep + fmt.Sprintf("%0*d", c.FractionalDigits, frac)
	}

	name := c.NamePlural
	if amount.Equal(decimal.NewFromInt(1)) {
		name = c.Name
	}

	out := strings.ReplaceAll(c.format, "{AMOUNT}", rendered)
	out = strings.ReplaceAll(out, "{SYMBOL}", c.Symbol)
	out = strings.ReplaceAll(out, "{NAME}", name)
	return out
}

// decimalSeparator probes the locale for the character it renders
// between integer and fraction digits.
func decimalSeparator(locale language.Tag) string {
	s := message.NewPrinter(locale).Sprintf("%v", number.Decimal(0.5,
		number.MinFractionDigits(1),
		number.MaxFractionDigits(1),
	))
	return strings.TrimFunc(s, unicode.IsDigit)
}

// Currencies is the immutable set of configured currencies.
type Currencies struct {
	byID map[string]*Currency
	def  *Currency
}

func NewCurrencies(all []*Currency, defaultID string) (*Currencies, error) {
	byID := make(map[string]*Currency, len(all))
	for _, c := range all {
		if _, exists := byID[c.ID]; exists {
			return nil, fmt.Errorf("NewCurrencies: duplicate currency %q", c.ID)
		}
		byID[c.ID] = c
	}
	def, ok := byID[defaultID]
	if !ok {
		return nil, fmt.Errorf("NewCurrencies: default currency %q not configured", defaultID)
	}
	return &Currencies{byID: byID, def: def}, nil
}

func (cs *Currencies) ByID(id string) (*Currency, bool) {
	c, ok := cs.byID[id]
	return c, ok
}

func (cs *Currencies) Default() *Currency {
	return cs.def
}

func (cs *Currencies) All() []*Currency {
	all := make([]*Currency, 0, len(cs.byID))
	for _, c := range cs.byID {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}
