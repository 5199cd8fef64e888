package handler

import (
	"net/http"

	"github.com/coinage-io/coinage/internal/domain"
)

type CurrencyHandler struct {
	currencies *domain.Currencies
}

func NewCurrencyHandler(currencies *domain.Currencies) *CurrencyHandler {
	return &CurrencyHandler{currencies: currencies}
}

type currencyDTO struct {
	ID               string `json:"id"`
	Symbol           string `json:"symbol"`
	Name             string `json:"name"`
	NamePlural       string `json:"name_plural"`
	FractionalDigits int    `json:"fractional_digits"`
	Default          bool   `json:"default"`
}

func (h *CurrencyHandler) List(w http.ResponseWriter, r *http.Request) {
	def := h.currencies.Default()
	all := h.currencies.All()

	dtos := make([]currencyDTO, len(all))
	for i, c := range all {
		dtos[i] = currencyDTO{
			ID:               c.ID,
			Symbol:           c.Symbol,
			Name:             c.Name,
			NamePlural:       c.NamePlural,
			FractionalDigits: c.FractionalDigits,
			Default:          c == def,
		}
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
