// Package rental manages the paid periods tying users to bikes.
package rental

import "github.com/shopspring/decimal"

// Tariff is one fixed rental period offer.
type Tariff struct {
	Key   string
	Name  string
	Days  int
	Price decimal.Decimal
}

// Tariffs in display order. Prices are in rubles.
var Tariffs = []Tariff{
	{Key: "biweekly", Name: "2 недели", Days: 14, Price: decimal.RequireFromString("6500.00")},
	{Key: "monthly", Name: "Месяц", Days: 30, Price: decimal.RequireFromString("12600.00")},
}

// TariffByKey resolves a tariff chosen from the keyboard.
func TariffByKey(key string) (Tariff, bool) {
	for _, t := range Tariffs {
		if t.Key == key {
			return t, true
		}
	}
	return Tariff{}, false
}
