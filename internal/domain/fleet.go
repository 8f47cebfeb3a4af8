package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BikeStatus string

const (
	BikeAvailable   BikeStatus = "available"
	BikeRented      BikeStatus = "rented"
	BikeMaintenance BikeStatus = "maintenance"
	BikeBroken      BikeStatus = "broken"
)

// BikeStatusLabels is the single status→label table shared by every renderer.
var BikeStatusLabels = map[BikeStatus]string{
	BikeAvailable:   "🟢 Доступен",
	BikeRented:      "🔵 Арендован",
	BikeMaintenance: "🟡 На обслуживании",
	BikeBroken:      "🔴 Сломан",
}

type BatteryStatus string

const (
	BatteryAvailable BatteryStatus = "available"
	BatteryInUse     BatteryStatus = "in_use"
	BatteryCharging  BatteryStatus = "charging"
	BatteryBroken    BatteryStatus = "broken"
)

// Bike is one rentable unit of the fleet.
type Bike struct {
	ID           int64
	Number       string
	Model        string
	Description  string
	Status       BikeStatus
	Location     string
	PricePerHour decimal.Decimal
	PricePerDay  decimal.Decimal
	CreatedAt    time.Time
}

func (b *Bike) IsAvailable() bool {
	return b.Status == BikeAvailable
}

// Battery belongs to exactly one bike.
type Battery struct {
	ID        int64
	Number    string
	BikeID    int64
	Capacity  string
	Size      string
	Status    BatteryStatus
	CreatedAt time.Time
}
