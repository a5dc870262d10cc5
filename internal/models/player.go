package models

import "fmt"

// Counter names one of the cumulative PlayerStat counters.
type Counter string

const (
	CounterKills         Counter = "kills"
	CounterFriendlyFires Counter = "friendlyFires"
	CounterRevives       Counter = "revives"
	CounterCaptures      Counter = "captures"
	CounterLightVehicle  Counter = "lightVehicle"
	CounterHeavyVehicle  Counter = "heavyVehicle"
	CounterAirVehicle    Counter = "airVehicle"
	CounterTraveled      Counter = "traveled"
	CounterCarried       Counter = "carried"
	CounterPassOuts      Counter = "passOuts"
	CounterMoneySpent    Counter = "moneySpent"
	CounterDied          Counter = "died"
)

// Counters lists every counter in scoreboard column order.
var Counters = []Counter{
	CounterKills,
	CounterFriendlyFires,
	CounterRevives,
	CounterCaptures,
	CounterLightVehicle,
	CounterHeavyVehicle,
	CounterAirVehicle,
	CounterTraveled,
	CounterCarried,
	CounterPassOuts,
	CounterMoneySpent,
	CounterDied,
}

// PlayerStat holds the cumulative counters of one player for one ingestion run.
type PlayerStat struct {
	Name          string `json:"name"`
	Kills         int64  `json:"kills"`
	FriendlyFires int64  `json:"friendlyFires"`
	Revives       int64  `json:"revives"`
	Captures      int64  `json:"captures"`
	LightVehicle  int64  `json:"lightVehicle"`
	HeavyVehicle  int64  `json:"heavyVehicle"`
	AirVehicle    int64  `json:"airVehicle"`
	Traveled      int64  `json:"traveled"`
	Carried       int64  `json:"carried"`
	PassOuts      int64  `json:"passOuts"`
	MoneySpent    int64  `json:"moneySpent"`
	Died          int64  `json:"died"`
}

// NewPlayerStat returns a zeroed stat record for name.
func NewPlayerStat(name string) *PlayerStat {
	return &PlayerStat{Name: name}
}

func (p *PlayerStat) field(c Counter) *int64 {
	switch c {
	case CounterKills:
		return &p.Kills
	case CounterFriendlyFires:
		return &p.FriendlyFires
	case CounterRevives:
		return &p.Revives
	case CounterCaptures:
		return &p.Captures
	case CounterLightVehicle:
		return &p.LightVehicle
	case CounterHeavyVehicle:
		return &p.HeavyVehicle
	case CounterAirVehicle:
		return &p.AirVehicle
	case CounterTraveled:
		return &p.Traveled
	case CounterCarried:
		return &p.Carried
	case CounterPassOuts:
		return &p.PassOuts
	case CounterMoneySpent:
		return &p.MoneySpent
	case CounterDied:
		return &p.Died
	}
	panic(fmt.Sprintf("models: unknown player counter %q", c))
}

// Add adds delta to the counter c. An unknown counter panics.
func (p *PlayerStat) Add(c Counter, delta int64) {
	*p.field(c) += delta
}

// Get returns the value of counter c. An unknown counter panics.
func (p *PlayerStat) Get(c Counter) int64 {
	return *p.field(c)
}
