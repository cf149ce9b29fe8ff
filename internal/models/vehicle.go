package models

import (
	"time"
)

// Vehicle represents a tracked car and the state the maintenance rules read.
type Vehicle struct {
	ID                                string     `bson:"_id,omitempty" json:"id"`
	Make                              string     `bson:"make" json:"make"`
	Model                             string     `bson:"model" json:"model"`
	Year                              int        `bson:"year" json:"year"`
	Mileage                           int        `bson:"mileage" json:"mileage"` // in kilometers
	Engine                            string     `bson:"engine,omitempty" json:"engine,omitempty"`
	ImageURL                          string     `bson:"image_url,omitempty" json:"image_url,omitempty"`
	LastTimingChainReplacementDate    *time.Time `bson:"last_timing_chain_replacement_date,omitempty" json:"last_timing_chain_replacement_date,omitempty"`
	LastTimingChainReplacementMileage *int       `bson:"last_timing_chain_replacement_mileage,omitempty" json:"last_timing_chain_replacement_mileage,omitempty"`
	OwnerID                           string     `bson:"owner_id" json:"owner_id"`
	CreatedAt                         time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt                         time.Time  `bson:"updated_at" json:"updated_at"`
}

// MakeCount is the number of vehicles of one make.
type MakeCount struct {
	Make  string `bson:"make" json:"make"`
	Count int    `bson:"count" json:"count"`
}

// VehicleStatistics summarizes the stored vehicles.
type VehicleStatistics struct {
	TotalVehicles int         `json:"total_vehicles"`
	ByMake        []MakeCount `json:"by_make"`
}
