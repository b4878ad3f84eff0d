// Package cleaning applies the quality rules that separate a raw trip
// partition into kept and rejected sets. Every rule is evaluated
// independently so a rejected record reports all reasons it triggered, but
// it appears in the rejected set exactly once.
package cleaning

import (
	"time"

	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/config"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/dimension"
	"github.com/speedy237/NYC-Taxi-Analytics-Platform/internal/domain/entity"
)

// ReasonCode identifies one rejection rule.
type ReasonCode string

const (
	ReasonNegativeOrZeroDuration  ReasonCode = "NEGATIVE_OR_ZERO_DURATION"
	ReasonImplausibleDuration     ReasonCode = "IMPLAUSIBLE_DURATION"
	ReasonNegativeFare            ReasonCode = "NEGATIVE_FARE"
	ReasonImplausibleFare         ReasonCode = "IMPLAUSIBLE_FARE"
	ReasonZeroDistanceNonzeroFare ReasonCode = "ZERO_DISTANCE_NONZERO_FARE"
	ReasonInvalidLocation         ReasonCode = "INVALID_LOCATION"
)

// RejectedTrip pairs a rejected record with every reason it triggered.
type RejectedTrip struct {
	Trip    entity.TripRecord
	Reasons []ReasonCode
}

// Result holds the outcome of cleaning one partition. ReasonCounts tallies
// each reason across the rejected set; a multi-reason record increments
// every code it triggered.
type Result struct {
	Kept         []entity.TripRecord
	Rejected     []RejectedTrip
	ReasonCounts map[ReasonCode]int
}

// Cleaner evaluates the rejection rules against trip records. It is
// stateless apart from its thresholds and the zone snapshot, so one
// instance serves concurrent partitions.
type Cleaner struct {
	maxDuration time.Duration
	maxFare     float64
	minFlagFare float64
	zones       *dimension.ZoneSnapshot
}

// NewCleaner builds a Cleaner from the configured thresholds and the zone
// snapshot of the current run.
func NewCleaner(cfg config.CleaningConfig, zones *dimension.ZoneSnapshot) *Cleaner {
	return &Cleaner{
		maxDuration: time.Duration(cfg.MaxDurationHours * float64(time.Hour)),
		maxFare:     cfg.MaxFareAmount,
		minFlagFare: cfg.MinFlagFare,
		zones:       zones,
	}
}

// Clean partitions the input into kept and rejected sets. The rules are
// applied in declaration order to every record, so identical input always
// yields identical output.
func (c *Cleaner) Clean(trips []entity.TripRecord) Result {
	res := Result{
		Kept:         make([]entity.TripRecord, 0, len(trips)),
		Rejected:     nil,
		ReasonCounts: make(map[ReasonCode]int),
	}

	for _, t := range trips {
		reasons := c.evaluate(t)
		if len(reasons) == 0 {
			res.Kept = append(res.Kept, t)
			continue
		}
		res.Rejected = append(res.Rejected, RejectedTrip{Trip: t, Reasons: reasons})
		for _, r := range reasons {
			res.ReasonCounts[r]++
		}
	}
	return res
}

// evaluate returns every reason code the record triggers, in rule order.
func (c *Cleaner) evaluate(t entity.TripRecord) []ReasonCode {
	var reasons []ReasonCode

	duration := t.DropoffTime.Sub(t.PickupTime)
	if duration <= 0 {
		reasons = append(reasons, ReasonNegativeOrZeroDuration)
	} else if duration > c.maxDuration {
		reasons = append(reasons, ReasonImplausibleDuration)
	}
	if t.FareAmount < 0 {
		reasons = append(reasons, ReasonNegativeFare)
	} else if t.FareAmount > c.maxFare {
		reasons = append(reasons, ReasonImplausibleFare)
	}
	if t.TripDistance == 0 && t.FareAmount > c.minFlagFare {
		reasons = append(reasons, ReasonZeroDistanceNonzeroFare)
	}
	if _, ok := c.zones.Lookup(t.PULocationID); !ok {
		reasons = append(reasons, ReasonInvalidLocation)
	} else if _, ok := c.zones.Lookup(t.DOLocationID); !ok {
		reasons = append(reasons, ReasonInvalidLocation)
	}
	return reasons
}
