// Package maintenance predicts upcoming maintenance for a vehicle and reconciles the
// predictions with the tasks already stored for it.
package maintenance

import (
	"time"

	"github.com/ukydev/car-maintenance/internal/models"
)

// Business rules.
const (
	OilChangeInterval          = 10000
	TimingChainIntervalMileage = 120000
	TimingChainIntervalDays    = 365
	WearServiceMileage         = 50000

	FirstOilChangeDays     = 180
	BrakeChangeDays        = 60
	TireReplacementDays    = 90
	CompletionFallbackDays = 90

	// RecentWindowMonths is how far back a completed task suppresses a new candidate.
	RecentWindowMonths = 6
)

// RecentSince returns the start of the recent-completion window for now.
func RecentSince(now time.Time) time.Time {
	return now.AddDate(0, -RecentWindowMonths, 0)
}

// NextThreshold returns the smallest multiple of interval that is >= mileage.
func NextThreshold(mileage, interval int) int {
	if mileage <= 0 {
		return 0
	}
	return (mileage + interval - 1) / interval * interval
}

func daysFrom(now time.Time, days int) *time.Time {
	t := now.AddDate(0, 0, days)
	return &t
}

func intPtr(n int) *int { return &n }

// Predict derives the maintenance candidates for a vehicle. Rules run in a fixed order
// so the result is stable for identical inputs. recent holds task types completed inside
// the recent window; excluded holds caller-suppressed types.
func Predict(v models.Vehicle, recent, excluded map[models.TaskType]bool, now time.Time) []models.Candidate {
	if v.Mileage == 0 {
		return []models.Candidate{{
			VehicleID: v.ID,
			TaskType:  models.TaskFirstOilChange,
			DueDate:   daysFrom(now, FirstOilChangeDays),
		}}
	}

	skip := func(t models.TaskType) bool { return recent[t] || excluded[t] }
	var out []models.Candidate

	// Emitted whenever not suppressed, even before the threshold is reached.
	if !skip(models.TaskOilChange) {
		out = append(out, models.Candidate{
			VehicleID:   v.ID,
			TaskType:    models.TaskOilChange,
			NextMileage: intPtr(NextThreshold(v.Mileage, OilChangeInterval)),
		})
	}

	if !skip(models.TaskTimingChainReplacement) {
		last := time.Unix(0, 0).UTC()
		if v.LastTimingChainReplacementDate != nil {
			last = *v.LastTimingChainReplacementDate
		}
		nextMileage := NextThreshold(v.Mileage, TimingChainIntervalMileage)
		nextDate := last.AddDate(0, 0, TimingChainIntervalDays)
		if v.Mileage >= nextMileage || !now.Before(nextDate) {
			out = append(out, models.Candidate{
				VehicleID:   v.ID,
				TaskType:    models.TaskTimingChainReplacement,
				DueDate:     &nextDate,
				NextMileage: intPtr(nextMileage),
			})
		}
	}

	if v.Mileage > WearServiceMileage && !skip(models.TaskBrakeChange) {
		out = append(out, models.Candidate{
			VehicleID: v.ID,
			TaskType:  models.TaskBrakeChange,
			DueDate:   daysFrom(now, BrakeChangeDays),
		})
	}

	if v.Mileage > WearServiceMileage && !skip(models.TaskTireReplacement) {
		out = append(out, models.Candidate{
			VehicleID: v.ID,
			TaskType:  models.TaskTireReplacement,
			DueDate:   daysFrom(now, TireReplacementDays),
		})
	}

	return out
}

var mileageIntervals = map[models.TaskType]int{
	models.TaskOilChange:              10000,
	models.TaskTimingChainReplacement: 120000,
	models.TaskBrakeChange:            30000,
	models.TaskTireReplacement:        50000,
}

// DefaultMileageInterval applies to task types without a dedicated interval.
const DefaultMileageInterval = 5000

// MileageInterval returns the service interval for a task type and whether it is a dedicated one.
func MileageInterval(t models.TaskType) (int, bool) {
	n, ok := mileageIntervals[t]
	if !ok {
		return DefaultMileageInterval, false
	}
	return n, true
}

// NextMileageAfter returns the next service mileage for a task type once the vehicle reads mileage.
func NextMileageAfter(t models.TaskType, mileage int) int {
	n, _ := MileageInterval(t)
	return mileage + n
}
