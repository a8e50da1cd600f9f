package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerInfo describes the upcoming runs of a cron expression.
type TriggerInfo struct {
	Expression string
	Next       time.Time
	Following  time.Time

	TimeUntilNext time.Duration
	Interval      time.Duration
}

// GetTriggerInfo reports when cronExpr fires next relative to refTime.
// Expressions use the standard five-field layout plus descriptors
// (@hourly, @every 10m), the same syntax cron.New accepts, so the info
// always matches what the engine will actually do.
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom |
		cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	next := schedule.Next(refTime)
	following := schedule.Next(next)

	return &TriggerInfo{
		Expression:    cronExpr,
		Next:          next,
		Following:     following,
		TimeUntilNext: next.Sub(refTime),
		Interval:      following.Sub(next),
	}, nil
}
