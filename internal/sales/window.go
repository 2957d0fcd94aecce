package sales

import (
	"fmt"
	"time"

	"github.com/nospicy/possync/pkg/config"
)

// DateRange is the receipt creation window requested from the POS API.
type DateRange struct {
	From time.Time
	To   time.Time
}

// WindowPolicy resolves the receipt window for a run.
type WindowPolicy struct {
	kind   string
	months int
	start  time.Time
	loc    *time.Location
}

// NewWindowPolicy builds a policy from its configured kind.
func NewWindowPolicy(kind string, months int, fixedStart time.Time, loc *time.Location) (WindowPolicy, error) {
	if loc == nil {
		loc = time.UTC
	}
	p := WindowPolicy{kind: kind, months: months, loc: loc}
	switch kind {
	case config.WindowTrailingMonths:
		if months < 1 {
			return WindowPolicy{}, fmt.Errorf("trailing window needs at least one month, got %d", months)
		}
	case config.WindowFixedStart:
		if fixedStart.IsZero() {
			return WindowPolicy{}, fmt.Errorf("fixed start window needs a start date")
		}
		p.start = time.Date(fixedStart.Year(), fixedStart.Month(), fixedStart.Day(), 0, 0, 0, 0, loc)
	case config.WindowYearToDate:
	default:
		return WindowPolicy{}, fmt.Errorf("unknown window policy %q", kind)
	}
	return p, nil
}

// PolicyFromConfig reads the window settings of cfg.
func PolicyFromConfig(cfg config.SyncConfig, loc *time.Location) (WindowPolicy, error) {
	var start time.Time
	if cfg.WindowPolicy == config.WindowFixedStart {
		parsed, err := cfg.FixedStartDate()
		if err != nil {
			return WindowPolicy{}, err
		}
		start = parsed
	}
	return NewWindowPolicy(cfg.WindowPolicy, cfg.TrailingMonths, start, loc)
}

func (p WindowPolicy) Kind() string {
	return p.kind
}

// Resolve returns the window ending at now.
func (p WindowPolicy) Resolve(now time.Time) DateRange {
	loc := p.loc
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	switch p.kind {
	case config.WindowFixedStart:
		return DateRange{From: p.start, To: local}
	case config.WindowYearToDate:
		return DateRange{From: time.Date(local.Year(), time.January, 1, 0, 0, 0, 0, loc), To: local}
	default:
		return DateRange{From: local.AddDate(0, -p.months, 0), To: local}
	}
}
