package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// HolidayDateLayout is the wire format for holiday exception dates.
const HolidayDateLayout = "2006-01-02"

// BusinessHoursSegment is a weekly recurring window during which SLA minutes
// are consumed. Start and End are wall-clock times in the policy's timezone,
// formatted "HH:MM".
type BusinessHoursSegment struct {
	Day   time.Weekday `json:"day"`
	Start string       `json:"start"`
	End   string       `json:"end"`
}

// SlaPolicy configures response/resolution minute budgets and the business
// hours calendar they are measured against. A nil BrandID means the policy
// applies tenant-wide.
type SlaPolicy struct {
	ID       int64
	TenantID uuid.UUID
	BrandID  *uuid.UUID
	Name     string
	Slug     string

	Timezone          string
	BusinessHours     []BusinessHoursSegment
	HolidayExceptions []string

	DefaultFirstResponseMinutes *int
	DefaultResolutionMinutes    *int
	EnforceBusinessHours        bool

	Targets []SlaPolicyTarget

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SlaPolicyTarget overrides a policy's minute budgets for one
// (channel, priority) pair. Nil fields fall back to the policy defaults.
type SlaPolicyTarget struct {
	ID       int64
	PolicyID int64

	Channel  string
	Priority string

	FirstResponseMinutes *int
	ResolutionMinutes    *int
	UseBusinessHours     *bool
}

// Location resolves the policy timezone, falling back to UTC when the name is
// empty or unknown.
func (p *SlaPolicy) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TargetFor returns the target exactly matching (channel, priority), or nil
// when the policy defaults apply.
func (p *SlaPolicy) TargetFor(channel, priority string) *SlaPolicyTarget {
	for i := range p.Targets {
		if p.Targets[i].Channel == channel && p.Targets[i].Priority == priority {
			return &p.Targets[i]
		}
	}
	return nil
}

// SegmentsFor returns the segments configured for the given weekday in
// ascending start-time order.
func (p *SlaPolicy) SegmentsFor(day time.Weekday) []BusinessHoursSegment {
	var segments []BusinessHoursSegment
	for _, seg := range p.BusinessHours {
		if seg.Day == day {
			segments = append(segments, seg)
		}
	}
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	return segments
}

// IsHoliday reports whether the given instant falls on a holiday exception
// date in the policy's timezone.
func (p *SlaPolicy) IsHoliday(t time.Time) bool {
	date := t.Format(HolidayDateLayout)
	for _, h := range p.HolidayExceptions {
		if h == date {
			return true
		}
	}
	return false
}
