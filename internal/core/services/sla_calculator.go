package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/ticketwell/helpdesk-core/internal/core/domain"
	"github.com/ticketwell/helpdesk-core/internal/core/ports"
)

// maxCalendarDays bounds the business-hours walk to roughly two years. A
// calendar with no usable segments would otherwise loop forever.
const maxCalendarDays = 730

// CalculateDeadlines computes first-response and resolution due instants for
// a policy, an optional matching target, and a reference instant. Nil minute
// budgets produce nil deadlines. All outputs are UTC.
func (s *SlaService) CalculateDeadlines(policy *domain.SlaPolicy, target *domain.SlaPolicyTarget, reference time.Time) ports.Deadlines {
	firstResponse := policy.DefaultFirstResponseMinutes
	resolution := policy.DefaultResolutionMinutes
	useBusinessHours := policy.EnforceBusinessHours
	if target != nil {
		if target.FirstResponseMinutes != nil {
			firstResponse = target.FirstResponseMinutes
		}
		if target.ResolutionMinutes != nil {
			resolution = target.ResolutionMinutes
		}
		if target.UseBusinessHours != nil {
			useBusinessHours = *target.UseBusinessHours
		}
	}

	var deadlines ports.Deadlines
	if firstResponse != nil {
		due := s.addMinutes(policy, *firstResponse, reference, useBusinessHours)
		deadlines.FirstResponseDueAt = &due
	}
	if resolution != nil {
		due := s.addMinutes(policy, *resolution, reference, useBusinessHours)
		deadlines.ResolutionDueAt = &due
	}
	return deadlines
}

// addMinutes adds a minute budget to the reference instant, walking the
// policy's business-hours calendar when enforcement is on.
func (s *SlaService) addMinutes(policy *domain.SlaPolicy, minutes int, reference time.Time, useBusinessHours bool) time.Time {
	if minutes <= 0 {
		return reference.UTC()
	}

	loc := policy.Location()
	if !useBusinessHours || len(policy.BusinessHours) == 0 {
		return reference.In(loc).Add(time.Duration(minutes) * time.Minute).UTC()
	}

	return s.addBusinessMinutes(policy, minutes, reference.In(loc), loc)
}

// addBusinessMinutes walks forward day by day, consuming the minute budget
// only inside the policy's business-hour segments and skipping holiday
// dates entirely.
func (s *SlaService) addBusinessMinutes(policy *domain.SlaPolicy, minutes int, cursor time.Time, loc *time.Location) time.Time {
	remaining := minutes

	for day := 0; day < maxCalendarDays; day++ {
		if !policy.IsHoliday(cursor) {
			for _, segment := range policy.SegmentsFor(cursor.Weekday()) {
				start, end, ok := segmentBounds(segment, cursor, loc)
				if !ok {
					continue
				}
				if cursor.Before(start) {
					cursor = start
				}
				if !cursor.Before(end) {
					continue
				}
				available := int(end.Sub(cursor) / time.Minute)
				if available >= remaining {
					return cursor.Add(time.Duration(remaining) * time.Minute).UTC()
				}
				remaining -= available
				cursor = end
			}
		}
		cursor = startOfNextDay(cursor, loc)
	}

	// The calendar yielded no usable minutes across the bound. Degrade to
	// plain arithmetic instead of hanging.
	s.logger.Warn("business-hours walk exhausted calendar bound, falling back to calendar arithmetic",
		"policy_id", policy.ID,
		"remaining_minutes", remaining,
	)
	return cursor.Add(time.Duration(remaining) * time.Minute).UTC()
}

// segmentBounds materializes a segment's HH:MM bounds on the cursor's date.
func segmentBounds(segment domain.BusinessHoursSegment, cursor time.Time, loc *time.Location) (time.Time, time.Time, bool) {
	startHour, startMin, ok := parseClock(segment.Start)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	endHour, endMin, ok := parseClock(segment.End)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	year, month, day := cursor.Date()
	start := time.Date(year, month, day, startHour, startMin, 0, 0, loc)
	end := time.Date(year, month, day, endHour, endMin, 0, 0, loc)
	if !end.After(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func startOfNextDay(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc).AddDate(0, 0, 1)
}

// parseClock parses an "HH:MM" wall-clock string.
func parseClock(value string) (int, int, bool) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
