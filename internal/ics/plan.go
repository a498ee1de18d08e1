package ics

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"fitcal/internal/config"
	appLog "fitcal/internal/log"
)

// PlanSourcePrefix prefixes the Source ID of configured training plans so
// they can be told apart from subscribed class feeds.
const PlanSourcePrefix = "plan:"

// PlanEvents converts configured training plans into ParsedEvents ready for
// ExpandSessions. Start and exdates are wall-clock times in loc. Plans that
// cannot be read are logged and skipped.
func PlanEvents(plans []config.PlanConfig, loc *time.Location) []ParsedEvent {
	if loc == nil {
		loc = time.Local
	}

	events := make([]ParsedEvent, 0, len(plans))
	for _, p := range plans {
		ev, err := planEvent(p, loc)
		if err != nil {
			appLog.Warn("plan skipped", "id", p.ID, "reason", err.Error())
			continue
		}
		events = append(events, ev)
	}
	return events
}

func planEvent(p config.PlanConfig, loc *time.Location) (ParsedEvent, error) {
	start, err := time.ParseInLocation(config.PlanStartLayout, strings.TrimSpace(p.Start), loc)
	if err != nil {
		return ParsedEvent{}, fmt.Errorf("start %q: %w", p.Start, err)
	}

	rule := strings.TrimPrefix(strings.TrimSpace(p.RRule), "RRULE:")
	if rule != "" {
		if _, err := rrule.StrToRRule(rule); err != nil {
			return ParsedEvent{}, fmt.Errorf("rrule %q: %w", p.RRule, err)
		}
	}

	minutes := p.DurationMinutes
	if minutes <= 0 {
		minutes = 60
	}

	ev := ParsedEvent{
		Source:   Source{ID: PlanSourcePrefix + p.ID},
		UID:      p.ID + "@plans.fitcal",
		Summary:  p.Name,
		Location: p.Location,
		Start:    start,
		End:      start.Add(time.Duration(minutes) * time.Minute),
		RawRRule: rule,
	}
	if ev.Summary == "" {
		ev.Summary = p.ID
	}

	for _, raw := range p.ExDates {
		ex, err := time.ParseInLocation(config.PlanStartLayout, strings.TrimSpace(raw), loc)
		if err != nil {
			return ParsedEvent{}, fmt.Errorf("exdate %q: %w", raw, err)
		}
		ev.ExDates = append(ev.ExDates, ex)
	}

	return ev, nil
}
