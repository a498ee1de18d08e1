package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fitcal/internal/dateutil"
	"fitcal/internal/ics"
	appLog "fitcal/internal/log"
	"fitcal/internal/model"
)

const eventsCacheTTL = 30 * time.Second

// plansResponse is the JSON response shape for /api/plans.
type plansResponse struct {
	Sessions      []sessionDTO `json:"sessions"`
	TruncatedUIDs []string     `json:"truncated_uids,omitempty"`
	RangeStart    int64        `json:"range_start"`
	RangeEnd      int64        `json:"range_end"`
	Timezone      string       `json:"timezone"`
}

// sessionDTO is a JSON-friendly view of a planned session.
type sessionDTO struct {
	SourceID    string `json:"source_id"`
	UID         string `json:"uid"`
	InstanceKey string `json:"instance_key"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	AllDay      bool   `json:"all_day"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	// Time is "15:04", empty for all-day sessions.
	Time string `json:"time,omitempty"`
}

func (s *Server) toSessionDTO(p model.PlannedSession) sessionDTO {
	dto := sessionDTO{
		SourceID:    p.SourceID,
		UID:         p.UID,
		InstanceKey: p.InstanceKey,
		Summary:     p.Summary,
		Description: p.Description,
		Location:    p.Location,
		AllDay:      p.AllDay,
		Start:       int64(p.Start),
		End:         int64(p.End),
	}
	if !p.AllDay {
		dto.Time = s.cal.TimeDisplay(p.Start)
	}
	return dto
}

// handlePlans returns planned sessions (training plans and subscribed
// classes) inside a window.
//
// GET /api/plans?from=<ms>&to=<ms>&days=7
//   - from: window start, truncated to its day (default today)
//   - to:   window end; when absent, from + days
func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	from, err := dateParam(r, "from", s.today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from = s.cal.TruncateDay(from)

	days := parseIntDefault(r.URL.Query().Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	to, err := dateParam(r, "to", s.cal.AddDays(from, days))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if to < from {
		writeError(w, http.StatusBadRequest, "to is before from")
		return
	}

	res, err := s.plannedSessions(r.Context(), from, to)
	if err != nil {
		appLog.Error("api plans: expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand plans")
		return
	}

	dtos := make([]sessionDTO, 0, len(res.Sessions))
	for _, p := range res.Sessions {
		dtos = append(dtos, s.toSessionDTO(p))
	}
	writeJSON(w, http.StatusOK, plansResponse{
		Sessions:      dtos,
		TruncatedUIDs: res.TruncatedEvents,
		RangeStart:    int64(from),
		RangeEnd:      int64(to),
		Timezone:      s.cal.Location().String(),
	})
}

// plannedSessions expands the cached planned events over [from, to).
func (s *Server) plannedSessions(ctx context.Context, from, to dateutil.Instant) (ics.ExpandResult, error) {
	return ics.ExpandSessions(s.plannedEvents(ctx), ics.ExpandConfig{
		RangeStart: s.cal.Time(from),
		RangeEnd:   s.cal.Time(to),
	})
}

// plannedCounts buckets planned sessions in [from, to) by their start day.
func (s *Server) plannedCounts(ctx context.Context, from, to dateutil.Instant) map[dateutil.Instant]int {
	counts := make(map[dateutil.Instant]int)
	res, err := s.plannedSessions(ctx, from, to)
	if err != nil {
		appLog.Error("planned counts failed", err)
		return counts
	}
	for _, p := range res.Sessions {
		counts[s.cal.TruncateDay(p.Start)]++
	}
	return counts
}

// plannedEvents returns the parsed plan and class events, reloading them
// when the cache is older than eventsCacheTTL.
func (s *Server) plannedEvents(ctx context.Context) []ics.ParsedEvent {
	now := s.now()

	s.eventsMu.RLock()
	ec := s.eventsCache
	s.eventsMu.RUnlock()
	if ec != nil && now.Sub(ec.updatedAt) < eventsCacheTTL {
		return ec.events
	}

	return s.storeEvents(s.loadEvents(ctx), now)
}

// Refresh reloads plans and class feeds regardless of the cache age and
// returns the number of parsed events. It is driven by the refresh
// schedule.
func (s *Server) Refresh(ctx context.Context) int {
	events := s.storeEvents(s.loadEvents(ctx), s.now())
	appLog.Info("planned events refreshed", "event_count", len(events))
	return len(events)
}

func (s *Server) storeEvents(events []ics.ParsedEvent, at time.Time) []ics.ParsedEvent {
	s.eventsMu.Lock()
	s.eventsCache = &eventsCache{events: events, updatedAt: at}
	s.eventsMu.Unlock()
	return events
}

func (s *Server) loadEvents(ctx context.Context) []ics.ParsedEvent {
	events := ics.PlanEvents(s.cfg.Plans, s.cal.Location())

	sources := make([]ics.Source, 0, len(s.cfg.Classes))
	for _, c := range s.cfg.Classes {
		if c.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: c.SourceID(), URL: c.URL})
	}
	if len(sources) == 0 {
		return events
	}

	results, errs := s.fetcher.FetchAll(ctx, sources)
	if len(errs) > 0 {
		appLog.Error("one or more class feeds failed", errors.Join(errs...), "error_count", len(errs))
	}
	for _, res := range results {
		parsed, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			continue
		}
		events = append(events, parsed...)
	}
	return events
}
