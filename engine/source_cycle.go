package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RobbyV2/caldav-to-ics/caldav"
	"github.com/RobbyV2/caldav-to-ics/ical"
	"github.com/RobbyV2/caldav-to-ics/publish"
	"github.com/RobbyV2/caldav-to-ics/store"
)

// runSourceCycle pulls every event out of a source's CalDAV collection,
// concatenates them into one VCALENDAR, and atomically publishes it. A
// discovery or listing failure aborts the cycle; the previously published
// body is left untouched.
func (e *Engine) runSourceCycle(ctx context.Context, id int64) {
	cycleID := uuid.New().String()
	started := time.Now()
	log := e.logger.With(zap.String("cycle_id", cycleID), zap.String("unit_kind", "source"), zap.Int64("unit_id", id))
	log.Info("source cycle starting")

	s, err := e.db.GetSource(id)
	if err != nil {
		log.Error("source cycle: load failed", zap.Error(err))
		return
	}

	client := caldav.NewClient(e.client, s.Username, s.Password)

	calendarURL, err := client.DiscoverCalendarURL(ctx, s.CalDAVBaseURL, "")
	if err != nil {
		e.failSource(log, id, started, fmt.Sprintf("discovery failed: %v", err))
		return
	}

	resources, err := client.ListEvents(ctx, calendarURL)
	if err != nil {
		e.failSource(log, id, started, fmt.Sprintf("listing events failed: %v", err))
		return
	}

	var events []ical.Event
	for _, r := range resources {
		evs, _, warnings := ical.Split(r.Body)
		for _, w := range warnings {
			log.Warn("event skipped while parsing source resource", zap.String("href", r.Href), zap.String("reason", w))
		}
		events = append(events, evs...)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].UID < events[j].UID })

	body := ical.BuildCalendar(events)
	now := time.Now()

	if err := e.db.MarkSourceSynced(id, body, "text/calendar; charset=utf-8", now); err != nil {
		log.Error("source cycle: failed to persist cached body", zap.Error(err))
		return
	}
	e.publisher.Set(s.ICSPath, publish.Body{
		ContentType: "text/calendar; charset=utf-8",
		Data:        body,
		LastMod:     now,
	})

	if err := e.db.AppendLog(store.LogEntry{UnitKind: "source", UnitID: id, Status: "ok", Message: fmt.Sprintf("published %d events", len(events)), Duration: time.Since(started)}); err != nil {
		log.Warn("failed to append sync log", zap.Error(err))
	}
	cyclesTotal.WithLabelValues("source", "ok").Inc()
	cycleDuration.WithLabelValues("source").Observe(time.Since(started).Seconds())
	log.Info("source cycle finished", zap.Int("event_count", len(events)), zap.Duration("duration", time.Since(started)))
}

func (e *Engine) failSource(log *zap.Logger, id int64, started time.Time, message string) {
	log.Error("source cycle failed", zap.String("error", message))
	if err := e.db.MarkSourceError(id, message); err != nil {
		log.Error("failed to record source error", zap.Error(err))
	}
	if err := e.db.AppendLog(store.LogEntry{UnitKind: "source", UnitID: id, Status: "error", Message: message, Duration: time.Since(started)}); err != nil {
		log.Warn("failed to append sync log", zap.Error(err))
	}
	cyclesTotal.WithLabelValues("source", "error").Inc()
	cycleDuration.WithLabelValues("source").Observe(time.Since(started).Seconds())
}
