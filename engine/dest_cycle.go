package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RobbyV2/caldav-to-ics/caldav"
	"github.com/RobbyV2/caldav-to-ics/diff"
	"github.com/RobbyV2/caldav-to-ics/ical"
	"github.com/RobbyV2/caldav-to-ics/store"
)

// runDestinationCycle downloads a remote ICS feed, diffs it against the
// destination's CalDAV collection, and applies the resulting plan. A
// discovery, download, or listing failure aborts the whole cycle; failures
// applying individual operations are accumulated and reported without
// aborting the rest of the plan.
func (e *Engine) runDestinationCycle(ctx context.Context, id int64) {
	cycleID := uuid.New().String()
	started := time.Now()
	log := e.logger.With(zap.String("cycle_id", cycleID), zap.String("unit_kind", "destination"), zap.Int64("unit_id", id))
	log.Info("destination cycle starting")

	d, err := e.db.GetDestination(id)
	if err != nil {
		log.Error("destination cycle: load failed", zap.Error(err))
		return
	}

	remoteBody, err := fetchRemoteICS(ctx, e.client, d.RemoteICSURL)
	if err != nil {
		e.failDestination(log, id, started, fmt.Sprintf("fetching remote ICS failed: %v", err))
		return
	}
	remoteEvents, _, warnings := ical.Split(remoteBody)
	for _, w := range warnings {
		log.Warn("event skipped while parsing remote feed", zap.String("reason", w))
	}

	client := caldav.NewClient(e.client, d.Username, d.Password)
	calendarURL, err := client.DiscoverCalendarURL(ctx, d.CalDAVBaseURL, d.CalendarName)
	if err != nil {
		e.failDestination(log, id, started, fmt.Sprintf("discovery failed: %v", err))
		return
	}

	existing, err := client.ListEvents(ctx, calendarURL)
	if err != nil {
		e.failDestination(log, id, started, fmt.Sprintf("listing existing events failed: %v", err))
		return
	}

	var localEvents []diff.LocalEvent
	for _, r := range existing {
		evs, _, w := ical.Split(r.Body)
		for _, warn := range w {
			log.Warn("existing event skipped while parsing", zap.String("href", r.Href), zap.String("reason", warn))
		}
		for _, ev := range evs {
			localEvents = append(localEvents, diff.LocalEvent{UID: ev.UID, Href: r.Href, Body: ev.RawBody})
		}
	}

	plan := diff.Plan(diff.Input{
		RemoteEvents: remoteEvents,
		LocalEvents:  localEvents,
		Now:          time.Now(),
		SyncAll:      d.SyncAll,
		KeepLocal:    d.KeepLocal,
	})

	var created, updated, deleted int
	var failures []string
	for _, op := range plan {
		switch op.Kind {
		case diff.OpCreate:
			if _, err := client.PutEvent(ctx, calendarURL, op.UID, op.Body, &caldav.PutOptions{Create: true}); err != nil {
				failures = append(failures, fmt.Sprintf("create %s: %v", op.UID, err))
				continue
			}
			created++
		case diff.OpUpdate:
			if _, err := client.PutEvent(ctx, calendarURL, op.UID, op.Body, &caldav.PutOptions{Create: false}); err != nil {
				failures = append(failures, fmt.Sprintf("update %s: %v", op.UID, err))
				continue
			}
			updated++
		case diff.OpDelete:
			if err := client.DeleteEvent(ctx, op.Href); err != nil {
				failures = append(failures, fmt.Sprintf("delete %s: %v", op.UID, err))
				continue
			}
			deleted++
		case diff.OpSkip, diff.OpKeep:
			// no-op by design
		}
	}

	now := time.Now()
	if len(failures) > 0 {
		message := fmt.Sprintf("%d of %d operations failed: %s", len(failures), len(plan), strings.Join(failures, "; "))
		e.failDestination(log, id, started, message)
		return
	}

	if err := e.db.MarkDestinationSynced(id, now); err != nil {
		log.Error("destination cycle: failed to record success", zap.Error(err))
	}
	if err := e.db.AppendLog(store.LogEntry{
		UnitKind: "destination", UnitID: id, Status: "ok",
		Message:  fmt.Sprintf("created %d, updated %d, deleted %d", created, updated, deleted),
		Created:  created, Updated: updated, Deleted: deleted,
		Duration: time.Since(started),
	}); err != nil {
		log.Warn("failed to append sync log", zap.Error(err))
	}
	cyclesTotal.WithLabelValues("destination", "ok").Inc()
	cycleDuration.WithLabelValues("destination").Observe(time.Since(started).Seconds())
	log.Info("destination cycle finished",
		zap.Int("created", created), zap.Int("updated", updated), zap.Int("deleted", deleted),
		zap.Duration("duration", time.Since(started)))
}

func (e *Engine) failDestination(log *zap.Logger, id int64, started time.Time, message string) {
	log.Error("destination cycle failed", zap.String("error", message))
	if err := e.db.MarkDestinationError(id, message); err != nil {
		log.Error("failed to record destination error", zap.Error(err))
	}
	if err := e.db.AppendLog(store.LogEntry{UnitKind: "destination", UnitID: id, Status: "error", Message: message, Duration: time.Since(started)}); err != nil {
		log.Warn("failed to append sync log", zap.Error(err))
	}
	cyclesTotal.WithLabelValues("destination", "error").Inc()
	cycleDuration.WithLabelValues("destination").Observe(time.Since(started).Seconds())
}

// fetchRemoteICS downloads a remote ICS feed unauthenticated, tolerating
// either text/calendar or text/plain as a content type.
func fetchRemoteICS(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "text/calendar") && !strings.Contains(ct, "text/plain") {
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}
	return io.ReadAll(resp.Body)
}
