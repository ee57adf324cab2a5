// Package diff computes the set of create/update/keep/delete operations
// needed to reconcile a remote ICS feed into a CalDAV collection. It is pure
// in-memory logic: no HTTP, no iCalendar parsing — callers hand it already
// extracted events.
package diff

import (
	"sort"
	"time"

	"github.com/RobbyV2/caldav-to-ics/ical"
)

// OpKind identifies what a Plan entry asks the caller to do.
type OpKind int

const (
	OpCreate OpKind = iota
	OpUpdate
	OpSkip
	OpKeep
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpSkip:
		return "skip"
	case OpKeep:
		return "keep"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Op is a single planned action against a destination CalDAV collection.
type Op struct {
	Kind OpKind
	UID  string
	Body []byte // for OpCreate/OpUpdate
	Href string // for OpDelete, the existing resource to remove
}

// LocalEvent pairs a remote-derived event's href with its raw body, as
// returned by the CalDAV client's ListEvents.
type LocalEvent struct {
	UID  string
	Href string
	Body []byte
}

// Input bundles everything Plan needs for one destination sync cycle.
type Input struct {
	RemoteEvents []ical.Event
	LocalEvents  []LocalEvent
	Now          time.Time
	SyncAll      bool
	KeepLocal    bool
}

// Plan computes the ordered set of operations for one destination cycle.
// Creates and updates are always ordered before deletes, so that a
// transient empty state is never observable to subscribers of the
// destination collection; within each kind, operations are ordered by UID
// ascending for deterministic, idempotent re-runs.
func Plan(in Input) []Op {
	remote := filterTimeWindow(in.RemoteEvents, in.Now, in.SyncAll)

	remoteByUID := make(map[string]ical.Event, len(remote))
	for _, ev := range remote {
		remoteByUID[ev.UID] = ev
	}
	localByUID := make(map[string]LocalEvent, len(in.LocalEvents))
	for _, le := range in.LocalEvents {
		localByUID[le.UID] = le
	}

	var creates, updates, skips, keeps, deletes []Op

	for uid, ev := range remoteByUID {
		local, exists := localByUID[uid]
		switch {
		case !exists:
			creates = append(creates, Op{Kind: OpCreate, UID: uid, Body: ev.RawBody})
		case ical.Equal(ev.RawBody, local.Body):
			skips = append(skips, Op{Kind: OpSkip, UID: uid})
		default:
			updates = append(updates, Op{Kind: OpUpdate, UID: uid, Body: ev.RawBody})
		}
	}

	for uid, local := range localByUID {
		if _, exists := remoteByUID[uid]; exists {
			continue
		}
		if in.KeepLocal {
			keeps = append(keeps, Op{Kind: OpKeep, UID: uid})
		} else {
			deletes = append(deletes, Op{Kind: OpDelete, UID: uid, Href: local.Href})
		}
	}

	sortByUID(creates)
	sortByUID(updates)
	sortByUID(skips)
	sortByUID(keeps)
	sortByUID(deletes)

	ops := make([]Op, 0, len(creates)+len(updates)+len(skips)+len(keeps)+len(deletes))
	ops = append(ops, creates...)
	ops = append(ops, updates...)
	ops = append(ops, skips...)
	ops = append(ops, keeps...)
	ops = append(ops, deletes...)
	return ops
}

func sortByUID(ops []Op) {
	sort.Slice(ops, func(i, j int) bool { return ops[i].UID < ops[j].UID })
}

// filterTimeWindow drops events whose dtstart is strictly before now, unless
// sync_all is set. An event with no usable dtstart is always kept — it
// cannot be proven past.
func filterTimeWindow(events []ical.Event, now time.Time, syncAll bool) []ical.Event {
	if syncAll {
		return events
	}
	out := make([]ical.Event, 0, len(events))
	for _, ev := range events {
		if ev.DTStart.Before(now) {
			continue
		}
		out = append(out, ev)
	}
	return out
}
