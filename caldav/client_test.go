package caldav

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(http.DefaultClient, "user", "pass"), srv
}

func TestDiscoverCalendarURLBaseIsCalendar(t *testing.T) {
	const body = `<?xml version="1.0"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/cal/</D:href>
    <D:propstat>
      <D:status>HTTP/1.1 200 OK</D:status>
      <D:prop><D:resourcetype><D:calendar/></D:resourcetype></D:prop>
    </D:propstat>
  </D:response>
</D:multistatus>`
	c, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PROPFIND" {
			t.Fatalf("expected PROPFIND, got %s", r.Method)
		}
		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(body))
	})

	got, err := c.DiscoverCalendarURL(context.Background(), srv.URL+"/cal/", "ignored")
	if err != nil {
		t.Fatalf("DiscoverCalendarURL: %v", err)
	}
	if got != srv.URL+"/cal/" {
		t.Errorf("expected base URL returned as-is, got %q", got)
	}
}

func TestDiscoverCalendarURLSearchesChildren(t *testing.T) {
	notCalendar := `<?xml version="1.0"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/home/</D:href>
    <D:propstat>
      <D:status>HTTP/1.1 200 OK</D:status>
      <D:prop><D:resourcetype><D:collection/></D:resourcetype></D:prop>
    </D:propstat>
  </D:response>
</D:multistatus>`
	children := `<?xml version="1.0"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/home/</D:href>
    <D:propstat>
      <D:status>HTTP/1.1 200 OK</D:status>
      <D:prop><D:resourcetype><D:collection/></D:resourcetype></D:prop>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/home/work/</D:href>
    <D:propstat>
      <D:status>HTTP/1.1 200 OK</D:status>
      <D:prop>
        <D:resourcetype><D:calendar/></D:resourcetype>
        <D:displayname>Work</D:displayname>
      </D:prop>
    </D:propstat>
  </D:response>
</D:multistatus>`

	var calls int
	c, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusMultiStatus)
		if r.Header.Get("Depth") == "0" {
			w.Write([]byte(notCalendar))
		} else {
			w.Write([]byte(children))
		}
	})

	got, err := c.DiscoverCalendarURL(context.Background(), srv.URL+"/home/", "Work")
	if err != nil {
		t.Fatalf("DiscoverCalendarURL: %v", err)
	}
	if got != "/home/work/" {
		t.Errorf("expected child href, got %q", got)
	}
	if calls != 2 {
		t.Errorf("expected Depth:0 then Depth:1 PROPFIND, got %d calls", calls)
	}
}

func TestDiscoverCalendarURLNotFound(t *testing.T) {
	c, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(`<D:multistatus xmlns:D="DAV:"></D:multistatus>`))
	})

	_, err := c.DiscoverCalendarURL(context.Background(), srv.URL+"/home/", "Work")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSlashToggleRetry(t *testing.T) {
	var calls []string
	c, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		if !strings.HasSuffix(r.URL.Path, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(`<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/cal/</D:href>
    <D:propstat>
      <D:status>HTTP/1.1 200 OK</D:status>
      <D:prop><D:resourcetype><D:calendar/></D:resourcetype></D:prop>
    </D:propstat>
  </D:response>
</D:multistatus>`))
	})

	_, err := c.DiscoverCalendarURL(context.Background(), srv.URL+"/cal", "ignored")
	if err != nil {
		t.Fatalf("DiscoverCalendarURL: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected exactly one retry (2 requests), got %d: %v", len(calls), calls)
	}
	if calls[0] != "/cal" || calls[1] != "/cal/" {
		t.Errorf("expected retry against slash-toggled path, got %v", calls)
	}
}

func TestListEventsReturnsVerbatimBodies(t *testing.T) {
	const raw = "BEGIN:VEVENT\r\nUID:u1\r\nnot an iCalendar property line\r\nEND:VEVENT\r\n"
	c, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "REPORT" {
			t.Fatalf("expected REPORT, got %s", r.Method)
		}
		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(`<D:multistatus xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:response>
    <D:href>/cal/u1.ics</D:href>
    <D:propstat>
      <D:status>HTTP/1.1 200 OK</D:status>
      <D:prop><C:calendar-data>` + raw + `</C:calendar-data></D:prop>
    </D:propstat>
  </D:response>
</D:multistatus>`))
	})

	events, err := c.ListEvents(context.Background(), srv.URL+"/cal/")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Href != "/cal/u1.ics" {
		t.Errorf("unexpected href: %q", events[0].Href)
	}
	if !strings.Contains(string(events[0].Body), "not an iCalendar property line") {
		t.Errorf("expected non-conforming body line to be returned verbatim, got %q", events[0].Body)
	}
}

func TestPutEventCreateConflict(t *testing.T) {
	c, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != "*" {
			t.Errorf("expected If-None-Match: * on create")
		}
		w.WriteHeader(http.StatusPreconditionFailed)
	})

	_, err := c.PutEvent(context.Background(), srv.URL+"/cal", "u1", []byte("BEGIN:VEVENT\r\nEND:VEVENT\r\n"), &PutOptions{Create: true})
	if err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestDeleteEventIsIdempotent(t *testing.T) {
	c, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if err := c.DeleteEvent(context.Background(), srv.URL+"/cal/missing.ics"); err != nil {
		t.Fatalf("expected idempotent success on 404, got %v", err)
	}
}

func TestUnauthorizedIsTerminal(t *testing.T) {
	var calls int
	c, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.FetchEvent(context.Background(), srv.URL+"/cal/u1.ics")
	if err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected no retry on 401, got %d calls", calls)
	}
}
