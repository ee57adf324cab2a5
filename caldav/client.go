// Package caldav implements the thin WebDAV/CalDAV dialect this service
// needs: collection discovery, listing event hrefs, fetching and uploading
// single events, and deleting them. It is built directly on raw HTTP verbs
// rather than a validating CalDAV library, because the multistatus bodies
// and event payloads it has to accept are frequently non-conforming.
package caldav

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/emersion/go-webdav"
)

const (
	icsContentType = "text/calendar; charset=utf-8"
	xmlContentType = "text/xml; charset=utf-8"
)

// EventResource is one entry returned by ListEvents: the href the event
// lives at, and its raw body exactly as the server sent it.
type EventResource struct {
	Href string
	Body []byte
}

// Client is a CalDAV client scoped to a single remote server and a single
// set of credentials. Its methods take full collection/resource URLs rather
// than binding one at construction time, since a single sync cycle touches
// both a calendar collection URL and individual event hrefs beneath it.
type Client struct {
	hc webdav.HTTPClient
}

// NewClient wraps hc with HTTP Basic authentication for username/password.
// hc is typically an *http.Client with a bounded Timeout; this package never
// sets one itself.
func NewClient(hc webdav.HTTPClient, username, password string) *Client {
	return &Client{hc: webdav.HTTPClientWithBasicAuth(hc, username, password)}
}

// do issues a single HTTP request with method/url/body/headers, and on a
// 404 or 405 response retries exactly once against the URL with its
// trailing slash toggled. It does not interpret status codes beyond that;
// callers classify the final response themselves.
func (c *Client) do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, []byte, error) {
	resp, respBody, err := c.doOnce(ctx, method, url, body, headers)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusMethodNotAllowed {
		altResp, altBody, altErr := c.doOnce(ctx, method, toggleSlash(url), body, headers)
		if altErr == nil {
			return altResp, altBody, nil
		}
	}
	return resp, respBody, nil
}

func (c *Client) doOnce(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return resp, respBody, nil
}

// toggleSlash adds a trailing slash if absent, removes it if present.
func toggleSlash(url string) string {
	if strings.HasSuffix(url, "/") {
		return strings.TrimSuffix(url, "/")
	}
	return url + "/"
}

// classify maps a terminal (post slash-toggle) response to the package's
// error taxonomy. A nil error means the status was 2xx.
func classify(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode/100 == 2:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusPreconditionFailed, resp.StatusCode == http.StatusConflict:
		return ErrConflict
	default:
		return &UpstreamError{Status: resp.StatusCode, Snippet: snippet(body)}
	}
}

const propfindBody = `<?xml version="1.0" encoding="utf-8" ?>
<D:propfind xmlns:D="DAV:">
  <D:prop>
    <D:resourcetype/>
    <D:displayname/>
  </D:prop>
</D:propfind>
`

// DiscoverCalendarURL resolves base to a calendar collection URL. If base
// itself reports a calendar resourcetype, it is returned as-is. Otherwise
// its immediate children (Depth: 1) are searched for one whose displayname
// equals calendarName. Failure to find a match returns ErrNotFound.
func (c *Client) DiscoverCalendarURL(ctx context.Context, base, calendarName string) (string, error) {
	headers := map[string]string{"Content-Type": xmlContentType, "Depth": "0"}
	resp, body, err := c.do(ctx, "PROPFIND", base, []byte(propfindBody), headers)
	if err != nil {
		return "", err
	}
	if err := classify(resp, body); err != nil && err != ErrNotFound {
		return "", err
	}
	if resp.StatusCode/100 == 2 {
		ms, err := parseMultistatus(body)
		if err == nil && len(ms.Responses) > 0 {
			if prop, ok := ms.Responses[0].okProp(); ok && prop.ResourceType.isCalendar() {
				return base, nil
			}
		}
	}

	headers["Depth"] = "1"
	resp, body, err = c.do(ctx, "PROPFIND", base, []byte(propfindBody), headers)
	if err != nil {
		return "", err
	}
	if err := classify(resp, body); err != nil {
		return "", err
	}
	ms, err := parseMultistatus(body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedXml, err)
	}
	for _, r := range ms.Responses {
		prop, ok := r.okProp()
		if !ok || !prop.ResourceType.isCalendar() {
			continue
		}
		if prop.DisplayName == calendarName {
			return r.Href, nil
		}
	}
	return "", ErrNotFound
}

const calendarQueryBody = `<?xml version="1.0" encoding="utf-8" ?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop>
    <D:getetag/>
    <C:calendar-data/>
  </D:prop>
  <C:filter>
    <C:comp-filter name="VCALENDAR">
      <C:comp-filter name="VEVENT"/>
    </C:comp-filter>
  </C:filter>
</C:calendar-query>
`

// ListEvents issues a calendar-query REPORT against calendarURL selecting
// every VEVENT, and returns each response's href paired with its
// calendar-data text taken verbatim. No iCalendar parsing happens here.
func (c *Client) ListEvents(ctx context.Context, calendarURL string) ([]EventResource, error) {
	headers := map[string]string{"Content-Type": xmlContentType, "Depth": "1"}
	resp, body, err := c.do(ctx, "REPORT", calendarURL, []byte(calendarQueryBody), headers)
	if err != nil {
		return nil, err
	}
	if err := classify(resp, body); err != nil {
		return nil, err
	}

	ms, err := parseMultistatus(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedXml, err)
	}

	var out []EventResource
	for _, r := range ms.Responses {
		prop, ok := r.okProp()
		if !ok || prop.CalendarData == "" {
			continue
		}
		out = append(out, EventResource{Href: r.Href, Body: []byte(prop.CalendarData)})
	}
	return out, nil
}

// FetchEvent GETs a single event body by href.
func (c *Client) FetchEvent(ctx context.Context, href string) ([]byte, error) {
	resp, body, err := c.do(ctx, http.MethodGet, href, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := classify(resp, body); err != nil {
		return nil, err
	}
	return body, nil
}

// PutEvent uploads body to {calendarURL}/{uid}.ics. When opts.Create is set,
// the request carries If-None-Match: * so an existing resource at that href
// is never silently overwritten; this surfaces as ErrConflict. It returns
// the href the event was stored at.
func (c *Client) PutEvent(ctx context.Context, calendarURL, uid string, body []byte, opts *PutOptions) (string, error) {
	href := strings.TrimSuffix(calendarURL, "/") + "/" + uid + ".ics"

	headers := map[string]string{"Content-Type": icsContentType}
	if opts != nil && opts.Create {
		headers["If-None-Match"] = "*"
	}

	resp, respBody, err := c.do(ctx, http.MethodPut, href, body, headers)
	if err != nil {
		return "", err
	}
	if err := classify(resp, respBody); err != nil {
		return "", err
	}
	return href, nil
}

// DeleteEvent deletes the resource at href. A 404 is treated as success:
// deletion is idempotent.
func (c *Client) DeleteEvent(ctx context.Context, href string) error {
	resp, body, err := c.do(ctx, http.MethodDelete, href, nil, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return classify(resp, body)
}
