// Command caldavcheck is a manual smoke-test harness against a single
// CalDAV endpoint: discover the calendar collection, list its events, fetch
// one, and report timings. It exists for operators standing up a new source
// or destination who want to know whether the server's PROPFIND/REPORT
// dialect is going to behave before wiring it into a scheduled unit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/RobbyV2/caldav-to-ics/caldav"
)

func main() {
	log.SetFlags(log.Ltime)

	base := flag.String("base", "", "CalDAV base URL")
	calendarName := flag.String("calendar", "", "calendar displayname to select if base is not itself a calendar")
	username := flag.String("user", os.Getenv("CALDAVCHECK_USERNAME"), "username (defaults to CALDAVCHECK_USERNAME)")
	password := flag.String("pass", os.Getenv("CALDAVCHECK_PASSWORD"), "password (defaults to CALDAVCHECK_PASSWORD)")
	timeout := flag.Duration("timeout", 30*time.Second, "HTTP timeout")
	flag.Parse()

	if *base == "" {
		log.Fatal("-base is required")
	}

	hc := &http.Client{Timeout: *timeout}
	client := caldav.NewClient(hc, *username, *password)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout*4)
	defer cancel()

	fmt.Printf("discovering calendar under %s\n", *base)
	start := time.Now()
	calendarURL, err := client.DiscoverCalendarURL(ctx, *base, *calendarName)
	if err != nil {
		log.Fatalf("discover: %v (%.2fs)", err, time.Since(start).Seconds())
	}
	fmt.Printf("  calendar url: %s (%.2fs)\n", calendarURL, time.Since(start).Seconds())

	start = time.Now()
	events, err := client.ListEvents(ctx, calendarURL)
	if err != nil {
		log.Fatalf("list_events: %v (%.2fs)", err, time.Since(start).Seconds())
	}
	fmt.Printf("  %d event(s) (%.2fs)\n", len(events), time.Since(start).Seconds())

	if len(events) == 0 {
		return
	}

	first := events[0]
	start = time.Now()
	body, err := client.FetchEvent(ctx, first.Href)
	if err != nil {
		log.Fatalf("fetch_event(%s): %v (%.2fs)", first.Href, err, time.Since(start).Seconds())
	}
	fmt.Printf("  fetched %s: %d bytes (%.2fs)\n", first.Href, len(body), time.Since(start).Seconds())
}
