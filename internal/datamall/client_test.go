package datamall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", 5*time.Second, slog.New(slog.DiscardHandler))
}

func stopsPage(n int, offset int) string {
	var b strings.Builder
	b.WriteString(`{"value": [`)
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"BusStopCode": "%05d"}`, offset+i)
	}
	b.WriteString(`]}`)
	return b.String()
}

func TestFetchBusStops_SinglePage(t *testing.T) {
	var requests []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RawQuery)
		if got := r.Header.Get("AccountKey"); got != "test-key" {
			t.Errorf("AccountKey = %q; want test-key", got)
		}
		fmt.Fprint(w, stopsPage(2, 0))
	})

	docs, err := client.FetchBusStops(context.Background())
	if err != nil {
		t.Fatalf("FetchBusStops: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("docs = %d, want 1", len(docs))
	}
	if got := len(docs[0].Entries()); got != 2 {
		t.Errorf("entries = %d, want 2", got)
	}
	if len(requests) != 1 || requests[0] != "$skip=0" {
		t.Errorf("requests = %v; want one with $skip=0", requests)
	}
}

func TestFetchBusStops_Paginates(t *testing.T) {
	var skips []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		skip := r.URL.Query().Get("$skip")
		skips = append(skips, skip)
		if skip == "0" {
			fmt.Fprint(w, stopsPage(500, 0))
			return
		}
		fmt.Fprint(w, stopsPage(3, 500))
	})

	docs, err := client.FetchBusStops(context.Background())
	if err != nil {
		t.Fatalf("FetchBusStops: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("docs = %d, want 2", len(docs))
	}
	if len(skips) != 2 || skips[0] != "0" || skips[1] != "500" {
		t.Errorf("skips = %v; want [0 500]", skips)
	}
	if got := len(docs[1].Entries()); got != 3 {
		t.Errorf("last page entries = %d, want 3", got)
	}
}

func TestFetchBusStops_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.FetchBusStops(context.Background())
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("error = %v, want ErrFetchFailed", err)
	}
}

func TestFetchArrivals(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("BusStopCode"); got != "01012" {
			t.Errorf("BusStopCode = %q; want 01012", got)
		}
		fmt.Fprint(w, `{
			"BusStopCode": "01012",
			"Services": [{
				"ServiceNo": "12",
				"Operator": "GAS",
				"NextBus":  {"EstimatedArrival": "2026-09-01T12:00:00+08:00", "Load": "SEA"},
				"NextBus2": {"EstimatedArrival": "not-a-time"},
				"NextBus3": {"EstimatedArrival": ""}
			}]
		}`)
	})

	got, err := client.FetchArrivals(context.Background(), "01012")
	if err != nil {
		t.Fatalf("FetchArrivals: %v", err)
	}
	if got.BusStopCode != "01012" || len(got.Services) != 1 {
		t.Fatalf("snapshot = %+v", got)
	}
	svc := got.Services[0]
	if svc.ServiceNo != "12" || svc.Operator != "GAS" {
		t.Errorf("service = %+v", svc)
	}
	// The unparseable and empty arrival times are skipped, not fatal.
	if len(svc.NextBuses) != 1 {
		t.Fatalf("next buses = %d, want 1", len(svc.NextBuses))
	}
	if svc.NextBuses[0].Load != "SEA" {
		t.Errorf("load = %q; want SEA", svc.NextBuses[0].Load)
	}
	want := time.Date(2026, 9, 1, 12, 0, 0, 0, time.FixedZone("", 8*3600))
	if !svc.NextBuses[0].EstimatedArrival.Equal(want) {
		t.Errorf("eta = %v; want %v", svc.NextBuses[0].EstimatedArrival, want)
	}
}

func TestFetchArrivals_EmptyCode(t *testing.T) {
	client := NewClient("http://unused", "", time.Second, slog.New(slog.DiscardHandler))
	if _, err := client.FetchArrivals(context.Background(), ""); err == nil {
		t.Fatal("FetchArrivals with empty code: want error")
	}
}

func TestEntries_Malformed(t *testing.T) {
	doc := BusStopsDocument{Value: []byte(`"oops"`)}
	if got := doc.Entries(); got != nil {
		t.Errorf("Entries on malformed value = %v, want nil", got)
	}
	if got := (BusStopsDocument{}).Entries(); got != nil {
		t.Errorf("Entries on empty value = %v, want nil", got)
	}
}
