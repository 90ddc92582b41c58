// Package datamall is the HTTP client for the upstream transit API. It fetches
// the bus-stop catalog (paginated) and live arrivals; interpreting catalog
// records is left to the caller.
package datamall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	arrivaltypes "github.com/minggliangg/my-bus-assistant-sub001/internal/modules/arrivals/types"
)

// ErrFetchFailed marks remote collaborator errors. Callers treat it as
// recoverable; previously cached data stays authoritative.
var ErrFetchFailed = errors.New("fetch failed")

// pageSize is the fixed page size of the catalog endpoint; a shorter page
// means the last one.
const pageSize = 500

// maxPages bounds catalog pagination against a misbehaving upstream.
const maxPages = 50

// BusStopsDocument is one raw catalog page, shaped {"value": [...]}.
// Value stays raw so a malformed page degrades to zero records instead of
// failing the whole refresh.
type BusStopsDocument struct {
	Value json.RawMessage `json:"value"`
}

// Entries splits the value array into per-record raw messages. A missing or
// non-array value yields nil.
func (d BusStopsDocument) Entries() []json.RawMessage {
	if len(d.Value) == 0 {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(d.Value, &entries); err != nil {
		return nil
	}
	return entries
}

type Client struct {
	baseURL    string
	accountKey string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, accountKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		accountKey: accountKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchBusStops pages through the catalog endpoint and returns the raw
// documents in order.
func (c *Client) FetchBusStops(ctx context.Context) ([]BusStopsDocument, error) {
	var docs []BusStopsDocument
	for page := 0; page < maxPages; page++ {
		doc, err := c.fetchBusStopsPage(ctx, page*pageSize)
		if err != nil {
			return nil, err
		}
		n := len(doc.Entries())
		if n > 0 {
			docs = append(docs, doc)
		}
		c.logger.Debug("fetched catalog page", "skip", page*pageSize, "records", n)
		if n < pageSize {
			break
		}
	}
	return docs, nil
}

func (c *Client) fetchBusStopsPage(ctx context.Context, skip int) (BusStopsDocument, error) {
	u := fmt.Sprintf("%s/BusStops?$skip=%d", c.baseURL, skip)
	var doc BusStopsDocument
	if err := c.getJSON(ctx, u, &doc); err != nil {
		return BusStopsDocument{}, err
	}
	return doc, nil
}

// FetchArrivals returns the live-arrivals snapshot for one stop.
func (c *Client) FetchArrivals(ctx context.Context, busStopCode string) (arrivaltypes.StopArrivals, error) {
	if busStopCode == "" {
		return arrivaltypes.StopArrivals{}, errors.New("bus stop code required")
	}
	u := fmt.Sprintf("%s/v3/BusArrival?BusStopCode=%s", c.baseURL, url.QueryEscape(busStopCode))

	var resp busArrivalResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return arrivaltypes.StopArrivals{}, err
	}

	out := arrivaltypes.StopArrivals{
		BusStopCode: busStopCode,
		RetrievedAt: time.Now(),
	}
	for _, svc := range resp.Services {
		s := arrivaltypes.Service{ServiceNo: svc.ServiceNo, Operator: svc.Operator}
		for _, nb := range []nextBusDTO{svc.NextBus, svc.NextBus2, svc.NextBus3} {
			if nb.EstimatedArrival == "" {
				continue
			}
			eta, err := time.Parse(time.RFC3339, nb.EstimatedArrival)
			if err != nil {
				c.logger.Warn("unparseable arrival time",
					"busStopCode", busStopCode,
					"serviceNo", svc.ServiceNo,
					"estimatedArrival", nb.EstimatedArrival,
				)
				continue
			}
			s.NextBuses = append(s.NextBuses, arrivaltypes.NextBus{
				EstimatedArrival: eta,
				Load:             nb.Load,
				Feature:          nb.Feature,
				Type:             nb.Type,
			})
		}
		out.Services = append(out.Services, s)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.accountKey != "" {
		req.Header.Set("AccountKey", c.accountKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d from %s", ErrFetchFailed, resp.StatusCode, url)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrFetchFailed, err)
	}
	return nil
}

type nextBusDTO struct {
	EstimatedArrival string `json:"EstimatedArrival"`
	Load             string `json:"Load"`
	Feature          string `json:"Feature"`
	Type             string `json:"Type"`
}

type busArrivalResponse struct {
	BusStopCode string `json:"BusStopCode"`
	Services    []struct {
		ServiceNo string     `json:"ServiceNo"`
		Operator  string     `json:"Operator"`
		NextBus   nextBusDTO `json:"NextBus"`
		NextBus2  nextBusDTO `json:"NextBus2"`
		NextBus3  nextBusDTO `json:"NextBus3"`
	} `json:"Services"`
}
