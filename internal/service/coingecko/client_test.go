package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CoinCast/internal/domain/models"
	domrepo "CoinCast/internal/domain/repository"
)

func serveBody(t *testing.T, status int, body string) (*httptest.Server, domrepo.PriceSource) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, New(srv.URL, "bitcoin", "usd", 2*time.Second)
}

func TestFetchRangeCollapsesToDays(t *testing.T) {
	day1 := time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	// Two quotes on day2: the later one wins.
	body := fmt.Sprintf(`{"prices":[[%d,100.5],[%d,101],[%d,102.25]]}`,
		day1.UnixMilli(), day2.Add(1*time.Hour).UnixMilli(), day2.Add(20*time.Hour).UnixMilli())
	_, source := serveBody(t, http.StatusOK, body)

	pts, err := source.FetchRange(context.Background(), 2)
	if err != nil {
		t.Fatalf("fetch range: %v", err)
	}
	if len(pts) != 2 {
		t.Fatalf("expected 2 daily points, got %d", len(pts))
	}
	if !pts[0].Date.Equal(day1) || pts[0].Price != 100.5 {
		t.Fatalf("first point = %+v", pts[0])
	}
	if !pts[1].Date.Equal(day2) || pts[1].Price != 102.25 {
		t.Fatalf("second point should be day2's last quote, got %+v", pts[1])
	}
}

func TestFetchLatestReturnsLastQuote(t *testing.T) {
	now := time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC)
	body := fmt.Sprintf(`{"prices":[[%d,99],[%d,103.75]]}`,
		now.Add(-6*time.Hour).UnixMilli(), now.UnixMilli())
	_, source := serveBody(t, http.StatusOK, body)

	pt, err := source.FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("fetch latest: %v", err)
	}
	if pt.Price != 103.75 {
		t.Fatalf("price = %v, want 103.75", pt.Price)
	}
	if !pt.Date.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date should be the quote's UTC calendar day, got %v", pt.Date)
	}
}

func TestFetchMapsFailuresToUpstreamUnavailable(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"missing prices key", http.StatusOK, `{}`},
		{"empty prices list", http.StatusOK, `{"prices":[]}`},
		{"garbage payload", http.StatusOK, `upstream says hi`},
		{"server error", http.StatusInternalServerError, `{"error":"overloaded"}`},
		{"rate limited", http.StatusTooManyRequests, ``},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, source := serveBody(t, tc.status, tc.body)

			if _, err := source.FetchLatest(context.Background()); !errors.Is(err, models.ErrUpstreamUnavailable) {
				t.Fatalf("FetchLatest: expected upstream error, got %v", err)
			}
			if _, err := source.FetchRange(context.Background(), 30); !errors.Is(err, models.ErrUpstreamUnavailable) {
				t.Fatalf("FetchRange: expected upstream error, got %v", err)
			}
		})
	}
}

func TestFetchTransportFailure(t *testing.T) {
	srv, source := serveBody(t, http.StatusOK, `{"prices":[[0,1]]}`)
	srv.Close() // connection refused from here on

	if _, err := source.FetchLatest(context.Background()); !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Fatalf("expected upstream error on dead server, got %v", err)
	}
}
