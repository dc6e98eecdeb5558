package clob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetPriceHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("market") != "111" || q.Get("interval") != "max" || q.Get("fidelity") != "1" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"history":[{"t":1700000000,"p":0.42},{"t":1700000060},{"p":0.5},{"t":1700000120,"p":"0.43"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	points, err := c.GetPriceHistory(context.Background(), PriceHistoryParams{TokenID: "111", Interval: "max", Fidelity: 1})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(points) != 2 {
		t.Fatalf("len=%d want=2", len(points))
	}
	if !points[0].TS.Equal(time.Unix(1700000000, 0)) {
		t.Fatalf("ts=%v", points[0].TS)
	}
	if points[1].Price.String() != "0.43" {
		t.Fatalf("price=%s want=0.43", points[1].Price.String())
	}
}

func TestGetPriceHistory_StartTsOverridesInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("startTs") != "1700000000" || q.Has("interval") {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"history":[]}`))
	}))
	defer srv.Close()

	start := int64(1700000000)
	points, err := NewClient(srv.Client(), srv.URL).GetPriceHistory(context.Background(), PriceHistoryParams{TokenID: "1", Interval: "1d", StartTs: &start})
	if err != nil || len(points) != 0 {
		t.Fatalf("points=%v err=%v", points, err)
	}
}

func TestGetPriceHistory_RequiresToken(t *testing.T) {
	if _, err := NewClient(nil, "").GetPriceHistory(context.Background(), PriceHistoryParams{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParsePriceHistory_Formats(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{`{"prices":[[1700000000,"0.1"],[1700000060,"0.2"]]}`, 2},
		{`[{"timestamp":1700000000,"price":0.3}]`, 1},
		{`{"history":[{"t":null,"p":0.1}]}`, 0},
		{`{}`, 0},
	}
	for _, tt := range tests {
		points, err := parsePriceHistory([]byte(tt.body))
		if err != nil {
			t.Fatalf("body=%s err=%v", tt.body, err)
		}
		if len(points) != tt.want {
			t.Fatalf("body=%s len=%d want=%d", tt.body, len(points), tt.want)
		}
	}
	if _, err := parsePriceHistory([]byte(`"nope"`)); err == nil {
		t.Fatalf("expected error")
	}
}
