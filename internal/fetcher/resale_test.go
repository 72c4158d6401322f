package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datastoreHandler(t *testing.T, pages map[int][]map[string]any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		records := pages[offset]
		resp := map[string]any{
			"success": true,
			"result": map[string]any{
				"records": records,
				"total":   len(records),
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func record(town, block, street, month string, price any) map[string]any {
	return map[string]any{
		"town": town, "block": block, "street_name": street,
		"flat_type": "4 ROOM", "month": month, "resale_price": price,
		"remaining_lease": "70 years",
	}
}

func newTestClient(srv *httptest.Server, pageSize int) *ResaleClient {
	return NewResaleClient(NewHTTPFetcher(HTTPOptions{}), ResaleOptions{
		BaseURL:  srv.URL,
		PageSize: pageSize,
	})
}

func TestResaleFetchTownType(t *testing.T) {
	var gotFilters string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFilters = r.URL.Query().Get("filters")
		datastoreHandler(t, map[int][]map[string]any{
			0: {
				record("ANG MO KIO", "309", "ANG MO KIO AVE 1", "2024-03", "500000"),
				record("ANG MO KIO", "310", "ANG MO KIO AVE 1", "2024-02", 480000), // numeric price
			},
		})(w, r)
	}))
	defer srv.Close()

	rows, err := newTestClient(srv, 1000).FetchTownType(context.Background(), "ang mo kio", "4 room")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "ANG MO KIO", rows[0].Town)
	assert.Equal(t, "500000", rows[0].ResalePrice)
	assert.Equal(t, "480000", rows[1].ResalePrice)

	var filters map[string]string
	require.NoError(t, json.Unmarshal([]byte(gotFilters), &filters))
	assert.Equal(t, "ANG MO KIO", filters["town"])
	assert.Equal(t, "4 ROOM", filters["flat_type"])
}

func TestResalePagination(t *testing.T) {
	pages := map[int][]map[string]any{}
	for offset, n := range map[int]int{0: 2, 2: 2, 4: 1} {
		for i := 0; i < n; i++ {
			pages[offset] = append(pages[offset],
				record("BEDOK", fmt.Sprintf("%d", offset+i), "BEDOK NTH RD", "2024-01", "400000"))
		}
	}
	srv := httptest.NewServer(datastoreHandler(t, pages))
	defer srv.Close()

	rows, err := newTestClient(srv, 2).FetchTownType(context.Background(), "BEDOK", "4 ROOM")
	require.NoError(t, err)
	assert.Len(t, rows, 5) // stops on the short final page
}

func TestResaleFieldAliases(t *testing.T) {
	srv := httptest.NewServer(datastoreHandler(t, map[int][]map[string]any{
		0: {{
			"town": "BISHAN", "blk_no": "170", "street": "BISHAN ST 13",
			"flat_type": "5 ROOM", "month": "2024-01", "resale_price": "700000",
		}},
	}))
	defer srv.Close()

	rows, err := newTestClient(srv, 1000).FetchTownType(context.Background(), "BISHAN", "5 ROOM")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "170", rows[0].Block)
	assert.Equal(t, "BISHAN ST 13", rows[0].StreetName)
}

func TestResaleDropsIncompleteRecords(t *testing.T) {
	srv := httptest.NewServer(datastoreHandler(t, map[int][]map[string]any{
		0: {
			record("AMK", "309", "AVE 1", "2024-03", "500000"),
			{"town": "AMK", "block": "310"}, // missing nearly everything
		},
	}))
	defer srv.Close()

	rows, err := newTestClient(srv, 1000).FetchTownType(context.Background(), "AMK", "4 ROOM")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestResaleDatastoreFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 1000).FetchTownType(context.Background(), "AMK", "4 ROOM")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "datastore reported failure")
}

func TestResaleTowns(t *testing.T) {
	srv := httptest.NewServer(datastoreHandler(t, map[int][]map[string]any{
		0: {
			record("TOA PAYOH", "1", "X", "2024-01", "1"),
			record("ang mo kio", "2", "Y", "2024-01", "1"),
			record("BEDOK", "3", "Z", "2024-01", "1"),
			record("BEDOK", "4", "Z", "2024-01", "1"),
		},
	}))
	defer srv.Close()

	towns, err := newTestClient(srv, 1000).Towns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ANG MO KIO", "BEDOK", "TOA PAYOH"}, towns)
}

func TestResaleTownsEmpty(t *testing.T) {
	srv := httptest.NewServer(datastoreHandler(t, map[int][]map[string]any{}))
	defer srv.Close()

	_, err := newTestClient(srv, 1000).Towns(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no towns discovered")
}

func TestFlexStringDecode(t *testing.T) {
	var rec datastoreRecord
	require.NoError(t, json.Unmarshal([]byte(`{"resale_price": 512345.0, "town": null, "block": "12A"}`), &rec))
	assert.Equal(t, "512345.0", string(rec.ResalePrice))
	assert.Equal(t, "", string(rec.Town))
	assert.Equal(t, "12A", string(rec.Block))
}
