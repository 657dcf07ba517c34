package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"libraryhub/internal/backend"
	"libraryhub/internal/borrowing"
	"libraryhub/internal/config"
	"libraryhub/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration-style test: views served over HTTP are derived from what the backend returns.
func TestBorrowingsFromBackend(t *testing.T) {
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/borrowings":
			_, _ = io.WriteString(w, `{"success":true,"message":"ok","data":[
				{"id":1,"book_id":2,"member_id":7,"borrow_date":"2024-03-01","due_date":"2024-03-15"},
				{"id":2,"book_id":3,"member_id":7,"borrow_date":"2024-03-10","due_date":"2024-03-24"},
				{"id":3,"book_id":4,"member_id":8,"borrow_date":"2024-03-19","due_date":"2024-04-02","status":"pending"}
			]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"success":false,"message":"not found"}`)
		}
	}))
	t.Cleanup(backendSrv.Close)

	logger := zerolog.New(io.Discard)
	client := backend.NewClient(backendSrv.URL+"/api", "token", time.Second, &logger)
	deriver := borrowing.NewDeriver(borrowing.DefaultPolicy(), func() time.Time { return fixedNow })
	svc := service.NewBorrowingService(client, client, deriver, nil, nil, &logger)

	srv := NewHTTPServer(config.APIConfig{}, Deps{
		Borrowings: svc,
		Catalog:    service.NewCatalogService(client, client, nil, nil, &logger),
		Deriver:    deriver,
	}, &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	api := &testAPI{ts: ts}

	resp, body := api.do(t, http.MethodGet, "/api/v1/borrowings/summary", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(1), body["overdue"])
	assert.Equal(t, float64(1), body["due_soon"])
	assert.Equal(t, float64(1), body["pending"])
	assert.Equal(t, float64(25000), body["unpaid_fines"])

	resp, body = api.do(t, http.MethodGet, "/api/v1/borrowings?status=due-soon", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["count"])

	resp, _ = api.do(t, http.MethodGet, "/api/v1/borrowings/42", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = api.do(t, http.MethodGet, "/api/v1/books/9", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
