package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("borrowings", 200)
		IncDerived("overdue", "overdue")
		ObserveBackend("GET", "borrowings", nil, 15*time.Millisecond)
		ObserveBackend("GET", "borrowings", errors.New("down"), time.Second)
		IncSyncTask("refresh_all", "completed")
		IncCache(true)
		IncCache(false)
		IncReminder()
		IncBotCommand("overdue", "ok")
		ObserveBotUpdate(time.Millisecond)
	})
}

func TestIncHTTP_StatusClass(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("summary", "4xx"))
	IncHTTP("summary", 404)
	IncHTTP("summary", 429)
	assert.Equal(t, before+2, testutil.ToFloat64(httpRequests.WithLabelValues("summary", "4xx")))

	assert.Equal(t, "5xx", statusClass(503))
	assert.Equal(t, "3xx", statusClass(304))
	assert.Equal(t, "2xx", statusClass(201))
}

func TestIncDerived(t *testing.T) {
	before := testutil.ToFloat64(derivedStatuses.WithLabelValues("due-soon", "none"))
	IncDerived("due-soon", "none")
	assert.Equal(t, before+1, testutil.ToFloat64(derivedStatuses.WithLabelValues("due-soon", "none")))
}
