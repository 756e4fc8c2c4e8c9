package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/multilocker/pkg/events"
	"github.com/robotalks/multilocker/pkg/r308"
	"github.com/robotalks/multilocker/pkg/roles"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.CommandDone("search", r308.StatusOK, nil, 20*time.Millisecond)
	c.CommandDone("search", r308.StatusNotFound, nil, 20*time.Millisecond)
	c.CommandDone("search", r308.StatusNone, errors.New("timeout"), time.Second)
	require.Equal(t, 1.0, testutil.ToFloat64(c.Commands.WithLabelValues("search", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.Commands.WithLabelValues("search", "not found")))
	require.Equal(t, 1.0, testutil.ToFloat64(c.Commands.WithLabelValues("search", "link_error")))

	require.NoError(t, c.Emit(events.Event{Type: events.Granted, Role: roles.Owner}))
	require.NoError(t, c.Emit(events.Event{Type: events.Granted, Role: roles.Owner}))
	require.Equal(t, 2.0, testutil.ToFloat64(c.Events.WithLabelValues("granted", "owner")))

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP locker_events_total Locker events by type and role.
# TYPE locker_events_total counter
locker_events_total{role="owner",type="granted"} 2
`), "locker_events_total"))
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	c := NewCollector(reg)
	c.CommandDone("clear", r308.StatusOK, nil, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), `sensor_commands_total{command="clear",result="ok"} 1`)
}
