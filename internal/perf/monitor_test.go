package perf

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_Snapshot(t *testing.T) {
	m := NewMonitor()
	for i := 1; i <= 20; i++ {
		var err error
		if i%10 == 0 {
			err = errors.New("boom")
		}
		m.Observe("POST /plants", time.Duration(i)*time.Millisecond, err)
	}
	m.Observe("GET /plants", 5*time.Millisecond, nil)

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "GET /plants", snap[0].Name)

	post := snap[1]
	assert.Equal(t, 20, post.Count)
	assert.Equal(t, 2, post.Errors)
	assert.Equal(t, time.Millisecond, post.Min)
	assert.Equal(t, 20*time.Millisecond, post.Max)
	assert.Equal(t, 210*time.Millisecond, post.Total)
	assert.Equal(t, 10500*time.Microsecond, post.Mean)
	assert.Equal(t, 19*time.Millisecond, post.P95)
}

func TestMonitor_Lifecycle(t *testing.T) {
	var m Monitor
	m.Observe("a", time.Millisecond, nil)
	assert.Empty(t, m.Snapshot())

	m.Init()
	m.Observe("a", time.Millisecond, nil)
	require.Len(t, m.Snapshot(), 1)

	m.Init()
	m.Observe("a", time.Millisecond, nil)
	assert.Equal(t, 2, m.Snapshot()[0].Count)

	m.Reset()
	m.Observe("a", time.Millisecond, nil)
	assert.Empty(t, m.Snapshot())
	assert.Zero(t, m.Uptime())

	m.Init()
	m.Observe("a", time.Millisecond, nil)
	assert.Len(t, m.Snapshot(), 1)
}

func TestMonitor_Nil(t *testing.T) {
	var m *Monitor
	m.Init()
	m.Observe("a", time.Second, nil)
	m.Reset()
	assert.Nil(t, m.Snapshot())
	assert.Zero(t, m.Uptime())
}

func TestMonitor_Concurrent(t *testing.T) {
	m := NewMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Observe("x", time.Millisecond, nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, m.Snapshot()[0].Count)
}
