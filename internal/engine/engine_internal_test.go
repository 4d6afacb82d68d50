package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"depotplan/internal/domain"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	k := newKeyedMutex()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("train:T-01", "bay:B1")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Zero(t, k.size(), "unused keys are dropped")
}

func TestKeyedMutexDedupesKeys(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("train:T-01", "train:T-01", "")
	assert.Equal(t, 1, k.size())
	unlock()
	assert.Zero(t, k.size())
}

func TestWorkOrderTransitions(t *testing.T) {
	cases := []struct {
		from, to string
		force    bool
		ok       bool
	}{
		{"OPEN", "IN_PROGRESS", false, true},
		{"IN_PROGRESS", "COMPLETED", false, true},
		{"COMPLETED", "CLOSED", false, true},
		{"COMPLETED", "IN_PROGRESS", false, true},
		{"OPEN", "CLOSED", false, false},
		{"CLOSED", "OPEN", false, false},
		{"CLOSED", "OPEN", true, true},
		{"OPEN", "OPEN", true, false},
		{"OPEN", "LOST", true, false},
	}
	for _, tc := range cases {
		err := ensureWorkOrderTransition(domain.WorkOrderStatus(tc.from), domain.WorkOrderStatus(tc.to), tc.force)
		if tc.ok {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
		} else {
			assert.Error(t, err, "%s -> %s", tc.from, tc.to)
		}
	}
}
