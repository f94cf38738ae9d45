package scheduler

import (
	"fmt"
	"testing"
	"time"
)

// Exercises the watch-loop pattern: every fire is answered by rescheduling the
// same schedule, so producer and consumer race on the queue continuously.
func TestEngineSustainsReschedulingUnderLoad(t *testing.T) {
	engine := NewEngine(256)
	engine.Start()
	defer engine.Stop()

	const schedules = 20
	const firesEach = 50

	start := time.Now()
	for i := 0; i < schedules; i++ {
		ev := DeliveryEvent{
			ScheduleID: fmt.Sprintf("schedule-%d", i),
			Channel:    "notification",
			FireAt:     start.Add(time.Duration(i) * time.Millisecond),
		}
		if err := engine.Schedule(ev); err != nil {
			t.Fatalf("prime %s: %v", ev.ScheduleID, err)
		}
	}

	fired := make(map[string]int, schedules)
	deadline := time.After(10 * time.Second)
	for remaining := schedules * firesEach; remaining > 0; {
		select {
		case <-deadline:
			t.Fatalf("timeout: %d fires outstanding, dropped=%d", remaining, engine.Dropped())
		case ev, open := <-engine.C():
			if !open {
				t.Fatalf("event stream closed with %d fires outstanding", remaining)
			}
			fired[ev.ScheduleID]++
			remaining--
			if fired[ev.ScheduleID] < firesEach {
				ev.FireAt = time.Now().Add(time.Millisecond)
				if err := engine.Schedule(ev); err != nil {
					t.Fatalf("reschedule %s: %v", ev.ScheduleID, err)
				}
			}
		}
	}

	for id, n := range fired {
		if n != firesEach {
			t.Fatalf("%s fired %d times, want %d", id, n, firesEach)
		}
	}
	if engine.Dropped() != 0 {
		t.Fatalf("expected zero drops with an active consumer, got %d", engine.Dropped())
	}
}
