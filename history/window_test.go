package history

import (
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/ragtime/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func turn(i int) core.Turn {
	role := core.RoleUser
	if i%2 == 1 {
		role = core.RoleAssistant
	}
	return core.Turn{Role: role, Content: fmt.Sprintf("turn %d", i)}
}

func contents(turns []core.Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Content
	}
	return out
}

func TestWindow(t *testing.T) {
	t.Run("append below limit", func(t *testing.T) {
		w := NewWindow(3)
		w.Append(turn(0), turn(1))
		assert.Equal(t, 2, w.Len())
		assert.Equal(t, []string{"turn 0", "turn 1"}, contents(w.Snapshot()))
	})

	t.Run("append at limit drops exactly the oldest", func(t *testing.T) {
		w := NewWindow(3)
		w.Append(turn(0), turn(1), turn(2))
		w.Append(turn(3))
		assert.Equal(t, 3, w.Len())
		assert.Equal(t, []string{"turn 1", "turn 2", "turn 3"}, contents(w.Snapshot()))
	})

	t.Run("batch larger than limit keeps the newest", func(t *testing.T) {
		w := NewWindow(2)
		w.Append(turn(0), turn(1), turn(2), turn(3), turn(4))
		assert.Equal(t, []string{"turn 3", "turn 4"}, contents(w.Snapshot()))
	})

	t.Run("zero limit keeps nothing", func(t *testing.T) {
		w := NewWindow(0)
		w.Append(turn(0))
		assert.Zero(t, w.Len())
		assert.Empty(t, w.Snapshot())
	})

	t.Run("negative limit is zero", func(t *testing.T) {
		assert.Zero(t, NewWindow(-4).Limit())
	})

	t.Run("sequence numbers increase", func(t *testing.T) {
		w := NewWindow(2)
		w.Append(turn(0), turn(1), turn(2))
		snap := w.Snapshot()
		assert.Equal(t, uint64(2), snap[0].Seq)
		assert.Equal(t, uint64(3), snap[1].Seq)
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		w := NewWindow(2)
		w.Append(turn(0))
		snap := w.Snapshot()
		snap[0].Content = "mutated"
		assert.Equal(t, "turn 0", w.Snapshot()[0].Content)
	})

	t.Run("reset empties", func(t *testing.T) {
		w := NewWindow(2)
		w.Append(turn(0), turn(1))
		w.Reset()
		assert.Zero(t, w.Len())
		w.Append(turn(2))
		assert.Equal(t, uint64(3), w.Snapshot()[0].Seq)
	})

	t.Run("concurrent appends stay bounded", func(t *testing.T) {
		w := NewWindow(5)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.Append(turn(i), turn(i+1))
			}()
		}
		wg.Wait()
		require.Equal(t, 5, w.Len())
		snap := w.Snapshot()
		for i := 1; i < len(snap); i++ {
			assert.Equal(t, snap[i-1].Seq+1, snap[i].Seq)
		}
	})
}

func TestWindowProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(0, 8).Draw(t, "limit")
		batches := rapid.SliceOfN(rapid.IntRange(0, 5), 0, 20).Draw(t, "batches")

		w := NewWindow(limit)
		var all []string
		n := 0
		for _, size := range batches {
			batch := make([]core.Turn, size)
			for i := range batch {
				batch[i] = turn(n)
				all = append(all, batch[i].Content)
				n++
			}
			w.Append(batch...)

			if w.Len() > limit {
				t.Fatalf("window holds %d turns, limit %d", w.Len(), limit)
			}
		}

		want := all[max(len(all)-limit, 0):]
		got := contents(w.Snapshot())
		if len(want) != len(got) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("got %v, want the newest %v", got, want)
			}
		}
	})
}
