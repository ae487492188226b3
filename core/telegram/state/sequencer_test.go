package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSequencerKeepsOrderPerChat(t *testing.T) {
	s := NewSequencer()
	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)
	for i := 0; i < 50; i++ {
		for _, chat := range []int64{1, 2} {
			n, chat := i, chat
			s.Go(chat, func() {
				if n%7 == 0 {
					time.Sleep(time.Millisecond)
				}
				mu.Lock()
				got[chat] = append(got[chat], n)
				mu.Unlock()
			})
		}
	}
	s.Wait()

	for _, chat := range []int64{1, 2} {
		assert.Len(t, got[chat], 50)
		for i, n := range got[chat] {
			assert.Equal(t, i, n)
		}
	}
	assert.Zero(t, s.Pending())
}

func TestSequencerInterleavesChats(t *testing.T) {
	s := NewSequencer()
	release := make(chan struct{})
	done := make(chan struct{})
	s.Go(1, func() { <-release })
	s.Go(2, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("chat 2 blocked behind chat 1")
	}
	close(release)
	s.Wait()
}

func TestSequencerSurvivesPanic(t *testing.T) {
	s := NewSequencer()
	ran := false
	s.Go(1, func() { panic("boom") })
	s.Go(1, func() { ran = true })
	s.Wait()
	assert.True(t, ran)
	assert.Zero(t, s.Pending())
}
