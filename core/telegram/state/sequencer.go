package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/muzposter/core/logger"
)

// Sequencer runs jobs one at a time per chat, in the order they were submitted.
// Jobs of different chats run concurrently. A chat's worker exits once its queue is empty.
type Sequencer struct {
	mu     sync.Mutex
	queues map[int64][]func()
	wg     sync.WaitGroup
}

// NewSequencer constructs an idle Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{queues: make(map[int64][]func())}
}

// Go appends job to the queue of chatID, starting a worker for the chat if none is running.
func (s *Sequencer) Go(chatID int64, job func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, running := s.queues[chatID]
	s.queues[chatID] = append(q, job)
	if !running {
		s.wg.Add(1)
		go s.drain(chatID)
	}
}

// Pending reports the number of chats with queued or running jobs.
func (s *Sequencer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues)
}

// Wait blocks until every submitted job has finished.
func (s *Sequencer) Wait() {
	s.wg.Wait()
}

func (s *Sequencer) drain(chatID int64) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		q := s.queues[chatID]
		if len(q) == 0 {
			delete(s.queues, chatID)
			s.mu.Unlock()
			return
		}
		job := q[0]
		q[0] = nil
		s.queues[chatID] = q[1:]
		s.mu.Unlock()

		s.run(chatID, job)
	}
}

// run keeps the chat's worker alive when a job panics.
func (s *Sequencer) run(chatID int64, job func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(context.Background(), logger.CompTG, "sequencer.panic",
				slog.String("status", "fail"),
				slog.Int64("chat_id", chatID),
				slog.String("err", fmt.Sprint(r)),
			)
		}
	}()
	job()
}
