package chat

import (
	"sync"

	"github.com/EvgenyTerebenin/AI-challenge-4/internal/storage/models"
)

// Phase фаза жизненного цикла хода.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSuccess Phase = "success"
	PhaseError   Phase = "error"
)

// State наблюдаемое состояние чата. Messages всегда полная
// актуальная история, не дельта.
type State struct {
	Phase    Phase                `json:"phase"`
	Messages []models.ChatMessage `json:"messages"`
	Error    string               `json:"error,omitempty"`
}

// StateBroadcaster публикует состояние чата подписчикам.
// Публикация синхронна относительно вызывающего: Current после
// publish уже видит новое состояние. Медленный подписчик теряет
// промежуточные состояния, а не блокирует издателя.
type StateBroadcaster struct {
	mu          sync.RWMutex
	current     State
	subscribers map[chan State]struct{}
	closed      bool
}

func NewStateBroadcaster() *StateBroadcaster {
	return &StateBroadcaster{
		current:     State{Phase: PhaseIdle, Messages: []models.ChatMessage{}},
		subscribers: make(map[chan State]struct{}),
	}
}

// Current возвращает последнее опубликованное состояние.
func (b *StateBroadcaster) Current() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Subscribe возвращает канал состояний и функцию отписки.
// Первым значением приходит текущее состояние.
func (b *StateBroadcaster) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 16)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subscribers[ch] = struct{}{}
	ch <- b.current
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, unsubscribe
}

func (b *StateBroadcaster) publish(state State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.current = state
	for ch := range b.subscribers {
		select {
		case ch <- state:
		default:
		}
	}
}

// Close закрывает каналы подписчиков.
func (b *StateBroadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = make(map[chan State]struct{})
}
