package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Envelope описывает универсальный контейнер сообщения репликации.
// Payload - полностью закодированное сообщение протокола (см.
// internal/protocol); шина не заглядывает внутрь.
type Envelope struct {
	ID        string            // Глобально уникальный идентификатор (UUID).
	Timestamp time.Time         // Время создания (UTC).
	Source    string            // Имя мира-источника.
	EventType string            // Тип события (BlockDelta, WorldSnapshot…).
	Payload   []byte            // Закодированное сообщение протокола.
	Metadata  map[string]string // Произвольные метаданные.
}

// Filter позволяет подписаться только на нужные события.
type Filter struct {
	Types   []string // Если пусто — все типы.
	Sources []string // Если пусто — все источники.
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus определяет абстракцию шины событий между авторитетным миром
// и наблюдателями. Реализации: in-memory (самостоятельный хостинг) и
// NATS JetStream (удалённые наблюдатели).
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close()
}

// ErrBusClosed возвращается при публикации в закрытую шину
var ErrBusClosed = errors.New("шина событий закрыта")

//================ In-Memory implementation =================//

type memoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]subscriber
	nextID      int
	stats       Stats
	buffer      chan *Envelope
	capacity    int
	done        chan struct{}
	closeOnce   sync.Once
}

type subscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewMemoryBus создаёт in-memory Bus с указанным буфером.
func NewMemoryBus(capacity int) EventBus {
	mb := &memoryBus{
		subscribers: make(map[int]subscriber),
		buffer:      make(chan *Envelope, capacity),
		capacity:    capacity,
		done:        make(chan struct{}),
	}
	go mb.dispatchLoop()
	return mb
}

// Close останавливает цикл раздачи событий. Публикации после закрытия
// возвращают ErrBusClosed; повторное закрытие безопасно.
func (mb *memoryBus) Close() {
	mb.closeOnce.Do(func() { close(mb.done) })
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	select {
	case <-mb.done:
		return ErrBusClosed
	default:
	}

	// При заполненном буфере блокируем до освобождения места, закрытия
	// шины или отмены контекста: сообщения репликации терять нельзя.
	select {
	case mb.buffer <- ev:
		mb.mu.Lock()
		mb.stats.Published++
		mb.mu.Unlock()
		return nil
	case <-mb.done:
		return ErrBusClosed
	case <-ctx.Done():
		mb.mu.Lock()
		mb.stats.Dropped++
		mb.mu.Unlock()
		return ctx.Err()
	}
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	mb.mu.Lock()
	id := mb.nextID
	mb.nextID++
	mb.subscribers[id] = subscriber{filter: f, handler: h, ctx: subCtx, cancel: cancel}
	mb.mu.Unlock()

	return &memorySub{bus: mb, id: id}, nil
}

func (mb *memoryBus) Metrics() Stats {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	stats := mb.stats
	stats.InFlight = len(mb.buffer)
	return stats
}

// dispatchLoop раздаёт события подписчикам с учётом фильтров
func (mb *memoryBus) dispatchLoop() {
	for {
		var ev *Envelope
		select {
		case ev = <-mb.buffer:
		case <-mb.done:
			return
		}

		mb.mu.RLock()
		for _, sub := range mb.subscribers {
			if sub.ctx.Err() != nil {
				continue
			}
			if !matches(sub.filter, ev) {
				continue
			}
			sub.handler(sub.ctx, ev)
		}
		mb.mu.RUnlock()

		mb.mu.Lock()
		mb.stats.Consumed++
		mb.mu.Unlock()
	}
}

// matches проверяет событие против фильтра подписки
func matches(f Filter, ev *Envelope) bool {
	if len(f.Types) > 0 && !contains(f.Types, ev.EventType) {
		return false
	}
	if len(f.Sources) > 0 && !contains(f.Sources, ev.Source) {
		return false
	}
	return true
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

type memorySub struct {
	bus *memoryBus
	id  int
}

func (ms *memorySub) Unsubscribe() {
	ms.bus.mu.Lock()
	defer ms.bus.mu.Unlock()

	if sub, exists := ms.bus.subscribers[ms.id]; exists {
		sub.cancel()
		delete(ms.bus.subscribers, ms.id)
	}
}
