package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Условие не выполнилось за отведённое время")
}

func TestMemoryBusPublishSubscribe(t *testing.T) {
	bus := NewMemoryBus(16)
	ctx := context.Background()

	var mu sync.Mutex
	var received []*Envelope

	_, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Ошибка подписки: %v", err)
	}

	if err := bus.Publish(ctx, &Envelope{ID: "1", EventType: "BlockDelta"}); err != nil {
		t.Fatalf("Ошибка публикации: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	})

	mu.Lock()
	if received[0].ID != "1" {
		t.Errorf("Ожидался конверт 1, получен %s", received[0].ID)
	}
	mu.Unlock()
}

func TestMemoryBusFilter(t *testing.T) {
	bus := NewMemoryBus(16)
	ctx := context.Background()

	var mu sync.Mutex
	var received []*Envelope

	filter := Filter{Types: []string{"WorldSnapshot"}, Sources: []string{"authoritative"}}
	if _, err := bus.Subscribe(ctx, filter, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		received = append(received, ev)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Ошибка подписки: %v", err)
	}

	// Не проходит по типу
	bus.Publish(ctx, &Envelope{ID: "a", EventType: "BlockDelta", Source: "authoritative"})
	// Не проходит по источнику
	bus.Publish(ctx, &Envelope{ID: "b", EventType: "WorldSnapshot", Source: "observer"})
	// Проходит
	bus.Publish(ctx, &Envelope{ID: "c", EventType: "WorldSnapshot", Source: "authoritative"})

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) >= 1
	})

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0].ID != "c" {
		t.Errorf("Фильтр должен пропустить только конверт c, получено %d конвертов", len(received))
	}
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(16)
	ctx := context.Background()

	var mu sync.Mutex
	count := 0

	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Ошибка подписки: %v", err)
	}

	bus.Publish(ctx, &Envelope{ID: "1"})
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})

	sub.Unsubscribe()
	bus.Publish(ctx, &Envelope{ID: "2"})

	// Даём диспетчеру время: событие не должно дойти
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("После отписки события не должны доставляться, получено %d", count)
	}
}

func TestMemoryBusMetrics(t *testing.T) {
	bus := NewMemoryBus(16)
	ctx := context.Background()

	bus.Publish(ctx, &Envelope{ID: "1"})
	bus.Publish(ctx, &Envelope{ID: "2"})

	waitFor(t, time.Second, func() bool {
		return bus.Metrics().Consumed == 2
	})

	stats := bus.Metrics()
	if stats.Published != 2 {
		t.Errorf("Ожидалось 2 опубликованных события, получено %d", stats.Published)
	}
	if stats.Dropped != 0 {
		t.Errorf("Потерь быть не должно, получено %d", stats.Dropped)
	}
}

func TestMemoryBusClose(t *testing.T) {
	bus := NewMemoryBus(16)
	ctx := context.Background()

	var mu sync.Mutex
	count := 0
	if _, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		count++
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Ошибка подписки: %v", err)
	}

	if err := bus.Publish(ctx, &Envelope{ID: "1"}); err != nil {
		t.Fatalf("Ошибка публикации: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})

	bus.Close()

	if err := bus.Publish(ctx, &Envelope{ID: "2"}); err != ErrBusClosed {
		t.Errorf("Публикация в закрытую шину должна возвращать ErrBusClosed, получено %v", err)
	}

	// Повторное закрытие безопасно
	bus.Close()
}

func TestMemoryBusPublishCancelledContext(t *testing.T) {
	// Буфер в одно событие и никого, кто его разгребает
	bus := NewMemoryBus(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Забиваем буфер: первая публикация может успеть, дальше блокировка
	// должна прерваться отменённым контекстом, а не зависнуть
	deadline := time.After(2 * time.Second)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			if err := bus.Publish(ctx, &Envelope{}); err != nil {
				return
			}
		}
	}()

	select {
	case <-done:
	case <-deadline:
		t.Fatal("Публикация с отменённым контекстом зависла")
	}
}
