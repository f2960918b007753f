package replication

import (
	"context"
	"sync"
	"time"

	"github.com/annel0/ore-world/internal/eventbus"
	"github.com/annel0/ore-world/internal/logging"
	"github.com/annel0/ore-world/internal/protocol"
	"github.com/annel0/ore-world/internal/storage"
	"github.com/annel0/ore-world/internal/vec"
	"github.com/annel0/ore-world/internal/world"
	"github.com/google/uuid"
)

// Типы событий шины
const (
	EventBlockDelta    = "BlockDelta"
	EventWorldSnapshot = "WorldSnapshot"
)

// Если изменения покрывают бОльшую долю охватывающего прямоугольника,
// выгоднее отправить область целиком, чем список точечных записей
const regionDensityThreshold = 0.6

// Manager управляет отправкой обновлений блоков наблюдателям.
// Авторитетная сторона регистрирует каждое изменение блока; накопленные
// изменения периодически сливаются в сообщения протокола и публикуются
// на шине. Каждому сообщению присваивается монотонная ревизия мира,
// по которой наблюдатели отбрасывают устаревшие дельты.
type Manager struct {
	grid       *world.Grid
	bus        eventbus.EventBus
	source     string
	serializer *protocol.MessageSerializer
	metrics    *ReplicationMetrics

	mu       sync.Mutex
	revision uint64
	pending  map[vec.Vec2]struct{}
}

// NewManager создаёт менеджер репликации авторитетного мира
func NewManager(grid *world.Grid, bus eventbus.EventBus, source string, metrics *ReplicationMetrics) *Manager {
	return &Manager{
		grid:       grid,
		bus:        bus,
		source:     source,
		serializer: protocol.NewMessageSerializer(),
		metrics:    metrics,
		pending:    make(map[vec.Vec2]struct{}),
	}
}

// Revision возвращает текущую ревизию мира
func (m *Manager) Revision() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision
}

// RecordChange регистрирует изменение блока для отправки наблюдателям.
// Запоминаются только координаты: актуальное состояние блока читается
// из сетки в момент слива, поэтому повторные изменения одного блока
// между сливами схлопываются в одну запись.
func (m *Manager) RecordChange(pos vec.Vec2) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pending[pos] = struct{}{}
	m.metrics.blocksChanged.Inc()
}

// PendingCount возвращает количество изменений, ожидающих отправки
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Flush сливает накопленные изменения в одно сообщение протокола и
// публикует его на шине. Вызывается WorldManager на границе тика -
// никогда посреди тика. Плотные изменения уходят областью, редкие -
// разреженным списком.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()

	if len(m.pending) == 0 {
		m.mu.Unlock()
		return nil
	}

	m.revision++
	revision := m.revision

	positions := make([]vec.Vec2, 0, len(m.pending))
	for pos := range m.pending {
		positions = append(positions, pos)
	}
	m.pending = make(map[vec.Vec2]struct{})
	m.mu.Unlock()

	bounds := boundingRect(positions)
	var data []byte
	var kind string

	if float64(len(positions)) >= regionDensityThreshold*float64(bounds.Area()) && bounds.Area() > 1 {
		data = m.encodeRegion(bounds, revision)
		kind = "region"
	} else {
		data = m.encodeSparse(positions, revision)
		kind = "sparse"
	}

	if err := m.publish(ctx, EventBlockDelta, data); err != nil {
		// Возвращаем изменения в накопитель: следующий слив перечитает
		// актуальное состояние сетки и отправит их под новой ревизией.
		// Пропуск в номерах ревизий безопасен, наблюдатели требуют
		// только монотонного роста.
		m.mu.Lock()
		for _, pos := range positions {
			m.pending[pos] = struct{}{}
		}
		m.mu.Unlock()
		return err
	}

	m.metrics.deltasSent.WithLabelValues(kind).Inc()
	if kind == "region" {
		logging.LogDeltaFlush(0, 1, revision)
	} else {
		logging.LogDeltaFlush(len(positions), 0, revision)
	}
	return nil
}

// PublishSnapshot кодирует полный снапшот мира и публикует его на шине.
// Используется для первичной синхронизации наблюдателей.
func (m *Manager) PublishSnapshot(ctx context.Context) error {
	envelope, err := storage.EncodeSnapshot(m.grid)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.revision++
	revision := m.revision
	m.mu.Unlock()

	data := m.serializer.EncodeWorldSnapshot(&protocol.WorldSnapshot{
		Revision: revision,
		Data:     envelope,
	})

	if err := m.publish(ctx, EventWorldSnapshot, data); err != nil {
		return err
	}

	m.metrics.deltasSent.WithLabelValues("snapshot").Inc()
	m.metrics.snapshotBytes.Set(float64(len(envelope)))
	logging.LogSnapshot("published", len(envelope), revision)
	return nil
}

// encodeSparse собирает разреженное обновление из текущего состояния сетки
func (m *Manager) encodeSparse(positions []vec.Vec2, revision uint64) []byte {
	msg := &protocol.SparseBlockUpdate{
		Revision: revision,
		Blocks:   make([]protocol.SparseBlock, 0, len(positions)),
	}

	for _, pos := range positions {
		block := m.grid.GetClamped(pos.X, pos.Y)
		msg.Blocks = append(msg.Blocks, protocol.SparseBlock{
			X: int32(pos.X),
			Y: int32(pos.Y),
			Block: protocol.BlockState{
				Terrain: block.Terrain,
				Wall:    block.Wall,
				Flags:   block.Flags,
			},
		})
	}

	return m.serializer.EncodeSparseBlockUpdate(msg)
}

// encodeRegion собирает обновление области из текущего состояния сетки.
// Блоки идут в порядке строк: внешний цикл по Y, внутренний по X.
func (m *Manager) encodeRegion(bounds vec.Rect, revision uint64) []byte {
	msg := &protocol.BlockRegion{
		Revision: revision,
		X:        int32(bounds.X),
		Y:        int32(bounds.Y),
		X2:       int32(bounds.X2),
		Y2:       int32(bounds.Y2),
		Blocks:   make([]protocol.BlockState, 0, bounds.Area()),
	}

	for y := bounds.Y; y <= bounds.Y2; y++ {
		for x := bounds.X; x <= bounds.X2; x++ {
			block := m.grid.GetClamped(x, y)
			msg.Blocks = append(msg.Blocks, protocol.BlockState{
				Terrain: block.Terrain,
				Wall:    block.Wall,
				Flags:   block.Flags,
			})
		}
	}

	return m.serializer.EncodeBlockRegion(msg)
}

// publish оборачивает закодированное сообщение в конверт шины
func (m *Manager) publish(ctx context.Context, eventType string, data []byte) error {
	return m.bus.Publish(ctx, &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    m.source,
		EventType: eventType,
		Payload:   data,
	})
}

// boundingRect возвращает минимальный прямоугольник, покрывающий все позиции
func boundingRect(positions []vec.Vec2) vec.Rect {
	r := vec.Rect{
		X: positions[0].X, Y: positions[0].Y,
		X2: positions[0].X, Y2: positions[0].Y,
	}
	for _, pos := range positions[1:] {
		if pos.X < r.X {
			r.X = pos.X
		}
		if pos.X > r.X2 {
			r.X2 = pos.X
		}
		if pos.Y < r.Y {
			r.Y = pos.Y
		}
		if pos.Y > r.Y2 {
			r.Y2 = pos.Y
		}
	}
	return r
}
