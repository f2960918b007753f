package world

import (
	"context"
	"time"

	"github.com/annel0/ore-world/internal/ecs"
	"github.com/annel0/ore-world/internal/logging"
	"github.com/annel0/ore-world/internal/vec"
)

// Mode определяет роль экземпляра мира
type Mode uint8

const (
	// ModeAuthoritative - авторитетный мир: источник истины,
	// мутирует сетку и рассылает дельты наблюдателям
	ModeAuthoritative Mode = iota
	// ModeObserver - мир-наблюдатель: применяет входящие дельты,
	// собственных мутаций не порождает
	ModeObserver
)

// DeltaSink принимает изменения блоков авторитетного мира для рассылки
type DeltaSink interface {
	RecordChange(pos vec.Vec2)
	Flush(ctx context.Context) error
}

// MessageApplier применяет полностью декодированное сообщение репликации
type MessageApplier interface {
	Apply(data []byte) error
}

// SaveFunc сохраняет мир; вызывается циклом автосохранения между тиками
type SaveFunc func(g *Grid, tick uint64) error

// WorldManager управляет одним экземпляром мира и координирует все
// процессы вокруг него. Экземпляр монопольно владеет своей сеткой и
// реестром компонентов; между мирами нет общего состояния - даже в
// одном процессе авторитетный мир и наблюдатель синхронизируются
// только через протокол репликации.
//
// Все мутации выполняет единственный тик-поток: внешние вызовы и
// входящие сообщения становятся в очередь и выполняются на границе
// тика, никогда посреди него.
type WorldManager struct {
	mode     Mode
	grid     *Grid
	registry *ecs.Registry

	tickPeriod  time.Duration
	currentTick uint64

	commands chan func()
	inbox    chan []byte

	sink           DeltaSink      // только ModeAuthoritative
	applier        MessageApplier // только ModeObserver
	saveFunc       SaveFunc
	autosavePeriod time.Duration

	ctx        context.Context
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Частота тиков по умолчанию: 25 тиков в секунду
const DefaultTickPeriod = 40 * time.Millisecond

// NewWorldManager создаёт менеджер мира указанной роли
func NewWorldManager(mode Mode, grid *Grid, registry *ecs.Registry) *WorldManager {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorldManager{
		mode:           mode,
		grid:           grid,
		registry:       registry,
		tickPeriod:     DefaultTickPeriod,
		autosavePeriod: 5 * time.Minute,
		commands:       make(chan func(), 1024),
		inbox:          make(chan []byte, 1024),
		ctx:            ctx,
		cancelFunc:     cancel,
		done:           make(chan struct{}),
	}
}

// SetTickPeriod задаёт период тика до запуска
func (wm *WorldManager) SetTickPeriod(period time.Duration) {
	wm.tickPeriod = period
}

// SetDeltaSink подключает рассылку дельт (авторитетная сторона)
func (wm *WorldManager) SetDeltaSink(sink DeltaSink) {
	wm.sink = sink
}

// SetApplier подключает применитель входящих сообщений (наблюдатель)
func (wm *WorldManager) SetApplier(applier MessageApplier) {
	wm.applier = applier
}

// SetSaveFunc подключает сохранение мира для цикла автосохранения
func (wm *WorldManager) SetSaveFunc(fn SaveFunc) {
	wm.saveFunc = fn
}

// SetAutosavePeriod задаёт интервал автосохранения до запуска
func (wm *WorldManager) SetAutosavePeriod(period time.Duration) {
	wm.autosavePeriod = period
}

// Grid возвращает сетку мира. Читать её вне тик-потока безопасно только
// после остановки менеджера.
func (wm *WorldManager) Grid() *Grid {
	return wm.grid
}

// Registry возвращает реестр компонентов мира
func (wm *WorldManager) Registry() *ecs.Registry {
	return wm.registry
}

// CurrentTick возвращает номер текущего тика
func (wm *WorldManager) CurrentTick() uint64 {
	return wm.currentTick
}

// Run запускает тик-цикл и автосохранение.
// Блокируется до отмены контекста.
func (wm *WorldManager) Run(parentCtx context.Context) {
	if parentCtx != nil {
		childCtx, cancel := context.WithCancel(parentCtx)
		wm.ctx = childCtx
		wm.cancelFunc = cancel
	}

	if wm.saveFunc != nil {
		go wm.autoSaveLoop()
	}

	defer close(wm.done)

	ticker := time.NewTicker(wm.tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			wm.processTick()
		case <-wm.ctx.Done():
			return
		}
	}
}

// Stop останавливает тик-цикл и дожидается его завершения
func (wm *WorldManager) Stop() {
	wm.cancelFunc()
	<-wm.done
}

// Execute ставит мутацию в очередь тик-потока.
// fn выполнится целиком внутри одного тика.
func (wm *WorldManager) Execute(fn func()) {
	select {
	case wm.commands <- fn:
	case <-wm.ctx.Done():
	}
}

// EnqueueMessage ставит полностью декодированное сообщение репликации
// в очередь на применение. Вызывается обработчиком шины из сетевого
// потока; применение происходит только на границе тика.
func (wm *WorldManager) EnqueueMessage(data []byte) {
	select {
	case wm.inbox <- data:
	default:
		logging.LogWarn("Очередь входящих сообщений переполнена, сообщение отброшено")
	}
}

// processTick обрабатывает один тик мира:
// очередь мутаций, входящие сообщения, слив исходящих дельт
func (wm *WorldManager) processTick() {
	wm.currentTick++

commands:
	for {
		select {
		case fn := <-wm.commands:
			fn()
		default:
			break commands
		}
	}

	if wm.mode == ModeObserver && wm.applier != nil {
	inbox:
		for {
			select {
			case data := <-wm.inbox:
				if err := wm.applier.Apply(data); err != nil {
					logging.LogProtocolError("replication", err, data)
				}
			default:
				break inbox
			}
		}
	}

	if wm.mode == ModeAuthoritative && wm.sink != nil {
		if err := wm.sink.Flush(wm.ctx); err != nil && wm.ctx.Err() == nil {
			logging.LogError("Ошибка слива дельт: %v", err)
		}
	}
}

// SetBlock устанавливает блок и регистрирует изменение для репликации.
// Вызывать только из тик-потока (через Execute).
func (wm *WorldManager) SetBlock(pos vec.Vec2, t TerrainID) {
	wm.grid.SetTerrain(pos.X, pos.Y, t)
	wm.grid.RefreshMeshVariant(pos.X, pos.Y)
	wm.recordChange(pos)
	logging.LogBlockChange(pos.X, pos.Y, uint8(t))
}

// PlaceBlock пытается разместить террейн по правилам размещения.
// При успехе регистрирует для репликации и сам блок, и блок снизу:
// размещение могло снять с него признак травы.
func (wm *WorldManager) PlaceBlock(pos vec.Vec2, t TerrainID) bool {
	if !wm.grid.InBounds(pos.X, pos.Y) {
		return false
	}
	if !wm.grid.PlaceTerrain(pos.X, pos.Y, t) {
		return false
	}

	wm.grid.RefreshMeshVariant(pos.X, pos.Y)
	wm.recordChange(pos)

	below := pos.South()
	if wm.grid.InBounds(below.X, below.Y) {
		wm.recordChange(below)
	}

	logging.LogBlockChange(pos.X, pos.Y, uint8(t))
	return true
}

// BreakBlock разрушает блок (делает его пустым) и регистрирует изменение
func (wm *WorldManager) BreakBlock(pos vec.Vec2) bool {
	block, err := wm.grid.Get(pos.X, pos.Y)
	if err != nil || block.Terrain == TerrainNull || block.Terrain == TerrainBedrock {
		return false
	}

	wm.SetBlock(pos, TerrainNull)
	return true
}

// recordChange передаёт изменение в рассылку, если она подключена
func (wm *WorldManager) recordChange(pos vec.Vec2) {
	if wm.sink != nil {
		wm.sink.RecordChange(pos)
	}
}

// autoSaveLoop периодически ставит сохранение мира в очередь тик-потока.
// Само сохранение выполняется между мутациями тика: снапшот никогда не
// читает сетку посреди изменения.
func (wm *WorldManager) autoSaveLoop() {
	ticker := time.NewTicker(wm.autosavePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			wm.Execute(func() {
				if err := wm.saveFunc(wm.grid, wm.currentTick); err != nil {
					logging.LogError("Ошибка автосохранения мира: %v", err)
				} else {
					logging.LogInfo("Мир сохранён (тик %d)", wm.currentTick)
				}
			})
		case <-wm.ctx.Done():
			return
		}
	}
}
