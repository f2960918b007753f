package replication

import (
	"errors"
	"fmt"

	"github.com/annel0/ore-world/internal/protocol"
	"github.com/annel0/ore-world/internal/storage"
	"github.com/annel0/ore-world/internal/world"
)

// ErrStaleRevision возвращается для сообщения с ревизией не новее уже
// применённой: устаревшая или переупорядоченная дельта отбрасывается.
var ErrStaleRevision = errors.New("устаревшая ревизия сообщения")

// Applier приводит сетку наблюдателя в соответствие с авторитетной.
// Каждое сообщение сначала полностью проверяется и только потом
// применяется: частично применённых сообщений не бывает. Все вызовы
// выполняет тик-поток мира-наблюдателя.
type Applier struct {
	grid         *world.Grid
	serializer   *protocol.MessageSerializer
	metrics      *ReplicationMetrics
	lastRevision uint64
}

// NewApplier создаёт применитель сообщений репликации для сетки наблюдателя
func NewApplier(grid *world.Grid, metrics *ReplicationMetrics) *Applier {
	return &Applier{
		grid:       grid,
		serializer: protocol.NewMessageSerializer(),
		metrics:    metrics,
	}
}

// LastRevision возвращает ревизию последнего применённого сообщения
func (a *Applier) LastRevision() uint64 {
	return a.lastRevision
}

// Apply декодирует конверт сообщения, проверяет его и применяет к сетке.
// Ошибки проверки возвращаются вызывающему: он решает, логировать или
// отключать сбоящего отправителя.
func (a *Applier) Apply(data []byte) error {
	msgType, payload, err := a.serializer.Unwrap(data)
	if err != nil {
		a.metrics.deltasRejected.WithLabelValues("malformed").Inc()
		return err
	}

	switch msgType {
	case protocol.MsgSparseBlockUpdate:
		msg, err := a.serializer.DecodeSparseBlockUpdate(payload)
		if err != nil {
			a.metrics.deltasRejected.WithLabelValues("malformed").Inc()
			return err
		}
		return a.applySparse(msg)

	case protocol.MsgBlockRegion:
		msg, err := a.serializer.DecodeBlockRegion(payload)
		if err != nil {
			a.metrics.deltasRejected.WithLabelValues("malformed").Inc()
			return err
		}
		return a.applyRegion(msg)

	case protocol.MsgWorldSnapshot:
		msg, err := a.serializer.DecodeWorldSnapshot(payload)
		if err != nil {
			a.metrics.deltasRejected.WithLabelValues("malformed").Inc()
			return err
		}
		return a.applySnapshot(msg)

	default:
		a.metrics.deltasRejected.WithLabelValues("unknown_type").Inc()
		return fmt.Errorf("%w: неизвестный тип сообщения %d", protocol.ErrMalformedPayload, msgType)
	}
}

// checkRevision отбрасывает сообщения с не возрастающей ревизией
func (a *Applier) checkRevision(revision uint64) error {
	if revision <= a.lastRevision {
		a.metrics.deltasRejected.WithLabelValues("stale").Inc()
		return fmt.Errorf("%w: получена %d, применена %d", ErrStaleRevision, revision, a.lastRevision)
	}
	return nil
}

// applySparse применяет разреженное обновление: каждый названный блок
// перезаписывается целиком значениями отправителя. Сначала проверяются
// все координаты, потом применяются все записи.
func (a *Applier) applySparse(msg *protocol.SparseBlockUpdate) error {
	if err := a.checkRevision(msg.Revision); err != nil {
		return err
	}

	for _, sb := range msg.Blocks {
		if !a.grid.InBounds(int(sb.X), int(sb.Y)) {
			a.metrics.deltasRejected.WithLabelValues("out_of_range").Inc()
			return fmt.Errorf("%w: блок (%d,%d) в разреженном обновлении",
				world.ErrOutOfRange, sb.X, sb.Y)
		}
	}

	for _, sb := range msg.Blocks {
		current := a.grid.GetClamped(int(sb.X), int(sb.Y))
		a.grid.Set(int(sb.X), int(sb.Y), world.Block{
			Terrain:     sb.Block.Terrain,
			Wall:        sb.Block.Wall,
			Flags:       sb.Block.Flags,
			MeshVariant: current.MeshVariant,
		})
		a.grid.RefreshMeshVariant(int(sb.X), int(sb.Y))
	}

	a.lastRevision = msg.Revision
	return nil
}

// applyRegion применяет обновление прямоугольной области.
// Область обязана лежать в границах мира, а число блоков - совпадать
// с её площадью; иначе сообщение отклоняется целиком.
func (a *Applier) applyRegion(msg *protocol.BlockRegion) error {
	if err := a.checkRevision(msg.Revision); err != nil {
		return err
	}

	if !a.grid.InBounds(int(msg.X), int(msg.Y)) || !a.grid.InBounds(int(msg.X2), int(msg.Y2)) ||
		msg.X > msg.X2 || msg.Y > msg.Y2 {
		a.metrics.deltasRejected.WithLabelValues("out_of_range").Inc()
		return fmt.Errorf("%w: область (%d,%d)-(%d,%d)",
			world.ErrOutOfRange, msg.X, msg.Y, msg.X2, msg.Y2)
	}

	if len(msg.Blocks) != msg.Area() {
		a.metrics.deltasRejected.WithLabelValues("malformed").Inc()
		return fmt.Errorf("%w: область из %d блоков, получено %d",
			protocol.ErrMalformedPayload, msg.Area(), len(msg.Blocks))
	}

	// Тот же порядок строк, что и при кодировании: внешний цикл по Y
	sourceIndex := 0
	for y := int(msg.Y); y <= int(msg.Y2); y++ {
		for x := int(msg.X); x <= int(msg.X2); x++ {
			src := msg.Blocks[sourceIndex]
			current := a.grid.GetClamped(x, y)
			a.grid.Set(x, y, world.Block{
				Terrain:     src.Terrain,
				Wall:        src.Wall,
				Flags:       src.Flags,
				MeshVariant: current.MeshVariant,
			})
			sourceIndex++
		}
	}

	for y := int(msg.Y); y <= int(msg.Y2); y++ {
		for x := int(msg.X); x <= int(msg.X2); x++ {
			a.grid.RefreshMeshVariant(x, y)
		}
	}

	a.lastRevision = msg.Revision
	return nil
}

// applySnapshot применяет полный снапшот мира.
// Конверт проверяет кодек снапшотов; при любой ошибке сетка не меняется.
func (a *Applier) applySnapshot(msg *protocol.WorldSnapshot) error {
	if err := a.checkRevision(msg.Revision); err != nil {
		return err
	}

	if err := storage.DecodeSnapshot(msg.Data, a.grid); err != nil {
		a.metrics.deltasRejected.WithLabelValues("corrupt_snapshot").Inc()
		return err
	}

	a.lastRevision = msg.Revision
	return nil
}
