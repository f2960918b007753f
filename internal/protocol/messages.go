package protocol

import "github.com/annel0/ore-world/internal/world"

// MsgType определяет тип сообщения репликации
type MsgType uint8

// Константы типов сообщений
const (
	MsgUnknown MsgType = 0

	// Блоки мира
	MsgSparseBlockUpdate MsgType = 10
	MsgBlockRegion       MsgType = 11
	MsgWorldSnapshot     MsgType = 12
)

// String возвращает имя типа сообщения
func (t MsgType) String() string {
	switch t {
	case MsgSparseBlockUpdate:
		return "SparseBlockUpdate"
	case MsgBlockRegion:
		return "BlockRegion"
	case MsgWorldSnapshot:
		return "WorldSnapshot"
	default:
		return "Unknown"
	}
}

// BlockState - состояние одного блока на проводе: террейн, стена и признаки.
// Производная подсказка отрисовки не передаётся, каждая сторона считает её сама.
type BlockState struct {
	Terrain world.TerrainID
	Wall    world.WallID
	Flags   world.BlockFlags
}

// SparseBlock - одна точечная запись разреженного обновления
type SparseBlock struct {
	X, Y  int32
	Block BlockState
}

// SparseBlockUpdate - список независимых точечных записей блоков.
// Приёмник перезаписывает каждый названный блок целиком значениями
// отправителя. Порядок записей не важен; если блок встречается дважды,
// побеждает последняя запись. Применение идемпотентно.
type SparseBlockUpdate struct {
	Revision uint64
	Blocks   []SparseBlock
}

// BlockRegion - прямоугольная область блоков (границы включительно) и
// плоский список состояний, по одному на блок области, в порядке строк
// (внешний цикл по Y, внутренний по X). Длина списка обязана равняться
// площади области.
type BlockRegion struct {
	Revision     uint64
	X, Y, X2, Y2 int32
	Blocks       []BlockState
}

// Area возвращает количество блоков в области
func (r *BlockRegion) Area() int {
	return int(r.X2-r.X+1) * int(r.Y2-r.Y+1)
}

// WorldSnapshot - полный снапшот мира для первичной синхронизации
// наблюдателя. Data - конверт кодека снапшотов (см. internal/storage).
type WorldSnapshot struct {
	Revision uint64
	Data     []byte
}
