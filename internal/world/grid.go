package world

import (
	"errors"
	"fmt"

	"github.com/annel0/ore-world/internal/vec"
)

// ErrOutOfRange возвращается при обращении к координатам вне границ мира
var ErrOutOfRange = errors.New("координаты вне границ мира")

// Grid представляет плотное хранилище блоков мира фиксированного размера.
// Все блоки всегда находятся в определённом состоянии: конструктор заполняет
// массив блоками по умолчанию, частично неинициализированной сетки не бывает.
//
// Линейный индекс блока: x*Height + y. Доступ не защищён мьютексом:
// все мутации выполняет единственный тик-поток WorldManager.
type Grid struct {
	width    int
	height   int
	seaLevel int
	defs     BlockDefs
	blocks   []Block
}

// NewGrid создаёт и инициализирует сетку мира указанного размера.
// Таблица свойств блоков передаётся явно и далее не меняется.
func NewGrid(width, height, seaLevel int, defs BlockDefs) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("недопустимый размер мира %dx%d", width, height)
	}
	if seaLevel < 0 || seaLevel >= height {
		return nil, fmt.Errorf("уровень моря %d вне диапазона [0, %d)", seaLevel, height)
	}

	g := &Grid{
		width:    width,
		height:   height,
		seaLevel: seaLevel,
		defs:     defs,
	}
	g.initialize()
	return g, nil
}

// initialize заполняет каждый блок значением по умолчанию
// (пустой террейн, без стены, без признаков)
func (g *Grid) initialize() {
	g.blocks = make([]Block, g.width*g.height)
}

// Width возвращает ширину мира в блоках
func (g *Grid) Width() int { return g.width }

// Height возвращает высоту мира в блоках
func (g *Grid) Height() int { return g.height }

// SeaLevel возвращает строку уровня моря: выше неё генерация оставляет небо
func (g *Grid) SeaLevel() int { return g.seaLevel }

// Defs возвращает таблицу свойств типов террейна
func (g *Grid) Defs() BlockDefs { return g.defs }

// InBounds проверяет, что координаты лежат внутри мира
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

func (g *Grid) index(x, y int) int {
	return x*g.height + y
}

// Get возвращает блок по координатам.
// Возвращает ErrOutOfRange, если координаты вне границ мира.
func (g *Grid) Get(x, y int) (Block, error) {
	if !g.InBounds(x, y) {
		return Block{}, fmt.Errorf("%w: %s", ErrOutOfRange, vec.Vec2{X: x, Y: y})
	}
	return g.blocks[g.index(x, y)], nil
}

// GetClamped возвращает блок, предварительно прижав координаты к границам
// мира. Используется кодом осмотра соседей, который может заглядывать
// за край.
func (g *Grid) GetClamped(x, y int) Block {
	x = vec.Clamp(x, 0, g.width-1)
	y = vec.Clamp(y, 0, g.height-1)
	return g.blocks[g.index(x, y)]
}

// at возвращает указатель на блок; выход за границы - ошибка программиста
func (g *Grid) at(x, y int) *Block {
	if !g.InBounds(x, y) {
		panic(fmt.Sprintf("доступ к блоку вне границ мира: %s", vec.Vec2{X: x, Y: y}))
	}
	return &g.blocks[g.index(x, y)]
}

// SetTerrain устанавливает тип террейна блока
func (g *Grid) SetTerrain(x, y int, t TerrainID) {
	g.at(x, y).Terrain = t
}

// SetWall устанавливает тип стены блока
func (g *Grid) SetWall(x, y int, w WallID) {
	g.at(x, y).Wall = w
}

// SetFlag устанавливает признак блока
func (g *Grid) SetFlag(x, y int, flag BlockFlags) {
	g.at(x, y).SetFlag(flag)
}

// ClearFlag снимает признак блока
func (g *Grid) ClearFlag(x, y int, flag BlockFlags) {
	g.at(x, y).UnsetFlag(flag)
}

// HasFlag проверяет наличие признака блока
func (g *Grid) HasFlag(x, y int, flag BlockFlags) bool {
	return g.at(x, y).HasFlag(flag)
}

// Set записывает блок целиком (террейн, стена и признаки одной операцией).
// Используется приёмником репликации: значения отправителя перезаписывают
// блок целиком, без слияния по полям.
func (g *Grid) Set(x, y int, b Block) {
	*g.at(x, y) = b
}

// PlaceTerrain пытается разместить террейн в указанном блоке.
// Успешно только если блок сейчас пуст; при успехе дополнительно снимает
// признак травы с блока непосредственно снизу - размещение нарушает
// поверхность. Иначе возвращает false без каких-либо побочных эффектов.
func (g *Grid) PlaceTerrain(x, y int, t TerrainID) bool {
	block := g.at(x, y)
	if block.Terrain != TerrainNull {
		return false
	}

	block.Terrain = t

	below := vec.Vec2{X: x, Y: y}.South()
	if g.InBounds(below.X, below.Y) {
		bottom := g.at(below.X, below.Y)
		if bottom.HasFlag(FlagGrass) {
			bottom.UnsetFlag(FlagGrass)
		}
	}

	return true
}

// ComputeMeshVariant вычисляет подсказку отрисовки по маске соседей.
// Соседи за краем мира читаются через GetClamped. Значение не участвует
// в синхронизации и пересчитывается локально каждой стороной.
func (g *Grid) ComputeMeshVariant(x, y int) uint8 {
	var mask uint8
	if g.GetClamped(x, y-1).Terrain != TerrainNull {
		mask |= 1 // север
	}
	if g.GetClamped(x+1, y).Terrain != TerrainNull {
		mask |= 2 // восток
	}
	if g.GetClamped(x, y+1).Terrain != TerrainNull {
		mask |= 4 // юг
	}
	if g.GetClamped(x-1, y).Terrain != TerrainNull {
		mask |= 8 // запад
	}
	return mask
}

// RefreshMeshVariant пересчитывает и сохраняет подсказку отрисовки блока
func (g *Grid) RefreshMeshVariant(x, y int) {
	g.at(x, y).MeshVariant = g.ComputeMeshVariant(x, y)
}

// TerrainPlane возвращает срез типов террейна всех блоков в порядке
// линейного индекса (внешний цикл по X, внутренний по Y). Порядок обхода
// общий для сохранения и загрузки снапшота.
func (g *Grid) TerrainPlane() []TerrainID {
	plane := make([]TerrainID, len(g.blocks))
	for i := range g.blocks {
		plane[i] = g.blocks[i].Terrain
	}
	return plane
}

// ApplyTerrainPlane записывает типы террейна всех блоков в том же порядке
// обхода, что и TerrainPlane. Длина среза должна совпадать с размером мира.
func (g *Grid) ApplyTerrainPlane(plane []TerrainID) error {
	if len(plane) != len(g.blocks) {
		return fmt.Errorf("размер плоскости террейна %d не совпадает с размером мира %d",
			len(plane), len(g.blocks))
	}
	for i := range g.blocks {
		g.blocks[i].Terrain = plane[i]
	}
	return nil
}
