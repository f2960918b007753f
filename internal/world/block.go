package world

// TerrainID представляет тип материала переднего слоя блока
type TerrainID uint8

// Константы типов террейна
const (
	TerrainNull    TerrainID = iota // 0 - пустой блок (воздух)
	TerrainDirt                     // 1 - земля
	TerrainStone                    // 2 - камень
	TerrainCopper                   // 3 - медная руда
	TerrainBedrock                  // 4 - неразрушаемое основание мира
)

// WallID представляет тип материала заднего слоя (стены) блока
type WallID uint8

// Константы типов стен
const (
	WallNull            WallID = iota // 0 - стены нет
	WallDirt                          // 1 - земляная стена
	WallDirtUnderground               // 2 - подземная земляная стена
)

// BlockFlags представляет битовый набор локальных признаков блока
type BlockFlags uint8

const (
	// FlagGrass - на поверхности блока растёт трава
	FlagGrass BlockFlags = 1 << iota
	// FlagSunlight - блок освещён солнцем (видим с поверхности)
	FlagSunlight
)

// Block представляет один блок мира: передний слой, стена и признаки.
// MeshVariant - производная подсказка для отрисовки переходов между
// соседними блоками; не участвует в инвариантах синхронизации.
type Block struct {
	Terrain     TerrainID
	Wall        WallID
	Flags       BlockFlags
	MeshVariant uint8
}

// HasFlag проверяет наличие признака у блока
func (b Block) HasFlag(flag BlockFlags) bool {
	return b.Flags&flag != 0
}

// SetFlag устанавливает признак, не затрагивая остальные биты
func (b *Block) SetFlag(flag BlockFlags) {
	b.Flags |= flag
}

// UnsetFlag снимает признак, не затрагивая остальные биты
func (b *Block) UnsetFlag(flag BlockFlags) {
	b.Flags &^= flag
}

// BlockCategory классифицирует тип террейна для игровой логики
type BlockCategory uint8

const (
	CategoryNull BlockCategory = iota
	CategoryDirt
	CategoryOre
)

// BlockDef описывает статические свойства типа террейна:
// имя текстуры, коллизию и категорию
type BlockDef struct {
	TextureName string
	Collides    bool
	Category    BlockCategory
}

// BlockDefs - таблица свойств типов террейна, строится один раз при
// старте и передаётся в Grid явно, без глобального изменяемого состояния
type BlockDefs map[TerrainID]BlockDef

// DefaultBlockDefs возвращает стандартную таблицу свойств блоков
func DefaultBlockDefs() BlockDefs {
	return BlockDefs{
		TerrainNull:    {TextureName: "", Collides: false, Category: CategoryNull},
		TerrainDirt:    {TextureName: "dirt", Collides: true, Category: CategoryDirt},
		TerrainStone:   {TextureName: "stone", Collides: true, Category: CategoryOre},
		TerrainCopper:  {TextureName: "copper", Collides: true, Category: CategoryOre},
		TerrainBedrock: {TextureName: "bedrock", Collides: true, Category: CategoryNull},
	}
}

// IsValidTerrain проверяет, описан ли тип террейна в таблице
func (defs BlockDefs) IsValidTerrain(id TerrainID) bool {
	_, exists := defs[id]
	return exists
}

// Get возвращает свойства типа террейна
func (defs BlockDefs) Get(id TerrainID) (BlockDef, bool) {
	def, exists := defs[id]
	return def, exists
}
