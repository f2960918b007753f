package ecs

import "fmt"

// Kind представляет тег типа компонента.
// Список типов закрыт и перечислен: обход "всех компонентов сущности"
// идёт по таблице тегов, без рефлексии.
type Kind uint8

// Константы тегов компонентов
const (
	KindAir Kind = iota
	KindAirGenerator
	KindBlockItem
	KindControllable
	KindHealth
	KindItem
	KindJump
	KindLight
	KindPlayer
	KindPowerConsumer
	KindPowerDevice
	KindPowerGenerator
	KindSprite
	KindTool
	KindVelocity

	KindCount // всегда последний: количество типов
)

// String возвращает имя тега компонента
func (k Kind) String() string {
	if int(k) < len(kindTable) {
		return kindTable[k].name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Record представляет типизированный компонент, прикреплённый к сущности.
// Каждый тип компонента обязан поддерживать две операции:
// глубокое копирование из другой записи того же типа и проверку
// объединяемости (складывание в стопку для предметов).
type Record interface {
	// Kind возвращает тег типа компонента
	Kind() Kind

	// CopyFrom перезаписывает поля записи глубокой копией полей other.
	// Допустим только тот же тип; после копирования записи не разделяют
	// изменяемых структур.
	CopyFrom(other Record)

	// CanCombineWith возвращает true, если две записи одного типа
	// представляют объединяемые экземпляры. Типы без семантики
	// объединения всегда возвращают false.
	CanCombineWith(other Record) bool
}

// kindInfo описывает один тег в таблице типов: имя и фабрику записи
type kindInfo struct {
	name   string
	create func() Record
}

// kindTable - таблица тегов компонентов. Строится один раз и не меняется.
var kindTable = [KindCount]kindInfo{
	KindAir:            {"air", func() Record { return &AirComponent{} }},
	KindAirGenerator:   {"air_generator", func() Record { return &AirGeneratorComponent{} }},
	KindBlockItem:      {"block_item", func() Record { return &BlockItemComponent{} }},
	KindControllable:   {"controllable", func() Record { return &ControllableComponent{} }},
	KindHealth:         {"health", func() Record { return &HealthComponent{} }},
	KindItem:           {"item", func() Record { return &ItemComponent{} }},
	KindJump:           {"jump", func() Record { return &JumpComponent{} }},
	KindLight:          {"light", func() Record { return &LightComponent{} }},
	KindPlayer:         {"player", func() Record { return &PlayerComponent{} }},
	KindPowerConsumer:  {"power_consumer", func() Record { return &PowerConsumerComponent{} }},
	KindPowerDevice:    {"power_device", func() Record { return &PowerDeviceComponent{} }},
	KindPowerGenerator: {"power_generator", func() Record { return &PowerGeneratorComponent{} }},
	KindSprite:         {"sprite", func() Record { return &SpriteComponent{} }},
	KindTool:           {"tool", func() Record { return &ToolComponent{} }},
	KindVelocity:       {"velocity", func() Record { return &VelocityComponent{} }},
}

// mustSameKind проверяет совпадение типов при копировании
func mustSameKind(dst, src Record) {
	if dst.Kind() != src.Kind() {
		panic(fmt.Sprintf("копирование компонента %s из компонента %s", dst.Kind(), src.Kind()))
	}
}

// AirComponent - запас воздуха сущности
type AirComponent struct {
	Air    int32
	MaxAir int32
}

func (c *AirComponent) Kind() Kind { return KindAir }

func (c *AirComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*AirComponent)
}

func (c *AirComponent) CanCombineWith(other Record) bool { return false }

// AirGeneratorComponent - генератор воздуха
type AirGeneratorComponent struct {
	AirOutputRate int32
}

func (c *AirGeneratorComponent) Kind() Kind { return KindAirGenerator }

func (c *AirGeneratorComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*AirGeneratorComponent)
}

func (c *AirGeneratorComponent) CanCombineWith(other Record) bool { return false }

// BlockItemComponent - предмет-блок, который можно разместить в мире.
// BlockType - тип террейна (см. internal/world); хранится сырым числом,
// чтобы реестр компонентов не зависел от пакета мира.
type BlockItemComponent struct {
	BlockType uint8
}

func (c *BlockItemComponent) Kind() Kind { return KindBlockItem }

func (c *BlockItemComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*BlockItemComponent)
}

// CanCombineWith: предметы-блоки одного типа террейна складываются
func (c *BlockItemComponent) CanCombineWith(other Record) bool {
	src, ok := other.(*BlockItemComponent)
	return ok && src.BlockType == c.BlockType
}

// ControllableComponent - сущность управляется вводом
type ControllableComponent struct {
	Enabled bool
}

func (c *ControllableComponent) Kind() Kind { return KindControllable }

func (c *ControllableComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*ControllableComponent)
}

func (c *ControllableComponent) CanCombineWith(other Record) bool { return false }

// HealthComponent - здоровье сущности
type HealthComponent struct {
	Health    int32
	MaxHealth int32
}

func (c *HealthComponent) Kind() Kind { return KindHealth }

func (c *HealthComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*HealthComponent)
}

func (c *HealthComponent) CanCombineWith(other Record) bool { return false }

// ItemState - состояние предмета в мире
type ItemState uint8

const (
	ItemStateDroppedInWorld ItemState = iota
	ItemStateInInventory
)

// ItemComponent - предмет со стопкой
type ItemComponent struct {
	DefinitionID string
	StackSize    int32
	MaxStackSize int32
	State        ItemState
}

func (c *ItemComponent) Kind() Kind { return KindItem }

func (c *ItemComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*ItemComponent)
}

// CanCombineWith: предметы с одинаковым определением складываются в стопку
func (c *ItemComponent) CanCombineWith(other Record) bool {
	src, ok := other.(*ItemComponent)
	return ok && src.DefinitionID == c.DefinitionID
}

// JumpComponent - параметры прыжка
type JumpComponent struct {
	JumpVelocity float64
	CanJump      bool
}

func (c *JumpComponent) Kind() Kind { return KindJump }

func (c *JumpComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*JumpComponent)
}

func (c *JumpComponent) CanCombineWith(other Record) bool { return false }

// LightComponent - источник света
type LightComponent struct {
	Radius int32
	On     bool
}

func (c *LightComponent) Kind() Kind { return KindLight }

func (c *LightComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*LightComponent)
}

func (c *LightComponent) CanCombineWith(other Record) bool { return false }

// PlayerComponent - принадлежность сущности конкретному игроку.
// Никогда не клонируется обобщённым путём: дублирование идентичности
// игрока - фатальная ошибка логики.
type PlayerComponent struct {
	ConnectionID int32
	Name         string
}

func (c *PlayerComponent) Kind() Kind { return KindPlayer }

func (c *PlayerComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*PlayerComponent)
}

func (c *PlayerComponent) CanCombineWith(other Record) bool { return false }

// PowerConsumerComponent - потребитель энергии
type PowerConsumerComponent struct {
	PowerDemandRate int32
}

func (c *PowerConsumerComponent) Kind() Kind { return KindPowerConsumer }

func (c *PowerConsumerComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*PowerConsumerComponent)
}

func (c *PowerConsumerComponent) CanCombineWith(other Record) bool { return false }

// PowerDeviceComponent - устройство, подключаемое к энергосети
type PowerDeviceComponent struct {
	Connected bool
}

func (c *PowerDeviceComponent) Kind() Kind { return KindPowerDevice }

func (c *PowerDeviceComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*PowerDeviceComponent)
}

func (c *PowerDeviceComponent) CanCombineWith(other Record) bool { return false }

// PowerGeneratorComponent - генератор энергии
type PowerGeneratorComponent struct {
	PowerSupplyRate int32
}

func (c *PowerGeneratorComponent) Kind() Kind { return KindPowerGenerator }

func (c *PowerGeneratorComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*PowerGeneratorComponent)
}

func (c *PowerGeneratorComponent) CanCombineWith(other Record) bool { return false }

// SpriteComponent - отображение сущности.
// TextureHandle - кешированная производная ручка текстуры; её сырое
// значение непереносимо между процессами и на стороне наблюдателя
// разрешается заново по имени (см. Registry.CloneEntity).
type SpriteComponent struct {
	TextureName   string
	SizeX, SizeY  float64
	NoClip        bool
	TextureHandle uint32
}

func (c *SpriteComponent) Kind() Kind { return KindSprite }

func (c *SpriteComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*SpriteComponent)
}

func (c *SpriteComponent) CanCombineWith(other Record) bool { return false }

// ToolComponent - инструмент
type ToolComponent struct {
	ToolType uint8
	Material uint8
}

func (c *ToolComponent) Kind() Kind { return KindTool }

func (c *ToolComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*ToolComponent)
}

func (c *ToolComponent) CanCombineWith(other Record) bool { return false }

// VelocityComponent - скорость сущности
type VelocityComponent struct {
	X, Y float64
}

func (c *VelocityComponent) Kind() Kind { return KindVelocity }

func (c *VelocityComponent) CopyFrom(other Record) {
	mustSameKind(c, other)
	*c = *other.(*VelocityComponent)
}

func (c *VelocityComponent) CanCombineWith(other Record) bool { return false }
