package ecs

import (
	"errors"
	"fmt"
)

// ErrNotAttached возвращается при запросе компонента, которого нет у сущности
var ErrNotAttached = errors.New("компонент не прикреплён к сущности")

// TextureResolver разрешает имя текстуры в локальную ручку атласа.
// Устанавливается только на стороне наблюдателя: серверу ручки не нужны.
type TextureResolver func(textureName string) uint32

// Registry хранит компоненты сущностей и реализует их клонирование.
// Принадлежит ровно одному экземпляру мира; все мутации выполняет
// единственный тик-поток этого мира, поэтому мьютекс не нужен.
type Registry struct {
	arena    arena
	resolver TextureResolver
}

// NewRegistry создаёт пустой реестр компонентов
func NewRegistry() *Registry {
	return &Registry{}
}

// SetTextureResolver задаёт разрешение текстур по имени.
// Вызывается на стороне наблюдателя до первого клонирования.
func (r *Registry) SetTextureResolver(resolver TextureResolver) {
	r.resolver = resolver
}

// Create выделяет новую сущность без компонентов
func (r *Registry) Create() Entity {
	return r.arena.create()
}

// Destroy уничтожает сущность и все её компоненты.
// Все ранее выданные ручки этой сущности становятся устаревшими.
func (r *Registry) Destroy(e Entity) {
	r.arena.destroy(e)
}

// Alive проверяет, что ручка указывает на живую сущность
func (r *Registry) Alive(e Entity) bool {
	return r.arena.lookup(e) != nil
}

// Attach прикрепляет компонент указанного типа к сущности.
// Повторный вызов для уже прикреплённого типа возвращает существующую
// запись без изменений - это позволяет повторять код настройки сущности.
// Обращение по устаревшей ручке - ошибка программиста.
func (r *Registry) Attach(e Entity, kind Kind) Record {
	s := r.mustLookup(e)

	if existing := s.records[kind]; existing != nil {
		return existing
	}

	record := kindTable[kind].create()
	s.records[kind] = record
	return record
}

// MustAttach прикрепляет компонент и паникует, если тип уже прикреплён.
// Для мест, где повторное прикрепление означает ошибку в логике вызова.
func (r *Registry) MustAttach(e Entity, kind Kind) Record {
	s := r.mustLookup(e)

	if s.records[kind] != nil {
		panic(fmt.Sprintf("компонент %s уже прикреплён к %s", kind, e))
	}

	record := kindTable[kind].create()
	s.records[kind] = record
	return record
}

// Has проверяет, прикреплён ли к сущности компонент указанного типа
func (r *Registry) Has(e Entity, kind Kind) bool {
	s := r.arena.lookup(e)
	return s != nil && s.records[kind] != nil
}

// Get возвращает компонент сущности.
// Возвращает ErrNotAttached, если компонент не прикреплён.
func (r *Registry) Get(e Entity, kind Kind) (Record, error) {
	s := r.mustLookup(e)

	record := s.records[kind]
	if record == nil {
		return nil, fmt.Errorf("%w: %s у %s", ErrNotAttached, kind, e)
	}
	return record, nil
}

// Detach удаляет компонент указанного типа у сущности
func (r *Registry) Detach(e Entity, kind Kind) {
	s := r.mustLookup(e)
	s.records[kind] = nil
}

// Kinds возвращает теги всех компонентов, прикреплённых к сущности
func (r *Registry) Kinds(e Entity) []Kind {
	s := r.mustLookup(e)

	var kinds []Kind
	for k := Kind(0); k < KindCount; k++ {
		if s.records[k] != nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Each вызывает fn для каждой живой сущности, несущей все указанные типы.
// Используется внешними системами для перечисления сущностей по набору
// компонентов.
func (r *Registry) Each(fn func(Entity), kinds ...Kind) {
	for i := range r.arena.slots {
		s := &r.arena.slots[i]
		if !s.alive {
			continue
		}

		carriesAll := true
		for _, k := range kinds {
			if s.records[k] == nil {
				carriesAll = false
				break
			}
		}
		if carriesAll {
			fn(Entity{Index: uint32(i), Generation: s.generation})
		}
	}
}

// CloneEntity создаёт новую сущность и для каждого типа компонента,
// который несёт источник, прикрепляет такой же и глубоко копирует поля.
// После клонирования записи не разделяют изменяемого состояния.
//
// Сущность с компонентом игрока клонировать нельзя: дублирование
// идентичности игрока - фатальная ошибка логики, паникуем сразу.
//
// На стороне наблюдателя кешированная ручка текстуры спрайта разрешается
// заново по имени: сырое значение с сервера непереносимо между процессами.
func (r *Registry) CloneEntity(source Entity) Entity {
	if r.mustLookup(source).records[KindPlayer] != nil {
		panic(fmt.Sprintf("клонирование сущности %s с компонентом игрока", source))
	}

	// Сначала создаём слот: рост арены может переместить весь массив
	// слотов, поэтому указатели берём только после create.
	cloned := r.arena.create()
	src := r.arena.lookup(source)
	dst := r.arena.lookup(cloned)

	for k := Kind(0); k < KindCount; k++ {
		sourceRecord := src.records[k]
		if sourceRecord == nil {
			continue
		}

		record := kindTable[k].create()
		record.CopyFrom(sourceRecord)
		dst.records[k] = record
	}

	if sprite, ok := dst.records[KindSprite].(*SpriteComponent); ok && r.resolver != nil {
		sprite.TextureHandle = r.resolver(sprite.TextureName)
	}

	return cloned
}

// mustLookup возвращает слот живой сущности; устаревшая ручка - паника
func (r *Registry) mustLookup(e Entity) *slot {
	s := r.arena.lookup(e)
	if s == nil {
		panic(fmt.Sprintf("обращение по устаревшей ручке %s", e))
	}
	return s
}
