package ecs

import "fmt"

// Entity представляет непрозрачный идентификатор сущности.
// Сущность не имеет собственных полей: это ручка, под которой в реестре
// хранятся типизированные компоненты. Поколение защищает от использования
// устаревшей ручки после уничтожения сущности и переиспользования слота.
type Entity struct {
	Index      uint32
	Generation uint32
}

// String возвращает строковое представление ручки сущности
func (e Entity) String() string {
	return fmt.Sprintf("entity(%d:%d)", e.Index, e.Generation)
}

// slot хранит состояние одной ячейки арены сущностей
type slot struct {
	generation uint32
	alive      bool
	records    [KindCount]Record
}

// arena управляет слотами сущностей с переиспользованием освобождённых
// индексов и проверкой поколений
type arena struct {
	slots []slot
	free  []uint32
}

// create выделяет новую ручку сущности
func (a *arena) create() Entity {
	if n := len(a.free); n > 0 {
		index := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[index].alive = true
		return Entity{Index: index, Generation: a.slots[index].generation}
	}

	a.slots = append(a.slots, slot{alive: true})
	return Entity{Index: uint32(len(a.slots) - 1)}
}

// destroy освобождает слот и увеличивает поколение,
// делая все выданные ручки этого слота устаревшими
func (a *arena) destroy(e Entity) {
	s := a.lookup(e)
	if s == nil {
		return
	}

	s.alive = false
	s.generation++
	s.records = [KindCount]Record{}
	a.free = append(a.free, e.Index)
}

// lookup возвращает слот живой сущности или nil для устаревшей ручки
func (a *arena) lookup(e Entity) *slot {
	if int(e.Index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[e.Index]
	if !s.alive || s.generation != e.Generation {
		return nil
	}
	return s
}
