package world

import "sort"

// TextureAtlas выдаёт локальные ручки текстур по имени.
// Ручка - индекс в атласе процесса-наблюдателя; её сырое значение
// непереносимо между процессами, поэтому при клонировании сущностей
// с сервера ручки всегда разрешаются заново по имени.
type TextureAtlas struct {
	handles map[string]uint32
}

// NewTextureAtlas строит атлас из таблицы свойств блоков.
// Имена сортируются, чтобы раскладка была детерминированной.
func NewTextureAtlas(defs BlockDefs) *TextureAtlas {
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		if def.TextureName != "" {
			names = append(names, def.TextureName)
		}
	}
	sort.Strings(names)

	handles := make(map[string]uint32, len(names))
	for i, name := range names {
		handles[name] = uint32(i + 1) // 0 зарезервирован за "нет текстуры"
	}

	return &TextureAtlas{handles: handles}
}

// Resolve возвращает ручку текстуры по имени; 0 - текстура не найдена
func (a *TextureAtlas) Resolve(name string) uint32 {
	return a.handles[name]
}
