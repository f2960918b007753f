package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/annel0/ore-world/internal/world"
	"github.com/dgraph-io/badger/v3"
)

// Ключи хранилища
const (
	keySnapshot = "world:snapshot"
	keyMeta     = "world:meta"
)

// WorldMeta - метаданные сохранённого мира
type WorldMeta struct {
	Seed     int64     `json:"seed"`
	Revision uint64    `json:"revision"`
	SavedAt  time.Time `json:"saved_at"`
}

// WorldStorage представляет собой хранилище снапшотов мира на BadgerDB.
// Сохраняется только авторитетный мир; наблюдатели получают состояние
// по протоколу репликации.
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
}

// NewWorldStorage создает новое хранилище мира
func NewWorldStorage(dataPath string) (*WorldStorage, error) {
	dbPath := filepath.Join(dataPath, "world")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &WorldStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
	}, nil
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}

	ws.isReady = false
	return ws.db.Close()
}

// SaveWorld кодирует сетку в конверт снапшота и сохраняет его вместе
// с метаданными одной транзакцией
func (ws *WorldStorage) SaveWorld(g *world.Grid, meta WorldMeta) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	snapshot, err := EncodeSnapshot(g)
	if err != nil {
		return fmt.Errorf("ошибка кодирования снапшота: %w", err)
	}

	metaData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}

	err = ws.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keySnapshot), snapshot); err != nil {
			return err
		}
		return txn.Set([]byte(keyMeta), metaData)
	})
	if err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	return nil
}

// LoadWorld загружает снапшот из хранилища и применяет его к сетке.
// Если сохранённого мира нет, возвращает (nil, badger.ErrKeyNotFound)
// через errors.Is; сетка при любой ошибке остаётся нетронутой.
func (ws *WorldStorage) LoadWorld(g *world.Grid) (*WorldMeta, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var snapshot []byte
	var meta WorldMeta

	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySnapshot))
		if err != nil {
			return err
		}
		snapshot, err = item.ValueCopy(nil)
		if err != nil {
			return err
		}

		item, err = txn.Get([]byte(keyMeta))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	if err := DecodeSnapshot(snapshot, g); err != nil {
		return nil, err
	}

	return &meta, nil
}

// HasWorld проверяет, есть ли в хранилище сохранённый мир
func (ws *WorldStorage) HasWorld() (bool, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return false, fmt.Errorf("хранилище не готово")
	}

	err := ws.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keySnapshot))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
