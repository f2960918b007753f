package storage

import (
	"os"
	"testing"
	"time"

	"github.com/annel0/ore-world/internal/world"
)

func setupTestStorage(t *testing.T) (*WorldStorage, string) {
	// Создаем временную директорию для тестов
	tempDir, err := os.MkdirTemp("", "world-storage-test")
	if err != nil {
		t.Fatalf("Не удалось создать временную директорию: %v", err)
	}

	// Инициализируем хранилище
	storage, err := NewWorldStorage(tempDir)
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Не удалось создать хранилище: %v", err)
	}

	return storage, tempDir
}

func cleanupTestStorage(storage *WorldStorage, tempDir string) {
	if storage != nil {
		storage.Close()
	}
	if tempDir != "" {
		os.RemoveAll(tempDir)
	}
}

func TestSaveAndLoadWorld(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	g := newTestGrid(t, 16, 12)
	world.NewWorldGenerator(7).Generate(g)

	meta := WorldMeta{Seed: 7, Revision: 13, SavedAt: time.Now().UTC()}
	if err := storage.SaveWorld(g, meta); err != nil {
		t.Fatalf("Ошибка сохранения мира: %v", err)
	}

	// Загружаем в свежую сетку того же размера
	restored := newTestGrid(t, 16, 12)
	loaded, err := storage.LoadWorld(restored)
	if err != nil {
		t.Fatalf("Ошибка загрузки мира: %v", err)
	}

	if loaded.Seed != 7 {
		t.Errorf("Ожидался сид 7, получен %d", loaded.Seed)
	}
	if loaded.Revision != 13 {
		t.Errorf("Ожидалась ревизия 13, получена %d", loaded.Revision)
	}

	for x := 0; x < g.Width(); x++ {
		for y := 0; y < g.Height(); y++ {
			want, _ := g.Get(x, y)
			got, _ := restored.Get(x, y)
			if got.Terrain != want.Terrain {
				t.Errorf("Террейн (%d,%d): ожидалось %d, получено %d",
					x, y, want.Terrain, got.Terrain)
			}
		}
	}
}

func TestHasWorld(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	has, err := storage.HasWorld()
	if err != nil {
		t.Fatalf("Ошибка проверки наличия мира: %v", err)
	}
	if has {
		t.Error("Пустое хранилище не должно содержать мир")
	}

	g := newTestGrid(t, 8, 8)
	if err := storage.SaveWorld(g, WorldMeta{Seed: 1}); err != nil {
		t.Fatalf("Ошибка сохранения мира: %v", err)
	}

	has, err = storage.HasWorld()
	if err != nil {
		t.Fatalf("Ошибка проверки наличия мира: %v", err)
	}
	if !has {
		t.Error("После сохранения мир должен быть в хранилище")
	}
}

func TestLoadWorldMissing(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	g := newTestGrid(t, 8, 8)
	if _, err := storage.LoadWorld(g); err == nil {
		t.Error("Загрузка из пустого хранилища должна возвращать ошибку")
	}
}

func TestSaveOverwritesPrevious(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(storage, tempDir)

	g := newTestGrid(t, 8, 8)
	if err := storage.SaveWorld(g, WorldMeta{Seed: 1, Revision: 1}); err != nil {
		t.Fatalf("Ошибка первого сохранения: %v", err)
	}

	g.SetTerrain(4, 4, world.TerrainStone)
	if err := storage.SaveWorld(g, WorldMeta{Seed: 1, Revision: 2}); err != nil {
		t.Fatalf("Ошибка второго сохранения: %v", err)
	}

	restored := newTestGrid(t, 8, 8)
	meta, err := storage.LoadWorld(restored)
	if err != nil {
		t.Fatalf("Ошибка загрузки: %v", err)
	}

	if meta.Revision != 2 {
		t.Errorf("Ожидалась ревизия последнего сохранения 2, получена %d", meta.Revision)
	}
	if b, _ := restored.Get(4, 4); b.Terrain != world.TerrainStone {
		t.Errorf("Ожидался камень из последнего сохранения, получен террейн %d", b.Terrain)
	}
}

func TestClosedStorageRejectsOperations(t *testing.T) {
	storage, tempDir := setupTestStorage(t)
	defer cleanupTestStorage(nil, tempDir)

	if err := storage.Close(); err != nil {
		t.Fatalf("Ошибка закрытия хранилища: %v", err)
	}

	g := newTestGrid(t, 8, 8)
	if err := storage.SaveWorld(g, WorldMeta{}); err == nil {
		t.Error("Сохранение в закрытое хранилище должно возвращать ошибку")
	}
	if _, err := storage.LoadWorld(g); err == nil {
		t.Error("Загрузка из закрытого хранилища должна возвращать ошибку")
	}

	// Повторное закрытие безопасно
	if err := storage.Close(); err != nil {
		t.Errorf("Повторное закрытие не должно возвращать ошибку: %v", err)
	}
}
