package storage

import (
	"errors"
	"testing"

	"github.com/annel0/ore-world/internal/world"
)

func newTestGrid(t *testing.T, width, height int) *world.Grid {
	t.Helper()

	g, err := world.NewGrid(width, height, 2, world.DefaultBlockDefs())
	if err != nil {
		t.Fatalf("Не удалось создать сетку: %v", err)
	}
	return g
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := newTestGrid(t, 16, 12)
	world.NewWorldGenerator(42).Generate(g)

	data, err := EncodeSnapshot(g)
	if err != nil {
		t.Fatalf("Ошибка кодирования снапшота: %v", err)
	}

	restored := newTestGrid(t, 16, 12)
	if err := DecodeSnapshot(data, restored); err != nil {
		t.Fatalf("Ошибка декодирования снапшота: %v", err)
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

func TestDecodeSnapshotRejectsBadMagic(t *testing.T) {
	g := newTestGrid(t, 8, 8)
	data, _ := EncodeSnapshot(g)
	data[0] = 'X'

	if err := DecodeSnapshot(data, g); !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("Неверная магическая метка должна отклоняться, получено %v", err)
	}
}

func TestDecodeSnapshotRejectsBadVersion(t *testing.T) {
	g := newTestGrid(t, 8, 8)
	data, _ := EncodeSnapshot(g)
	data[4] = 99

	if err := DecodeSnapshot(data, g); !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("Неподдерживаемая версия должна отклоняться, получено %v", err)
	}
}

func TestDecodeSnapshotRejectsSizeMismatch(t *testing.T) {
	g := newTestGrid(t, 8, 8)
	data, err := EncodeSnapshot(g)
	if err != nil {
		t.Fatalf("Ошибка кодирования: %v", err)
	}

	other := newTestGrid(t, 16, 8)
	if err := DecodeSnapshot(data, other); !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("Снапшот другого размера мира должен отклоняться, получено %v", err)
	}
}

func TestDecodeSnapshotRejectsTruncated(t *testing.T) {
	g := newTestGrid(t, 8, 8)

	if err := DecodeSnapshot([]byte("ORE"), g); !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("Усечённый конверт должен отклоняться, получено %v", err)
	}
}

func TestDecodeSnapshotRejectsGarbageBody(t *testing.T) {
	g := newTestGrid(t, 8, 8)
	data, _ := EncodeSnapshot(g)

	// Заголовок оставляем, тело заменяем мусором
	garbage := append(append([]byte(nil), data[:snapshotHeaderLen]...), 0xDE, 0xAD, 0xBE, 0xEF)

	if err := DecodeSnapshot(garbage, g); !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("Несжимаемый мусор должен отклоняться, получено %v", err)
	}
}

func TestDecodeSnapshotFailureKeepsGrid(t *testing.T) {
	g := newTestGrid(t, 8, 8)
	g.SetTerrain(3, 3, world.TerrainCopper)

	data, _ := EncodeSnapshot(g)
	data[0] = 'X'

	if err := DecodeSnapshot(data, g); err == nil {
		t.Fatal("Повреждённый снапшот должен отклоняться")
	}

	// Сетка после отклонённой загрузки не изменилась
	b, _ := g.Get(3, 3)
	if b.Terrain != world.TerrainCopper {
		t.Errorf("Отклонённая загрузка изменила сетку: террейн %d", b.Terrain)
	}
}
