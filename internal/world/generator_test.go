package world

import "testing"

func generateTestWorld(t *testing.T, seed int64) *Grid {
	t.Helper()

	g := newTestGrid(t, 64, 48, 10)
	NewWorldGenerator(seed).Generate(g)
	return g
}

func TestGenerateDeterministic(t *testing.T) {
	first := generateTestWorld(t, 42)
	second := generateTestWorld(t, 42)

	for x := 0; x < first.Width(); x++ {
		for y := 0; y < first.Height(); y++ {
			a, _ := first.Get(x, y)
			b, _ := second.Get(x, y)
			if a.Terrain != b.Terrain || a.Wall != b.Wall || a.Flags != b.Flags {
				t.Fatalf("Генерация с одинаковым сидом разошлась в (%d,%d): %+v против %+v",
					x, y, a, b)
			}
		}
	}
}

func TestGenerateDifferentSeeds(t *testing.T) {
	first := generateTestWorld(t, 1)
	second := generateTestWorld(t, 2)

	differs := false
	for x := 0; x < first.Width() && !differs; x++ {
		for y := 0; y < first.Height(); y++ {
			a, _ := first.Get(x, y)
			b, _ := second.Get(x, y)
			if a.Terrain != b.Terrain {
				differs = true
				break
			}
		}
	}
	if !differs {
		t.Error("Разные сиды должны давать разный ландшафт")
	}
}

func TestGenerateSkyAboveSeaLevel(t *testing.T) {
	g := generateTestWorld(t, 7)

	for x := 0; x < g.Width(); x++ {
		for y := 0; y <= g.SeaLevel(); y++ {
			b, _ := g.Get(x, y)
			if b.Terrain != TerrainNull {
				t.Fatalf("Блок (%d,%d) на уровне моря и выше должен оставаться небом, получен террейн %d",
					x, y, b.Terrain)
			}
			if b.Wall != WallNull {
				t.Fatalf("Блок (%d,%d) выше уровня моря не должен иметь стены", x, y)
			}
		}
	}
}

func TestGenerateBedrockBottomRow(t *testing.T) {
	g := generateTestWorld(t, 7)

	bottom := g.Height() - 1
	for x := 0; x < g.Width(); x++ {
		b, _ := g.Get(x, bottom)
		if b.Terrain != TerrainBedrock {
			t.Fatalf("Нижний ряд колонки %d должен быть основанием, получен террейн %d", x, b.Terrain)
		}
	}
}

func TestGenerateUndergroundWalls(t *testing.T) {
	g := generateTestWorld(t, 7)

	for x := 0; x < g.Width(); x++ {
		for y := g.SeaLevel() + 1; y < g.Height(); y++ {
			b, _ := g.Get(x, y)
			if b.Wall != WallDirtUnderground {
				t.Fatalf("Блок (%d,%d) ниже уровня моря должен иметь подземную стену, получено %d",
					x, y, b.Wall)
			}
		}
	}
}

func TestGenerateGrassInvariant(t *testing.T) {
	g := generateTestWorld(t, 99)

	grassCount := 0
	for x := 0; x < g.Width(); x++ {
		for y := 0; y < g.Height(); y++ {
			b, _ := g.Get(x, y)
			if !b.HasFlag(FlagGrass) {
				continue
			}
			grassCount++

			if b.Terrain != TerrainDirt {
				t.Fatalf("Трава на (%d,%d) растёт не на земле: террейн %d", x, y, b.Terrain)
			}
			if top := g.GetClamped(x, y-1); top.Terrain != TerrainNull {
				t.Fatalf("Над травой на (%d,%d) должно быть пусто, получен террейн %d",
					x, y, top.Terrain)
			}
		}
	}

	if grassCount == 0 {
		t.Error("Сгенерированный мир должен иметь хотя бы один травяной блок")
	}
}

func TestGenerateOreUpgradesOnlyDirt(t *testing.T) {
	g := generateTestWorld(t, 123)

	// Руды и камень появляются только ниже уровня моря
	hasOre := false
	for x := 0; x < g.Width(); x++ {
		for y := g.SeaLevel() + 1; y < g.Height(); y++ {
			b, _ := g.Get(x, y)
			if b.Terrain == TerrainStone || b.Terrain == TerrainCopper {
				hasOre = true
			}
		}
	}
	if !hasOre {
		t.Error("В сгенерированном мире должны быть каменные или медные жилы")
	}
}
