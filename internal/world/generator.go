package world

import (
	"math/rand"

	"github.com/aquilax/go-perlin"
)

// Параметры шума рудных жил
const (
	oreNoiseAlpha   = 2.0
	oreNoiseBeta    = 2.0
	oreNoiseOctaves = 3
	oreNoiseScale   = 0.05

	// Пороги значения шума для превращения земли в камень/руду
	stoneVeinThreshold  = 0.62
	copperVeinThreshold = 0.78
)

// WorldGenerator генерирует начальный ландшафт мира.
// Запускается один раз при создании мира и только на авторитетной стороне.
// Детерминирован: одинаковый сид и источник случайности дают одинаковый мир.
type WorldGenerator struct {
	Seed int64

	rng   *rand.Rand
	noise *perlin.Perlin
}

// NewWorldGenerator создаёт генератор мира с указанным сидом
func NewWorldGenerator(seed int64) *WorldGenerator {
	return &WorldGenerator{
		Seed:  seed,
		rng:   rand.New(rand.NewSource(seed)),
		noise: perlin.NewPerlin(oreNoiseAlpha, oreNoiseBeta, oreNoiseOctaves, seed),
	}
}

// NewWorldGeneratorWithRand создаёт генератор с внешним источником
// случайности. Используется тестами для воспроизводимости.
func NewWorldGeneratorWithRand(seed int64, rng *rand.Rand) *WorldGenerator {
	return &WorldGenerator{
		Seed:  seed,
		rng:   rng,
		noise: perlin.NewPerlin(oreNoiseAlpha, oreNoiseBeta, oreNoiseOctaves, seed),
	}
}

// Generate заполняет сетку начальным ландшафтом:
// сначала грунт и руды, затем трава на поверхности
func (wg *WorldGenerator) Generate(g *Grid) {
	wg.generateOres(g)
	wg.generateGrassTiles(g)
}

// generateOres заполняет блоки ниже уровня моря грунтом.
// Для каждого блока взвешенный случайный выбор между пустотой и землёй,
// затем шум Перлина превращает часть земли в каменные и медные жилы.
// Блоки на уровне моря и выше остаются небом.
func (wg *WorldGenerator) generateOres(g *Grid) {
	for x := 0; x < g.Width(); x++ {
		for y := 0; y < g.Height(); y++ {
			if y <= g.SeaLevel() {
				continue
			}

			terrain := TerrainNull
			switch wg.rng.Intn(4) {
			case 1, 2:
				terrain = TerrainDirt
			}

			if terrain == TerrainDirt {
				noiseX := float64(x) * oreNoiseScale
				noiseY := float64(y) * oreNoiseScale
				// Noise2D возвращает [-1, 1]; приводим к [0, 1]
				vein := (wg.noise.Noise2D(noiseX, noiseY) + 1.0) / 2.0

				switch {
				case vein > copperVeinThreshold:
					terrain = TerrainCopper
				case vein > stoneVeinThreshold:
					terrain = TerrainStone
				}
			}

			g.SetTerrain(x, y, terrain)
			g.SetWall(x, y, WallDirtUnderground)
		}

		// Нижний ряд колонки всегда неразрушаемое основание
		g.SetTerrain(x, g.Height()-1, TerrainBedrock)
	}
}

// generateGrassTiles отмечает траву на поверхности за два прохода.
// Первый проход: в каждой колонке верхний блок земли, над которым пусто,
// получает признак травы; дальше вглубь колонки не идём.
// Второй проход: подтверждает траву только там, где блок сверху всё ещё
// пуст - сглаживание после первого прохода.
func (wg *WorldGenerator) generateGrassTiles(g *Grid) {
	for x := 0; x < g.Width(); x++ {
		for y := 0; y < g.Height(); y++ {
			block, _ := g.Get(x, y)
			if block.Terrain != TerrainDirt {
				continue
			}

			top := g.GetClamped(x, y-1)
			if top.Terrain == TerrainNull {
				g.SetFlag(x, y, FlagGrass)
				break // только верхний открытый блок земли в колонке
			}
		}
	}

	for x := 0; x < g.Width(); x++ {
		for y := 0; y < g.Height(); y++ {
			block, _ := g.Get(x, y)
			if block.Terrain != TerrainDirt || !block.HasFlag(FlagGrass) {
				continue
			}

			top := g.GetClamped(x, y-1)
			if top.Terrain != TerrainNull {
				g.ClearFlag(x, y, FlagGrass)
			}
		}
	}
}
