package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/annel0/ore-world/internal/world"
	"github.com/klauspost/compress/zstd"
)

// ErrCorruptSnapshot возвращается, когда сохранённые данные не проходят
// проверку схемы или размера. Загрузка прерывается, сетка остаётся в
// прежнем состоянии.
var ErrCorruptSnapshot = errors.New("повреждённый снапшот мира")

// Формат конверта снапшота:
//
//	[4]  магическая метка "OREW"
//	[1]  версия формата
//	[4]  ширина мира (BigEndian)
//	[4]  высота мира (BigEndian)
//	[N]  zstd-сжатая плоскость террейна, один байт на блок,
//	     в порядке линейного индекса (внешний цикл по X, внутренний по Y)
//
// Сохраняется только тип террейна: стены и признаки в минимальный формат
// не входят - осознанный компромисс размера, версия формата оставляет
// место для расширения.
var snapshotMagic = []byte("OREW")

const snapshotVersion byte = 1

const snapshotHeaderLen = 4 + 1 + 4 + 4

// EncodeSnapshot сериализует сетку мира в конверт снапшота
func EncodeSnapshot(g *world.Grid) ([]byte, error) {
	plane := g.TerrainPlane()
	raw := make([]byte, len(plane))
	for i, t := range plane {
		raw[i] = byte(t)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания zstd-кодера: %w", err)
	}
	defer encoder.Close()

	out := make([]byte, 0, snapshotHeaderLen)
	out = append(out, snapshotMagic...)
	out = append(out, snapshotVersion)
	out = binary.BigEndian.AppendUint32(out, uint32(g.Width()))
	out = binary.BigEndian.AppendUint32(out, uint32(g.Height()))
	return encoder.EncodeAll(raw, out), nil
}

// DecodeSnapshot проверяет конверт и записывает плоскость террейна в сетку
// в том же порядке обхода, что и при сохранении. Любое несовпадение схемы,
// размеров или числа блоков - ErrCorruptSnapshot, сетка не меняется:
// данные сначала декодируются в отдельный буфер и только потом применяются.
func DecodeSnapshot(data []byte, g *world.Grid) error {
	if len(data) < snapshotHeaderLen {
		return fmt.Errorf("%w: конверт короче %d байт", ErrCorruptSnapshot, snapshotHeaderLen)
	}
	if !bytes.Equal(data[0:4], snapshotMagic) {
		return fmt.Errorf("%w: неверная магическая метка", ErrCorruptSnapshot)
	}
	if data[4] != snapshotVersion {
		return fmt.Errorf("%w: неподдерживаемая версия формата %d", ErrCorruptSnapshot, data[4])
	}

	width := int(binary.BigEndian.Uint32(data[5:9]))
	height := int(binary.BigEndian.Uint32(data[9:13]))
	if width != g.Width() || height != g.Height() {
		return fmt.Errorf("%w: размер снапшота %dx%d, размер мира %dx%d",
			ErrCorruptSnapshot, width, height, g.Width(), g.Height())
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return fmt.Errorf("ошибка создания zstd-декодера: %w", err)
	}
	defer decoder.Close()

	raw, err := decoder.DecodeAll(data[snapshotHeaderLen:], nil)
	if err != nil {
		return fmt.Errorf("%w: ошибка распаковки: %v", ErrCorruptSnapshot, err)
	}
	if len(raw) != width*height {
		return fmt.Errorf("%w: распаковано %d блоков, ожидалось %d",
			ErrCorruptSnapshot, len(raw), width*height)
	}

	plane := make([]world.TerrainID, len(raw))
	for i, b := range raw {
		if !g.Defs().IsValidTerrain(world.TerrainID(b)) {
			return fmt.Errorf("%w: неизвестный тип террейна %d", ErrCorruptSnapshot, b)
		}
		plane[i] = world.TerrainID(b)
	}

	return g.ApplyTerrainPlane(plane)
}
