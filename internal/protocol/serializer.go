package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/annel0/ore-world/internal/world"
)

// ErrMalformedPayload возвращается, когда объявленная форма сообщения
// не совпадает с фактическими данными: усечённый конверт, неверная
// контрольная сумма или несовпадение числа блоков с площадью области.
// Сообщение отбрасывается целиком, частичного применения не бывает.
var ErrMalformedPayload = errors.New("повреждённое сообщение репликации")

// Формат конверта сообщения:
//
//	[1]  тип сообщения
//	[4]  длина полезной нагрузки (BigEndian)
//	[N]  полезная нагрузка
//	[4]  CRC32 (IEEE) полезной нагрузки
const envelopeOverhead = 1 + 4 + 4

// MessageSerializer кодирует и декодирует сообщения репликации в
// бинарный формат с контрольной суммой
type MessageSerializer struct{}

// NewMessageSerializer создаёт сериализатор сообщений
func NewMessageSerializer() *MessageSerializer {
	return &MessageSerializer{}
}

// wrap оборачивает полезную нагрузку в конверт с типом и CRC32
func (ms *MessageSerializer) wrap(msgType MsgType, payload []byte) []byte {
	out := make([]byte, 0, envelopeOverhead+len(payload))
	out = append(out, byte(msgType))
	out = binary.BigEndian.AppendUint32(out, uint32(len(payload)))
	out = append(out, payload...)
	out = binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(payload))
	return out
}

// Unwrap извлекает тип и полезную нагрузку из конверта, проверяя длину
// и контрольную сумму
func (ms *MessageSerializer) Unwrap(data []byte) (MsgType, []byte, error) {
	if len(data) < envelopeOverhead {
		return MsgUnknown, nil, fmt.Errorf("%w: конверт короче %d байт", ErrMalformedPayload, envelopeOverhead)
	}

	msgType := MsgType(data[0])
	length := binary.BigEndian.Uint32(data[1:5])
	if len(data) != envelopeOverhead+int(length) {
		return MsgUnknown, nil, fmt.Errorf("%w: объявлено %d байт нагрузки, получено %d",
			ErrMalformedPayload, length, len(data)-envelopeOverhead)
	}

	payload := data[5 : 5+length]
	wantCRC := binary.BigEndian.Uint32(data[5+length:])
	if crc32.ChecksumIEEE(payload) != wantCRC {
		return MsgUnknown, nil, fmt.Errorf("%w: неверная контрольная сумма", ErrMalformedPayload)
	}

	return msgType, payload, nil
}

// EncodeSparseBlockUpdate сериализует разреженное обновление блоков
func (ms *MessageSerializer) EncodeSparseBlockUpdate(msg *SparseBlockUpdate) []byte {
	payload := make([]byte, 0, 8+4+len(msg.Blocks)*11)
	payload = binary.BigEndian.AppendUint64(payload, msg.Revision)
	payload = binary.BigEndian.AppendUint32(payload, uint32(len(msg.Blocks)))

	for _, sb := range msg.Blocks {
		payload = binary.BigEndian.AppendUint32(payload, uint32(sb.X))
		payload = binary.BigEndian.AppendUint32(payload, uint32(sb.Y))
		payload = append(payload, byte(sb.Block.Terrain), byte(sb.Block.Wall), byte(sb.Block.Flags))
	}

	return ms.wrap(MsgSparseBlockUpdate, payload)
}

// DecodeSparseBlockUpdate разбирает полезную нагрузку разреженного обновления
func (ms *MessageSerializer) DecodeSparseBlockUpdate(payload []byte) (*SparseBlockUpdate, error) {
	if len(payload) < 12 {
		return nil, fmt.Errorf("%w: усечённый заголовок разреженного обновления", ErrMalformedPayload)
	}

	msg := &SparseBlockUpdate{
		Revision: binary.BigEndian.Uint64(payload[0:8]),
	}
	count := binary.BigEndian.Uint32(payload[8:12])

	if len(payload) != 12+int(count)*11 {
		return nil, fmt.Errorf("%w: объявлено %d блоков, размер нагрузки %d",
			ErrMalformedPayload, count, len(payload))
	}

	msg.Blocks = make([]SparseBlock, count)
	offset := 12
	for i := range msg.Blocks {
		msg.Blocks[i] = SparseBlock{
			X: int32(binary.BigEndian.Uint32(payload[offset : offset+4])),
			Y: int32(binary.BigEndian.Uint32(payload[offset+4 : offset+8])),
			Block: BlockState{
				Terrain: world.TerrainID(payload[offset+8]),
				Wall:    world.WallID(payload[offset+9]),
				Flags:   world.BlockFlags(payload[offset+10]),
			},
		}
		offset += 11
	}

	return msg, nil
}

// EncodeBlockRegion сериализует обновление прямоугольной области
func (ms *MessageSerializer) EncodeBlockRegion(msg *BlockRegion) []byte {
	payload := make([]byte, 0, 8+16+len(msg.Blocks)*3)
	payload = binary.BigEndian.AppendUint64(payload, msg.Revision)
	payload = binary.BigEndian.AppendUint32(payload, uint32(msg.X))
	payload = binary.BigEndian.AppendUint32(payload, uint32(msg.Y))
	payload = binary.BigEndian.AppendUint32(payload, uint32(msg.X2))
	payload = binary.BigEndian.AppendUint32(payload, uint32(msg.Y2))

	for _, b := range msg.Blocks {
		payload = append(payload, byte(b.Terrain), byte(b.Wall), byte(b.Flags))
	}

	return ms.wrap(MsgBlockRegion, payload)
}

// DecodeBlockRegion разбирает полезную нагрузку обновления области.
// Число блоков выводится из размера нагрузки; соответствие площади
// области проверяет приёмник перед применением.
func (ms *MessageSerializer) DecodeBlockRegion(payload []byte) (*BlockRegion, error) {
	if len(payload) < 24 {
		return nil, fmt.Errorf("%w: усечённый заголовок области", ErrMalformedPayload)
	}
	if (len(payload)-24)%3 != 0 {
		return nil, fmt.Errorf("%w: размер списка блоков области не кратен 3", ErrMalformedPayload)
	}

	msg := &BlockRegion{
		Revision: binary.BigEndian.Uint64(payload[0:8]),
		X:        int32(binary.BigEndian.Uint32(payload[8:12])),
		Y:        int32(binary.BigEndian.Uint32(payload[12:16])),
		X2:       int32(binary.BigEndian.Uint32(payload[16:20])),
		Y2:       int32(binary.BigEndian.Uint32(payload[20:24])),
	}

	count := (len(payload) - 24) / 3
	msg.Blocks = make([]BlockState, count)
	offset := 24
	for i := range msg.Blocks {
		msg.Blocks[i] = BlockState{
			Terrain: world.TerrainID(payload[offset]),
			Wall:    world.WallID(payload[offset+1]),
			Flags:   world.BlockFlags(payload[offset+2]),
		}
		offset += 3
	}

	return msg, nil
}

// EncodeWorldSnapshot сериализует полный снапшот мира
func (ms *MessageSerializer) EncodeWorldSnapshot(msg *WorldSnapshot) []byte {
	payload := make([]byte, 0, 8+len(msg.Data))
	payload = binary.BigEndian.AppendUint64(payload, msg.Revision)
	payload = append(payload, msg.Data...)
	return ms.wrap(MsgWorldSnapshot, payload)
}

// DecodeWorldSnapshot разбирает полезную нагрузку полного снапшота
func (ms *MessageSerializer) DecodeWorldSnapshot(payload []byte) (*WorldSnapshot, error) {
	if len(payload) < 8 {
		return nil, fmt.Errorf("%w: усечённый заголовок снапшота", ErrMalformedPayload)
	}

	data := make([]byte, len(payload)-8)
	copy(data, payload[8:])

	return &WorldSnapshot{
		Revision: binary.BigEndian.Uint64(payload[0:8]),
		Data:     data,
	}, nil
}
