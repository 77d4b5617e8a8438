package domain

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// 仓位记录的紧凑二进制编码，用于跨进程快照缓存。
// 布局：版本(1) | positionID(8) | entryTime(4) | lastUpdateTime(4) | isActive(1)
// 后接变长字段：hedger、positionSize、margin、entryPrice、leverage，
// 均为 uint16 长度前缀 + 字节串。decimal 经字符串编码，往返精确。

const positionCodecVersion = 1

var ErrCodecVersion = errors.New("unsupported position encoding version")

// PackPosition 将仓位编码为紧凑二进制
func PackPosition(p *Position) ([]byte, error) {
	if p.EntryTime < 0 || p.EntryTime > 0xFFFFFFFF || p.LastUpdateTime < 0 || p.LastUpdateTime > 0xFFFFFFFF {
		return nil, ErrTimestampOverflow
	}

	buf := make([]byte, 0, 96)
	buf = append(buf, positionCodecVersion)
	buf = binary.BigEndian.AppendUint64(buf, uint64(p.PositionID))
	buf = binary.BigEndian.AppendUint32(buf, uint32(p.EntryTime))
	buf = binary.BigEndian.AppendUint32(buf, uint32(p.LastUpdateTime))
	if p.IsActive {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	for _, field := range []string{
		p.Hedger,
		p.PositionSize.String(),
		p.Margin.String(),
		p.EntryPrice.String(),
		p.Leverage.String(),
	} {
		if len(field) > 0xFFFF {
			return nil, fmt.Errorf("field too long: %d bytes", len(field))
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(field)))
		buf = append(buf, field...)
	}
	return buf, nil
}

// UnpackPosition 解码仓位，字段值与编码前完全一致
func UnpackPosition(data []byte) (*Position, error) {
	if len(data) < 18 {
		return nil, fmt.Errorf("position encoding too short: %d bytes", len(data))
	}
	if data[0] != positionCodecVersion {
		return nil, ErrCodecVersion
	}

	p := &Position{}
	p.PositionID = int64(binary.BigEndian.Uint64(data[1:9]))
	p.EntryTime = int64(binary.BigEndian.Uint32(data[9:13]))
	p.LastUpdateTime = int64(binary.BigEndian.Uint32(data[13:17]))
	p.IsActive = data[17] == 1

	rest := data[18:]
	fields := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		if len(rest) < 2 {
			return nil, fmt.Errorf("truncated position encoding")
		}
		n := int(binary.BigEndian.Uint16(rest[:2]))
		rest = rest[2:]
		if len(rest) < n {
			return nil, fmt.Errorf("truncated position encoding")
		}
		fields = append(fields, string(rest[:n]))
		rest = rest[n:]
	}

	p.Hedger = fields[0]
	var err error
	if p.PositionSize, err = decimal.NewFromString(fields[1]); err != nil {
		return nil, fmt.Errorf("decode position size: %w", err)
	}
	if p.Margin, err = decimal.NewFromString(fields[2]); err != nil {
		return nil, fmt.Errorf("decode margin: %w", err)
	}
	if p.EntryPrice, err = decimal.NewFromString(fields[3]); err != nil {
		return nil, fmt.Errorf("decode entry price: %w", err)
	}
	if p.Leverage, err = decimal.NewFromString(fields[4]); err != nil {
		return nil, fmt.Errorf("decode leverage: %w", err)
	}
	return p, nil
}
