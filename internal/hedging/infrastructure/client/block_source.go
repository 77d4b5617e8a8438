package client

import "time"

// IntervalBlockSource 按固定出块间隔从墙钟推导区块高度
// 与宿主账本的出块节奏对齐，使奖励计息按区块驱动而非按秒驱动
type IntervalBlockSource struct {
	genesis  time.Time
	interval time.Duration
}

// NewIntervalBlockSource 创建区块源
func NewIntervalBlockSource(genesis time.Time, interval time.Duration) *IntervalBlockSource {
	return &IntervalBlockSource{genesis: genesis, interval: interval}
}

// CurrentBlock 当前区块高度
func (s *IntervalBlockSource) CurrentBlock() uint64 {
	elapsed := time.Since(s.genesis)
	if elapsed < 0 {
		return 0
	}
	return uint64(elapsed / s.interval)
}
