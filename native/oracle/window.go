package oracle

// Sample is one observed trade price inside the trailing window.
type Sample struct {
	BillID    uint64  `json:"billId"`
	Price     float64 `json:"price"`
	CreatedAt int64   `json:"createdAt"`
}

// Board maintains a trailing window of trade prices and the running aggregate
// used to value rate parameters. Samples are stored in observation order; the
// running total and count are adjusted per eviction so the average never needs
// a full rescan.
type Board struct {
	WindowSeconds int64    `json:"windowSeconds"`
	Samples       []Sample `json:"samples,omitempty"`
	Total         float64  `json:"total"`
	Count         int64    `json:"count"`
	Average       float64  `json:"average"`
}

// DefaultWindowSeconds is the price fluctuation interval applied when a board
// is created without an explicit window.
const DefaultWindowSeconds int64 = 86_400

// NewBoard constructs an empty board with the supplied trailing window.
func NewBoard(windowSeconds int64) *Board {
	if windowSeconds <= 0 {
		windowSeconds = DefaultWindowSeconds
	}
	return &Board{WindowSeconds: windowSeconds}
}

// Record evicts samples older than the trailing window, appends the new
// observation and recomputes the running average.
func (b *Board) Record(price float64, billID uint64, now int64) {
	if b == nil {
		return
	}
	b.evict(now)
	b.Samples = append(b.Samples, Sample{BillID: billID, Price: price, CreatedAt: now})
	b.Total += price
	b.Count++
	b.Average = b.Total / float64(b.Count)
}

func (b *Board) evict(now int64) {
	window := b.WindowSeconds
	if window <= 0 {
		window = DefaultWindowSeconds
	}
	cutoff := now - window
	evicted := 0
	for _, sample := range b.Samples {
		if sample.CreatedAt >= cutoff {
			break
		}
		b.Total -= sample.Price
		b.Count--
		evicted++
	}
	if evicted > 0 {
		b.Samples = append([]Sample(nil), b.Samples[evicted:]...)
	}
	if b.Count <= 0 {
		b.Samples = nil
		b.Total = 0
		b.Count = 0
		b.Average = 0
	} else {
		b.Average = b.Total / float64(b.Count)
	}
}

// Value converts a percent-encoded rate into an absolute value using the
// current average price, or the supplied fallback price while the window is
// empty.
func (b *Board) Value(encodedRate uint64, fallbackPrice float64) float64 {
	value := float64(encodedRate) / 100.0
	if b == nil || b.Count == 0 {
		return value * fallbackPrice
	}
	return value * b.Average
}

// Clone returns a deep copy of the board.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	clone := *b
	if len(b.Samples) > 0 {
		clone.Samples = append([]Sample(nil), b.Samples...)
	}
	return &clone
}
