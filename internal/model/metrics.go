package model

// PoolWindowMetrics aggregates a pool's notifications over a time window.
type PoolWindowMetrics struct {
	Pool           string `json:"pool"`
	WindowSizeSecs uint64 `json:"window_size_seconds"`
	WindowStart    uint64 `json:"window_start_ts"`
	WindowEnd      uint64 `json:"window_end_ts"`
	TradeCount     uint64 `json:"trade_count"`
	DepositCount   uint64 `json:"deposit_count"`
	WithdrawCount  uint64 `json:"withdraw_count"`
	VolumeInA      string `json:"volume_in_a"`
	VolumeInB      string `json:"volume_in_b"`
	VolumeOutA     string `json:"volume_out_a"`
	VolumeOutB     string `json:"volume_out_b"`
	EndReserveA    string `json:"end_reserve_a"`
	EndReserveB    string `json:"end_reserve_b"`
}
