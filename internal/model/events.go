package model

// DepositEventData is the payload of a deposit notification.
type DepositEventData struct {
	Sender  string `json:"sender"`
	AmountA string `json:"amount_a"`
	AmountB string `json:"amount_b"`
	Minted  string `json:"minted"`
	To      string `json:"to"`
}

// WithdrawEventData is the payload of a withdraw notification.
type WithdrawEventData struct {
	Sender  string `json:"sender"`
	AmountA string `json:"amount_a"`
	AmountB string `json:"amount_b"`
	Burned  string `json:"burned"`
	To      string `json:"to"`
}

// TradeEventData is the payload of a trade notification.
type TradeEventData struct {
	Sender  string `json:"sender"`
	InA     string `json:"in_a"`
	InB     string `json:"in_b"`
	OutA    string `json:"out_a"`
	OutB    string `json:"out_b"`
	To      string `json:"to"`
	Flashed bool   `json:"flashed"`
}

// SyncEventData is the payload of a sync notification.
type SyncEventData struct {
	ReserveA string `json:"reserve_a"`
	ReserveB string `json:"reserve_b"`
}

// PoolCreatedEventData is the payload of a pool-created notification.
type PoolCreatedEventData struct {
	AssetA string `json:"asset_a"`
	AssetB string `json:"asset_b"`
	Pool   string `json:"pool"`
	Count  uint64 `json:"count"`
}
