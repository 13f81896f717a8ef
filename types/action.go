package types

// Action is a strategy decision for a single bar. Providers that only trade
// the long side emit Buy to enter, Close to flatten and Hold otherwise; Sell
// exists so ensemble votes from short-capable providers still tally, and is
// treated as an exit by the long-only engine.
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionHold  Action = "HOLD"
	ActionClose Action = "CLOSE"
)

// IsExit reports whether the action flattens an open long position.
func (a Action) IsExit() bool {
	return a == ActionSell || a == ActionClose
}
