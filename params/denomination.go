package params

// These are the multipliers for STRK denominations.
// Example: To get the fri value of an amount in 'gfri', use
//
//	new(big.Int).Mul(value, big.NewInt(params.GFri))
const (
	Fri  = 1
	GFri = 1e9
	STRK = 1e18
)
