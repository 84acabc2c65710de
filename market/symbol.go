package market

import "strings"

// SplitSymbol splits an instrument symbol like "EUR/USD" into its base and
// quote currencies. ok is false when the symbol is not a currency pair.
func SplitSymbol(symbol string) (base, quote string, ok bool) {
	i := strings.IndexByte(symbol, '/')
	if i <= 0 || i == len(symbol)-1 {
		return "", "", false
	}
	return symbol[:i], symbol[i+1:], true
}

// Pair joins two currencies into a symbol.
func Pair(base, quote string) string {
	return base + "/" + quote
}
