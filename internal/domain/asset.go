package domain

// Asset identifies a fungible balance bucket in the ledger ("BTC", "USD").
type Asset string

// Pair is the single traded instrument. Order quantities are in Base
// units; prices are in Quote units per Base unit, so a buy of qty at
// price costs price*qty of Quote.
type Pair struct {
	Base  Asset
	Quote Asset
}

// BTCUSD is the instrument the simulation driver trades.
var BTCUSD = Pair{Base: "BTC", Quote: "USD"}
