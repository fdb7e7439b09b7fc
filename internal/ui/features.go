package ui

// Features gates optional functionality. All default to false.
type Features struct {
	Generate bool // g: submit a generation job for the active market
	Candles  bool // c: load price history for the active market
}
