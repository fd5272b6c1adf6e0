package types

// Outcome is the result code of a market, auction or treasury operation.
// Every code other than OutcomeSuccess is an expected, recoverable failure,
// so Outcome also satisfies the error interface and can be returned and
// compared with errors.Is like any sentinel error.
type Outcome string

const (
	OutcomeSuccess          Outcome = "SUCCESS"
	OutcomeCooldown         Outcome = "COOLDOWN"
	OutcomeItemNotSold      Outcome = "ITEM_NOT_SOLD"
	OutcomeItemNotFound     Outcome = "ITEM_NOT_FOUND"
	OutcomeNotEnoughItems   Outcome = "NOT_ENOUGH_ITEMS"
	OutcomeInsufficientFund Outcome = "INSUFFICIENT_FUNDS"
	OutcomeInventoryFull    Outcome = "INVENTORY_FULL"
	OutcomeBuyModeDisabled  Outcome = "BUY_MODE_DISABLED"
	OutcomeNotFound         Outcome = "NOT_FOUND"
	OutcomeOwnListing       Outcome = "OWN_LISTING"
	OutcomeInvalidAmount    Outcome = "INVALID_AMOUNT"
	OutcomeNoPlayersOnline  Outcome = "NO_PLAYERS_ONLINE"
	OutcomeListingLimit     Outcome = "LISTING_LIMIT"
)

func (o Outcome) Error() string {
	return string(o)
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o == OutcomeSuccess
}
