package sync

// Report summarizes what one sync changed. Skip counts track provider items
// that referenced an account the snapshot never delivered; those are logged
// and dropped rather than failing the whole sync.
type Report struct {
	FullSync bool `json:"fullSync"`

	AccountsCreated     int `json:"accountsCreated"`
	AccountsUpdated     int `json:"accountsUpdated"`
	AccountsDeactivated int `json:"accountsDeactivated"`

	HoldingsCreated int `json:"holdingsCreated"`
	HoldingsUpdated int `json:"holdingsUpdated"`
	HoldingsRemoved int `json:"holdingsRemoved"`
	HoldingsSkipped int `json:"holdingsSkipped"`

	TransactionsAdded    int `json:"transactionsAdded"`
	TransactionsModified int `json:"transactionsModified"`
	TransactionsRemoved  int `json:"transactionsRemoved"`
	TransactionsSkipped  int `json:"transactionsSkipped"`
}
