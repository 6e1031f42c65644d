package domain

import "time"

// Account binds a chat-platform user to a custodial ledger account. One
// account per user id, created on first deposit or tip receipt, never
// deleted. The ledger fields are filled in at creation and only ever
// mutated to complete a partially provisioned record.
type Account struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Address    string    `json:"address"`
	PublicKey  string    `json:"public_key"`
	Passphrase string    `json:"passphrase"`
	CreatedAt  time.Time `json:"created_at"`
}
