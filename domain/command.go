package domain

// Command is a recognized user instruction. Commands are ephemeral: one is
// produced per message and dropped once handled.
type Command interface {
	CommandName() string
}

type HelpCommand struct{}

func (HelpCommand) CommandName() string { return "help" }

type BalanceCommand struct{}

func (BalanceCommand) CommandName() string { return "balance" }

type DepositCommand struct{}

func (DepositCommand) CommandName() string { return "deposit" }

type ListCommand struct{}

func (ListCommand) CommandName() string { return "list" }

// WithdrawCommand moves value from the sender's custodial account to an
// external ledger address. Amount stays textual until the unit (and with it
// the decimal precision) is resolved.
type WithdrawCommand struct {
	Address string
	Amount  string
	Unit    string
}

func (WithdrawCommand) CommandName() string { return "withdraw" }

// TipCommand moves value to up to five mentioned users, or to one literal
// ledger address. Mentions and Address are mutually exclusive.
type TipCommand struct {
	Mentions []string
	Address  string
	Amount   string
	Unit     string
	Comment  string
}

func (TipCommand) CommandName() string { return "tip" }
