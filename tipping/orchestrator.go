//go:generate go run go.uber.org/mock/mockgen -source=orchestrator.go -destination=../mocks/mock_messenger.go -package=mocks
package tipping

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"nxt-tipbot/domain"
	errs "nxt-tipbot/errors"
	"nxt-tipbot/nxt"
	"nxt-tipbot/parser"
	"nxt-tipbot/repositories"
)

// MaxCommentLength bounds the free-text comment carried by a tip.
const MaxCommentLength = 512

// Messenger is the outbound chat surface the orchestrator replies through.
// The session connector implements it.
type Messenger interface {
	SendMessage(ctx context.Context, targetID, text string, unfurl bool) error
	InstantMessageID(ctx context.Context, userID string) (string, error)
	UserName(userID string) (string, bool)
	Self() (id, name string)
}

// Orchestrator sequences account resolution, validation, ledger transfers
// and notification side-effects for one command at a time. Within one
// command everything runs sequentially; the connector guarantees no two
// commands overlap on a connection.
type Orchestrator struct {
	log          *slog.Logger
	registry     *domain.Registry
	validator    Validator
	accounts     repositories.IAccountRepository
	ledger       nxt.ILedger
	messenger    Messenger
	masterSecret string
}

func NewOrchestrator(log *slog.Logger, registry *domain.Registry, validator Validator,
	accounts repositories.IAccountRepository, ledger nxt.ILedger, messenger Messenger,
	masterSecret string) *Orchestrator {
	return &Orchestrator{
		log:          log,
		registry:     registry,
		validator:    validator,
		accounts:     accounts,
		ledger:       ledger,
		messenger:    messenger,
		masterSecret: masterSecret,
	}
}

// HandleChannelMessage runs the tip path for a channel message addressed to
// the bot. Validation failures are rendered as channel replies and never
// propagate; only ledger faults do.
func (o *Orchestrator) HandleChannelMessage(ctx context.Context, channelID, userID, text string) error {
	botID, botName := o.messenger.Self()
	cmd, err := parser.New(botID, botName).ParseChannel(text)
	if err != nil {
		// MixedRecipientKinds renders exactly like an unrecognized command.
		return o.messenger.SendMessage(ctx, channelID, renderFailure(errs.ErrParseFailure), false)
	}
	tip := cmd.(domain.TipCommand)
	return o.executeTip(ctx, channelID, userID, tip)
}

// HandleDirectMessage runs the direct-session command path.
func (o *Orchestrator) HandleDirectMessage(ctx context.Context, imID, userID, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	botID, botName := o.messenger.Self()
	cmd, err := parser.New(botID, botName).ParseDirect(text)
	if err != nil {
		return o.messenger.SendMessage(ctx, imID, renderFailure(errs.ErrParseFailure), false)
	}

	switch c := cmd.(type) {
	case domain.HelpCommand:
		return o.messenger.SendMessage(ctx, imID, helpText, false)
	case domain.BalanceCommand:
		return o.reportBalances(ctx, imID, userID)
	case domain.DepositCommand:
		return o.reportDepositAddress(ctx, imID, userID)
	case domain.ListCommand:
		return o.messenger.SendMessage(ctx, imID, o.renderUnitList(), false)
	case domain.WithdrawCommand:
		return o.executeWithdraw(ctx, imID, userID, c)
	default:
		return o.messenger.SendMessage(ctx, imID, renderFailure(errs.ErrParseFailure), false)
	}
}

// HandleReaction turns a reaction matching a registered unit's reaction id
// into a one-unit tip from the reactor to the message owner.
func (o *Orchestrator) HandleReaction(ctx context.Context, channelID, userID, itemUserID, reaction string) error {
	if itemUserID == "" {
		return nil
	}
	for _, t := range o.registry.All() {
		if t.Reaction == "" || t.Reaction != reaction {
			continue
		}
		tip := domain.TipCommand{Mentions: []string{itemUserID}, Amount: "1", Unit: t.Name}
		return o.executeTip(ctx, channelID, userID, tip)
	}
	return nil
}

func (o *Orchestrator) executeTip(ctx context.Context, channelID, senderID string, tip domain.TipCommand) error {
	botID, _ := o.messenger.Self()

	// Outright rejections come before any validation or ledger call.
	for _, mention := range tip.Mentions {
		if mention == botID {
			return o.messenger.SendMessage(ctx, channelID, renderFailure(errs.ErrBotSelfTip), false)
		}
		if mention == senderID {
			return o.messenger.SendMessage(ctx, channelID, renderFailure(errs.ErrSelfTip), false)
		}
	}
	if tip.Address != "" && !nxt.ValidAddress(tip.Address) {
		return o.messenger.SendMessage(ctx, channelID, renderFailure(errs.ErrInvalidAddress), false)
	}
	if len(tip.Comment) > MaxCommentLength {
		return o.messenger.SendMessage(ctx, channelID, renderFailure(errs.ErrCommentTooLong), false)
	}

	t, err := o.validator.Resolve(tip.Unit)
	if err != nil {
		return o.messenger.SendMessage(ctx, channelID, renderFailure(err), false)
	}
	amountQNT, err := t.ParseAmount(tip.Amount)
	if err != nil {
		return o.messenger.SendMessage(ctx, channelID, renderFailure(err), false)
	}

	sender, err := o.accounts.Get(senderID)
	if errors.Is(err, errs.ErrAccountNotFound) {
		return o.messenger.SendMessage(ctx, channelID, renderFailure(errs.ErrNoAccount), false)
	}
	if err != nil {
		return fmt.Errorf("account lookup for %s: %w", senderID, err)
	}

	recipientCount := len(tip.Mentions)
	if tip.Address != "" {
		recipientCount = 1
	}
	balances, err := o.fetchBalances(ctx, sender.Address, t)
	if err != nil {
		return err
	}
	if err := o.validator.Check(t, balances, amountQNT, recipientCount); err != nil {
		return o.messenger.SendMessage(ctx, channelID, renderFailure(err), false)
	}

	senderName := o.displayName(senderID)
	amountText := t.FormatAmount(amountQNT)

	if tip.Address != "" {
		memo := buildMemo(senderName, "", tip.Comment)
		txID, err := o.transfer(ctx, sender, t, tip.Address, amountQNT, memo)
		if err != nil {
			return err
		}
		confirmation := fmt.Sprintf("<@%s> sent %s %s to %s (transaction %s)",
			senderID, amountText, t.Name, tip.Address, txID)
		return o.messenger.SendMessage(ctx, channelID, confirmation, false)
	}

	// Provision missing recipient accounts and greet them before any value
	// moves, so a failed transfer never leaves a recipient uninformed of
	// what the bot is.
	recipients := make([]domain.Account, 0, len(tip.Mentions))
	for _, mention := range tip.Mentions {
		account, created, err := o.getOrCreateAccount(ctx, mention)
		if err != nil {
			return err
		}
		if created {
			o.notifyTipReceived(ctx, mention, senderName)
		}
		recipients = append(recipients, account)
	}

	for _, recipient := range recipients {
		memo := buildMemo(senderName, o.displayName(recipient.UserID), tip.Comment)
		txID, err := o.transfer(ctx, sender, t, recipient.Address, amountQNT, memo)
		if err != nil {
			return err
		}
		confirmation := fmt.Sprintf("<@%s> tipped <@%s> %s %s (transaction %s)",
			senderID, recipient.UserID, amountText, t.Name, txID)
		if err := o.messenger.SendMessage(ctx, channelID, confirmation, false); err != nil {
			return err
		}
		if !t.IsNative() {
			o.notifyFirstReceipt(ctx, t, recipient, senderName, amountText)
			o.hintFeeShortage(ctx, senderID, recipient)
		}
	}
	return nil
}

func (o *Orchestrator) executeWithdraw(ctx context.Context, imID, userID string, cmd domain.WithdrawCommand) error {
	t, err := o.resolveWithdrawUnit(ctx, cmd.Unit)
	if err != nil {
		return o.messenger.SendMessage(ctx, imID, renderFailure(err), false)
	}
	if !nxt.ValidAddress(cmd.Address) {
		return o.messenger.SendMessage(ctx, imID, renderFailure(errs.ErrInvalidAddress), false)
	}
	amountQNT, err := t.ParseAmount(cmd.Amount)
	if err != nil {
		return o.messenger.SendMessage(ctx, imID, renderFailure(err), false)
	}

	sender, err := o.accounts.Get(userID)
	if errors.Is(err, errs.ErrAccountNotFound) {
		return o.messenger.SendMessage(ctx, imID, renderFailure(errs.ErrNoAccount), false)
	}
	if err != nil {
		return fmt.Errorf("account lookup for %s: %w", userID, err)
	}

	balances, err := o.fetchBalances(ctx, sender.Address, t)
	if err != nil {
		return err
	}
	if err := o.validator.Check(t, balances, amountQNT, 1); err != nil {
		return o.messenger.SendMessage(ctx, imID, renderFailure(err), false)
	}

	txID, err := o.transfer(ctx, sender, t, cmd.Address, amountQNT, "")
	if err != nil {
		return err
	}
	confirmation := fmt.Sprintf("Sent %s %s to %s (transaction %s)",
		t.FormatAmount(amountQNT), t.Name, cmd.Address, txID)
	return o.messenger.SendMessage(ctx, imID, confirmation, false)
}

// resolveWithdrawUnit resolves the unit token, with the withdraw-specific
// fallback: a numeric token unknown to the registry is looked up on the
// ledger as an asset, then as a currency, and registered on success.
func (o *Orchestrator) resolveWithdrawUnit(ctx context.Context, token string) (domain.Transferable, error) {
	t, err := o.validator.Resolve(token)
	if err == nil {
		return t, nil
	}
	id, parseErr := strconv.ParseUint(token, 10, 64)
	if parseErr != nil {
		return domain.Transferable{}, err
	}

	if asset, lookupErr := o.ledger.AssetByID(ctx, id); lookupErr == nil {
		o.register(asset)
		return asset, nil
	}
	if currency, lookupErr := o.ledger.CurrencyByID(ctx, id); lookupErr == nil {
		o.register(currency)
		return currency, nil
	}
	return domain.Transferable{}, err
}

func (o *Orchestrator) register(t domain.Transferable) {
	if err := o.registry.Add(t); err != nil {
		// A name collision does not block the transfer; the unit is simply
		// not cached for later lookups.
		o.log.Warn("On-demand unit not registered", "unit", t.Name, "id", t.ID, "error", err)
	}
}

func (o *Orchestrator) reportBalances(ctx context.Context, imID, userID string) error {
	account, err := o.accounts.Get(userID)
	if errors.Is(err, errs.ErrAccountNotFound) {
		return o.messenger.SendMessage(ctx, imID, renderFailure(errs.ErrNoAccount), false)
	}
	if err != nil {
		return fmt.Errorf("account lookup for %s: %w", userID, err)
	}

	var lines []string
	for _, t := range o.registry.All() {
		balance, err := o.ledger.BalanceQNT(ctx, account.Address, t)
		if err != nil {
			return o.raiseLedgerFault(err, "balance lookup", account.Address, t)
		}
		if balance == 0 && !t.IsNative() {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", t.Name, t.FormatAmount(balance)))
	}
	return o.messenger.SendMessage(ctx, imID, strings.Join(lines, "\n"), false)
}

func (o *Orchestrator) reportDepositAddress(ctx context.Context, imID, userID string) error {
	account, _, err := o.getOrCreateAccount(ctx, userID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Send deposits to %s. They show up under `balance` once the ledger confirms them.", account.Address)
	return o.messenger.SendMessage(ctx, imID, text, false)
}

func (o *Orchestrator) renderUnitList() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"ID", "Name", "Type", "Monikers"})
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, t := range o.registry.All() {
		id := "-"
		if !t.IsNative() {
			id = strconv.FormatUint(t.ID, 10)
		}
		table.Append([]string{id, t.Name, t.Kind.String(), strings.Join(t.Monikers, ", ")})
	}
	table.Render()
	return "```\n" + buf.String() + "```"
}

// getOrCreateAccount returns the user's account, provisioning one when none
// exists. The store's key uniqueness resolves the race of two concurrent
// creations for the same user; the loser re-reads the winner's record.
func (o *Orchestrator) getOrCreateAccount(ctx context.Context, userID string) (domain.Account, bool, error) {
	account, err := o.accounts.Get(userID)
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, errs.ErrAccountNotFound) {
		return domain.Account{}, false, fmt.Errorf("account lookup for %s: %w", userID, err)
	}

	passphrase := nxt.DerivePassphrase(o.masterSecret, userID)
	publicKey, address, err := nxt.DeriveAccount(passphrase)
	if err != nil {
		return domain.Account{}, false, fmt.Errorf("account derivation for %s: %w", userID, err)
	}
	account = domain.Account{
		ID:         uuid.New().String(),
		UserID:     userID,
		Address:    address,
		PublicKey:  publicKey,
		Passphrase: passphrase,
		CreatedAt:  time.Now().UTC(),
	}
	if err := o.accounts.Insert(account); err != nil {
		if errors.Is(err, errs.ErrAccountAlreadyExists) {
			existing, getErr := o.accounts.Get(userID)
			return existing, false, getErr
		}
		return domain.Account{}, false, fmt.Errorf("account insert for %s: %w", userID, err)
	}
	o.log.Info("Account provisioned", "user", userID, "address", address)
	return account, true, nil
}

// notifyTipReceived greets a freshly provisioned recipient in a private
// session. Failures only log; the tip itself must not depend on it.
func (o *Orchestrator) notifyTipReceived(ctx context.Context, userID, senderName string) {
	imID, err := o.messenger.InstantMessageID(ctx, userID)
	if err != nil {
		o.log.Warn("Tip-received notification skipped", "user", userID, "error", err)
		return
	}
	text := fmt.Sprintf("%s sent you a tip! An account has been opened for you. Say `help` here to see what you can do with it.", senderName)
	if err := o.messenger.SendMessage(ctx, imID, text, false); err != nil {
		o.log.Warn("Tip-received notification failed", "user", userID, "error", err)
	}
}

// notifyFirstReceipt sends a unit's configured template to the recipient
// the first time they receive it. "First time" is read from the recipient's
// post-transfer balance: zero means no earlier confirmed holdings. This is
// best-effort by design; if the ledger confirms faster than the read, the
// notification is simply skipped.
func (o *Orchestrator) notifyFirstReceipt(ctx context.Context, t domain.Transferable, recipient domain.Account, senderName, amountText string) {
	if t.ReceivedTemplate == "" {
		return
	}
	balance, err := o.ledger.BalanceQNT(ctx, recipient.Address, t)
	if err != nil || balance != 0 {
		return
	}
	imID, err := o.messenger.InstantMessageID(ctx, recipient.UserID)
	if err != nil {
		return
	}
	text := strings.NewReplacer(
		"{sender}", senderName,
		"{amount}", amountText,
		"{unit}", t.Name,
	).Replace(t.ReceivedTemplate)
	if err := o.messenger.SendMessage(ctx, imID, text, false); err != nil {
		o.log.Warn("First-receipt notification failed", "user", recipient.UserID, "unit", t.Name, "error", err)
	}
}

// hintFeeShortage warns the sender when a non-native tip landed on an
// account that cannot yet pay ledger fees itself.
func (o *Orchestrator) hintFeeShortage(ctx context.Context, senderID string, recipient domain.Account) {
	native := o.registry.Native()
	balance, err := o.ledger.BalanceQNT(ctx, recipient.Address, native)
	if err != nil || balance >= native.BaseUnit() {
		return
	}
	imID, err := o.messenger.InstantMessageID(ctx, senderID)
	if err != nil {
		return
	}
	text := fmt.Sprintf("Heads up: <@%s> holds less than 1 %s, so they cannot pay transaction fees yet. A small %s tip would fix that.",
		recipient.UserID, native.Name, native.Name)
	if err := o.messenger.SendMessage(ctx, imID, text, false); err != nil {
		o.log.Warn("Fee-shortage hint failed", "sender", senderID, "error", err)
	}
}

func (o *Orchestrator) fetchBalances(ctx context.Context, address string, t domain.Transferable) (Balances, error) {
	native := o.registry.Native()
	nativeQNT, err := o.ledger.BalanceQNT(ctx, address, native)
	if err != nil {
		return Balances{}, o.raiseLedgerFault(err, "native balance lookup", address, native)
	}
	if t.IsNative() {
		return Balances{NativeQNT: nativeQNT, UnitQNT: nativeQNT}, nil
	}
	unitQNT, err := o.ledger.BalanceQNT(ctx, address, t)
	if err != nil {
		return Balances{}, o.raiseLedgerFault(err, "unit balance lookup", address, t)
	}
	return Balances{NativeQNT: nativeQNT, UnitQNT: unitQNT}, nil
}

func (o *Orchestrator) transfer(ctx context.Context, sender domain.Account, t domain.Transferable, recipient string, amountQNT int64, memo string) (string, error) {
	txID, err := o.ledger.Transfer(ctx, sender.Passphrase, t, recipient, amountQNT, memo)
	if err != nil {
		o.log.Error("Transfer failed",
			"sender", sender.UserID, "recipient", recipient,
			"unit", t.Name, "amount", amountQNT, "error", err)
		return "", err
	}
	return txID, nil
}

func (o *Orchestrator) raiseLedgerFault(err error, operation, address string, t domain.Transferable) error {
	o.log.Error("Ledger call failed", "operation", operation, "address", address, "unit", t.Name, "error", err)
	return err
}

func (o *Orchestrator) displayName(userID string) string {
	if name, ok := o.messenger.UserName(userID); ok && name != "" {
		return name
	}
	return userID
}

// buildMemo assembles the ledger transaction message from sender name,
// optional recipient name and comment.
func buildMemo(senderName, recipientName, comment string) string {
	memo := "Tip from " + senderName
	if recipientName != "" {
		memo += " to " + recipientName
	}
	if comment != "" {
		memo += ": " + comment
	}
	return memo
}

const helpText = "Commands in this private session:\n" +
	"`balance` — your holdings per unit\n" +
	"`deposit` — your deposit address (creates your account on first use)\n" +
	"`list` — the units I can transfer\n" +
	"`withdraw <address> <amount> [unit]` — move funds to an external address\n" +
	"In a channel, mention me: `@tipbot tip @someone <amount> [unit] [comment]`."

// renderFailure maps a validation failure to its user-facing reply. Every
// branch recovers locally; nothing here crosses the command boundary.
func renderFailure(err error) string {
	switch {
	case errors.Is(err, errs.ErrUnknownUnit):
		return "I do not know that unit. Say `list` in a private session to see the ones I handle."
	case errors.Is(err, errs.ErrInvalidAddress):
		return "That does not look like a valid ledger address."
	case errors.Is(err, errs.ErrInsufficientFunds):
		return "Not enough funds for that transfer."
	case errors.Is(err, errs.ErrInsufficientFeeMargin):
		return "Your balance covers the amount but not the transaction fee (1 NXT per recipient)."
	case errors.Is(err, errs.ErrCommentTooLong):
		return fmt.Sprintf("That comment is too long (max %d characters).", MaxCommentLength)
	case errors.Is(err, errs.ErrNoAccount):
		return "You have no account yet. Send me `deposit` in a private session to open one."
	case errors.Is(err, errs.ErrSelfTip):
		return "Tipping yourself would be cheating."
	case errors.Is(err, errs.ErrBotSelfTip):
		return "Thanks, but I cannot accept tips."
	case errors.Is(err, errs.ErrInvalidAmount):
		return "I could not read that amount."
	default:
		return "Sorry, I did not understand that. Say `help` in a private session."
	}
}
