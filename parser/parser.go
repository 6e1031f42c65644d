// Package parser recognizes structured commands from raw message text.
// It depends on nothing but the text and the bot's identity; unit names are
// resolved later against the registry. Keywords match case-insensitively
// and the grammar is insensitive to the amount of whitespace between
// tokens, as explicit rules rather than incidental regex behavior.
package parser

import (
	"strings"

	"nxt-tipbot/domain"
	"nxt-tipbot/errors"
)

// MaxTipMentions caps how many users one tip command may address.
const MaxTipMentions = 5

type Parser struct {
	botID   string
	botName string
}

func New(botID, botName string) Parser {
	return Parser{botID: botID, botName: botName}
}

// ParseDirect recognizes the direct-session grammar: the single-word
// commands help, balance, deposit and list, plus
// "withdraw <address> <amount> [unit]". Unmatched non-empty text yields
// ErrParseFailure.
func (p Parser) ParseDirect(text string) (domain.Command, error) {
	fields := strings.Fields(text)
	switch len(fields) {
	case 1:
		switch strings.ToLower(fields[0]) {
		case "help":
			return domain.HelpCommand{}, nil
		case "balance":
			return domain.BalanceCommand{}, nil
		case "deposit":
			return domain.DepositCommand{}, nil
		case "list":
			return domain.ListCommand{}, nil
		}
	case 3, 4:
		if strings.EqualFold(fields[0], "withdraw") && isDecimal(fields[2]) {
			cmd := domain.WithdrawCommand{Address: fields[1], Amount: fields[2]}
			if len(fields) == 4 {
				cmd.Unit = fields[3]
			}
			return cmd, nil
		}
	}
	return nil, errors.ErrParseFailure
}

// ParseChannel recognizes the channel-session grammar:
// "<mention-of-bot> tip <recipients> <amount> [unit] [comment]".
// Recipients are either one ledger address or up to five user mentions
// separated by commas or spaces; mixing the two kinds is reported as
// ErrMixedRecipientKinds (callers render it like an unknown command).
func (p Parser) ParseChannel(text string) (domain.Command, error) {
	rest, ok := p.StripBotAddress(text)
	if !ok {
		return nil, errors.ErrParseFailure
	}
	fields := strings.Fields(rest)
	if len(fields) < 3 || !strings.EqualFold(fields[0], "tip") {
		return nil, errors.ErrParseFailure
	}

	var mentions []string
	var address string
	amountIndex := -1
	for i := 1; i < len(fields); i++ {
		if isDecimal(fields[i]) {
			amountIndex = i
			break
		}
		for _, part := range strings.Split(fields[i], ",") {
			if part == "" {
				continue
			}
			if id, ok := mentionID(part); ok {
				mentions = append(mentions, id)
				continue
			}
			if address != "" {
				return nil, errors.ErrParseFailure
			}
			address = part
		}
	}
	if amountIndex < 0 || (len(mentions) == 0 && address == "") {
		return nil, errors.ErrParseFailure
	}
	if len(mentions) > 0 && address != "" {
		return nil, errors.ErrMixedRecipientKinds
	}
	if len(mentions) > MaxTipMentions {
		return nil, errors.ErrParseFailure
	}

	cmd := domain.TipCommand{
		Mentions: mentions,
		Address:  address,
		Amount:   fields[amountIndex],
	}
	tail := fields[amountIndex+1:]
	if len(tail) > 0 && isUnitToken(tail[0]) {
		cmd.Unit = tail[0]
		tail = tail[1:]
	}
	cmd.Comment = strings.Join(tail, " ")
	return cmd, nil
}

// StripBotAddress removes a leading mention of the bot (by id or by display
// name, case-insensitively) plus an optional ":" and returns the remainder.
// The second return reports whether the text addressed the bot at all.
func (p Parser) StripBotAddress(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	prefixes := []string{
		"<@" + strings.ToLower(p.botID) + ">",
		strings.ToLower(p.botName),
	}
	for _, prefix := range prefixes {
		if prefix == "" || prefix == "<@>" || !strings.HasPrefix(lower, prefix) {
			continue
		}
		rest := trimmed[len(prefix):]
		rest = strings.TrimLeft(rest, ":")
		return strings.TrimSpace(rest), true
	}
	return "", false
}

// mentionID extracts the user id from "<@U123>" or "<@U123|nick>" markup.
func mentionID(token string) (string, bool) {
	if !strings.HasPrefix(token, "<@") || !strings.HasSuffix(token, ">") {
		return "", false
	}
	id := token[2 : len(token)-1]
	if pipe := strings.IndexByte(id, '|'); pipe >= 0 {
		id = id[:pipe]
	}
	if id == "" {
		return "", false
	}
	return id, true
}

// isDecimal reports whether a token is a non-negative decimal number:
// digits with at most one dot and at least one digit.
func isDecimal(token string) bool {
	digits, dots := 0, 0
	for _, c := range token {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// isUnitToken reports whether a token can name a unit: one alphanumeric
// word. Anything else after the amount belongs to the comment.
func isUnitToken(token string) bool {
	for _, c := range token {
		if c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			continue
		}
		return false
	}
	return token != ""
}
