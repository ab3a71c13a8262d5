package chat

import (
	"strings"
)

// Command is a routed chat action. Slash commands and inline button callbacks both resolve to
// one.
type Command int

const (
	CmdUnknown Command = iota
	CmdStart
	CmdMenu
	CmdProfile
	CmdDeposit
	CmdWithdraw
	CmdStats
	CmdCancel
	CmdCheckDeposit
)

var commandNames = map[Command]string{
	CmdUnknown:      "unknown",
	CmdStart:        "start",
	CmdMenu:         "main",
	CmdProfile:      "profile",
	CmdDeposit:      "deposit",
	CmdWithdraw:     "withdraw",
	CmdStats:        "stats",
	CmdCancel:       "cancel",
	CmdCheckDeposit: "check_dep",
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}

	return commandNames[CmdUnknown]
}

// checkDepositPrefix prefixes the invoice id in a "check payment" button.
const checkDepositPrefix = "check_dep_"

var slashCommands = map[string]Command{
	"start":    CmdStart,
	"profile":  CmdProfile,
	"deposit":  CmdDeposit,
	"withdraw": CmdWithdraw,
	"stats":    CmdStats,
	"cancel":   CmdCancel,
}

var callbackCommands = map[string]Command{
	"main":     CmdMenu,
	"profile":  CmdProfile,
	"deposit":  CmdDeposit,
	"withdraw": CmdWithdraw,
	"cancel":   CmdCancel,
}

// ParseSlash maps the name of a slash command, without the slash or bot suffix.
func ParseSlash(name string) Command {
	return slashCommands[strings.ToLower(name)]
}

// ParseCallback maps inline button data onto a command and its argument.
func ParseCallback(data string) (Command, string) {
	if id, ok := strings.CutPrefix(data, checkDepositPrefix); ok {
		if id == "" {
			return CmdUnknown, ""
		}

		return CmdCheckDeposit, id
	}

	return callbackCommands[data], ""
}

func checkDepositData(invoiceID string) string {
	return checkDepositPrefix + invoiceID
}
