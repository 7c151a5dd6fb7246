// Package shame provides a command that rings a bell on the channel to shame the mentioned user.
//
// This implements sarah.Command directly since the command has no configuration to supervise.
// Feed Command to sarah.RegisterCommand or Bot.AppendCommand.
//
//	sarah.RegisterCommand(slack.SLACK, shame.Command)
package shame

import (
	"context"
	"fmt"
	"github.com/oklahomer/go-sarah/v4"
	"github.com/oklahomer/go-sarah/v4/slack"
	"regexp"
)

const usage = "Input .shame followed by a mention e.g. .shame @someone"

var (
	matchPattern   = regexp.MustCompile(`^\.shame\b`)
	mentionPattern = regexp.MustCompile(`<@([UW][A-Z0-9]+)(?:\|[^>]+)?>`)
)

// Message returns the bell message for the given mention.
func Message(mention string) string {
	return fmt.Sprintf("🔔 SHAME 🔔 %s 🔔 SHAME 🔔", mention)
}

// Mention returns the first Slack user mention in the text, or an empty string when there is none.
func Mention(text string) string {
	matched := mentionPattern.FindStringSubmatch(text)
	if matched == nil {
		return ""
	}
	return fmt.Sprintf("<@%s>", matched[1])
}

type command struct {
}

// Identifier returns command ID.
func (c *command) Identifier() string {
	return "shame"
}

// Execute replies with the bell message, or with the usage when no user is mentioned.
func (c *command) Execute(_ context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
	mention := Mention(sarah.StripMessage(matchPattern, input.Message()))
	if mention == "" {
		return slack.NewResponse(input, usage)
	}
	return slack.NewResponse(input, Message(mention))
}

// Instruction provides a guide for the requesting user.
func (c *command) Instruction(_ *sarah.HelpInput) string {
	return usage
}

// Match checks if the user input matches and this Command must be executed.
func (c *command) Match(input sarah.Input) bool {
	return matchPattern.MatchString(input.Message())
}

// Command is a command instance that can directly fed to sarah.RegisterCommand or Bot.AppendCommand.
var Command = &command{}
