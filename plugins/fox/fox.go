/*
Package fox provides a command that replies with a random fox image from randomfox.ca.

Setup can be done by importing this package since sarah.RegisterCommandProps() is called in init().
To change the API endpoint or the timeout on the fly, place fox.yaml under the slack directory of
the watched configuration directory and register sarah.ConfigWatcher.

	package main

	import (
	  _ "github.com/oklahomer/go-sarah-addons/plugins/fox"
	  "github.com/oklahomer/go-sarah/v4/watchers"
	)

	func main() {
	  watcher, _ := watchers.NewFileWatcher(context.TODO(), "/path/to/config/dir/")
	  sarah.RegisterConfigWatcher(watcher)

	  // Do the rest

	}
*/
package fox

import (
	"context"
	"github.com/oklahomer/go-sarah/v4"
	"github.com/oklahomer/go-sarah/v4/slack"
	"github.com/oklahomer/golack/v2/webapi"
	"regexp"
)

func init() {
	sarah.RegisterCommandProps(SlackProps)
}

// MatchPattern defines regular expression pattern that is checked against user input.
var MatchPattern = regexp.MustCompile(`^\.(random)?fox\b`)

// SlackProps provide a set of command configuration variables for fox command.
// Since this sets *CommandConfig in ConfigurableFunc, fox.yaml is observed and the command is re-built on change.
var SlackProps = sarah.NewCommandPropsBuilder().
	BotType(slack.SLACK).
	Identifier("fox").
	ConfigurableFunc(NewCommandConfig(), SlackCommandFunc).
	Instruction(`Input ".fox" or ".randomfox" to see a random fox`).
	MatchPattern(MatchPattern).
	MustBuild()

// CommandConfig contains some configuration variables for fox command.
type CommandConfig struct {
	Client *Config `json:"client" yaml:"client"`
}

// NewCommandConfig creates and returns CommandConfig with default settings.
func NewCommandConfig() *CommandConfig {
	return &CommandConfig{
		Client: NewConfig(),
	}
}

// SlackCommandFunc is a function that satisfies sarah.CommandConfig type.
// An API error is returned as-is so go-sarah logs it.
func SlackCommandFunc(ctx context.Context, input sarah.Input, config sarah.CommandConfig) (*sarah.CommandResponse, error) {
	typed := config.(*CommandConfig)
	floof, err := NewClient(typed.Client).Floof(ctx)
	if err != nil {
		return nil, err
	}

	attachments := []*webapi.MessageAttachment{
		{
			Fallback:  floof.Image,
			Title:     "Random fox",
			TitleLink: floof.Link,
			ImageURL:  floof.Image,
		},
	}
	return slack.NewResponse(input, floof.Image, slack.RespWithAttachments(attachments))
}
