package notify

import (
	"github.com/goliatone/go-forms/core"
	"github.com/goliatone/go-forms/discord"
)

var (
	_ core.Notifier = (*Dispatcher)(nil)
	_ API           = (*discord.Client)(nil)
)
