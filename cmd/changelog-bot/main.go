package main

import (
	"changelog-bot/cmd/changelog-bot/commands"
	"changelog-bot/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext()
	defer cancel()
	commands.ExecuteContext(ctx)
}
