package main

import (
	"github.com/supperr-coder/dexscreener-monitor-bot/internal/cli"
)

func main() {
	cli.Execute()
}
