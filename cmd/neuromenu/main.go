package main

import (
	"github.com/alecthomas/kong"

	"github.com/vitaminmoo/neuromenu/internal/cli"
)

func main() {
	var c cli.CLI
	ctx := kong.Parse(&c,
		kong.Name("neuromenu"),
		kong.Description("Turn headset menu notifications into spoken choices."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&c))
}
