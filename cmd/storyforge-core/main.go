package main

import (
	"os"

	"github.com/storyforge-labs/storyforge-core/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
