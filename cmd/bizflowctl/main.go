package main

import (
	"github.com/subosito/gotenv"

	"github.com/garyjia/bizflow/internal/cli"
)

func main() {
	_ = gotenv.Load()
	cli.Execute()
}
