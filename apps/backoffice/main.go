package main

import (
	"github.com/harborlabs/harbor-backoffice/internal/cli"
)

func main() {
	cli.Execute()
}
