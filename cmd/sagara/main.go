package main

import (
	"os"

	"github.com/HAYASAKA-Ryosuke/sag-sub000/pkg/cli"
)

func main() {
	os.Exit(cli.Entry(os.Args[1:], os.Stdout, os.Stderr))
}
