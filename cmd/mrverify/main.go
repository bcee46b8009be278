// mrverify checks that a key/value store answers map/reduce and secondary
// index queries exactly as expected.
package main

import (
	"context"
	"os"

	"github.com/roach88/mrverify/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
