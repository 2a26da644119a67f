// Command kiotactl sends one request through a configured gokiota adapter
// and prints the response body.
//
//	kiotactl -c kiotactl.yml -X POST -H "X-Trace: 1" -d '{"name":"Ada"}' '{+baseurl}/users'
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
