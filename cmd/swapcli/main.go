// Command swapcli is the operator CLI for swapd's action resolver: list
// tracked swaps and see which on-chain actions (deploy/fund/redeem/refund)
// are currently available, grounded on cmd/lncli's getClient/getClientConn
// dial pattern and cli.Command table.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
	"google.golang.org/grpc"

	"github.com/comitswap/swapd/swaprpc"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[swapcli] %v\n", err)
	os.Exit(1)
}

func getClient(ctx *cli.Context) (swaprpc.SwapServiceClient, func()) {
	conn := getClientConn(ctx)
	return swaprpc.NewSwapServiceClient(conn), func() { conn.Close() }
}

func getClientConn(ctx *cli.Context) *grpc.ClientConn {
	rpcServer := ctx.GlobalString("rpcserver")
	conn, err := grpc.Dial(rpcServer, grpc.WithInsecure())
	if err != nil {
		fatal(fmt.Errorf("unable to dial %s: %w", rpcServer, err))
	}
	return conn
}

func main() {
	app := cli.NewApp()
	app.Name = "swapcli"
	app.Usage = "control plane for swapd"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rpcserver",
			Value: "localhost:10443",
			Usage: "swapd rpc listen address",
		},
	}
	app.Commands = []cli.Command{
		listSwapsCommand,
		resolveActionsCommand,
		decideSwapCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
