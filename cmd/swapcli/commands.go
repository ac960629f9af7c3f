package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/comitswap/swapd/swaprpc"
)

func printJSON(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(err)
	}
	os.Stdout.Write(b)
	os.Stdout.Write([]byte("\n"))
}

var listSwapsCommand = cli.Command{
	Name:  "listswaps",
	Usage: "list every swap the daemon currently tracks.",
	Action: func(ctx *cli.Context) error {
		client, cleanUp := getClient(ctx)
		defer cleanUp()

		resp, err := client.ListSwaps(context.Background(), &swaprpc.ListSwapsRequest{})
		if err != nil {
			return err
		}
		printJSON(resp)
		return nil
	},
}

var resolveActionsCommand = cli.Command{
	Name:      "resolveactions",
	Usage:     "list actions available to a role on a swap.",
	ArgsUsage: "swap-id role",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 2 {
			return fmt.Errorf("usage: resolveactions swap-id role")
		}
		client, cleanUp := getClient(ctx)
		defer cleanUp()

		resp, err := client.ResolveActions(context.Background(), &swaprpc.ResolveActionsRequest{
			SwapId: ctx.Args().Get(0),
			Role:   ctx.Args().Get(1),
		})
		if err != nil {
			return err
		}
		printJSON(resp)
		return nil
	},
}

var decideSwapCommand = cli.Command{
	Name:      "decideswap",
	Usage:     "accept or decline a swap offering the accept/decline action (requires --manualaccept on the daemon).",
	ArgsUsage: "swap-id accept|decline [reason]",
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() < 2 {
			return fmt.Errorf("usage: decideswap swap-id accept|decline [reason]")
		}

		var approve bool
		switch ctx.Args().Get(1) {
		case "accept":
			approve = true
		case "decline":
			approve = false
		default:
			return fmt.Errorf("second argument must be %q or %q", "accept", "decline")
		}

		var reason string
		if ctx.NArg() > 2 {
			reason = ctx.Args().Get(2)
		}

		client, cleanUp := getClient(ctx)
		defer cleanUp()

		resp, err := client.DecideSwap(context.Background(), &swaprpc.DecideSwapRequest{
			SwapId:  ctx.Args().Get(0),
			Approve: approve,
			Reason:  reason,
		})
		if err != nil {
			return err
		}
		printJSON(resp)
		return nil
	},
}
