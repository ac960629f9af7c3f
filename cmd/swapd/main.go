// Command swapd is the atomic swap daemon: it negotiates swaps over the
// wire protocol (package wireproto), drives each swap's RFC003 state
// machine (package swap) under a persistent registry (package registry),
// watches the Bitcoin and Ethereum ledgers for HTLC lifecycle events
// (package btsieve, chainbtc, chaineth), and exposes the action resolver
// (package resolver) over gRPC (package swaprpc) for cmd/swapcli.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := swapdMain(); err != nil {
		fmt.Fprintf(os.Stderr, "swapd: %v\n", err)
		os.Exit(1)
	}
}
