//go:build integration

// This file only builds under `go test -tags integration`: it spins up a
// real bitcoind regtest node in a Docker container via dockertest (the
// same tool the teacher's go.mod carries for its own Postgres/etcd
// backend integration tests) rather than mocking rpcclient.Client, so
// LatestBlock/BlockByHash are exercised against an actual RPC server
// instead of against wire-format assumptions alone.
package chainbtc

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/require"
)

func TestConnectorAgainstRealBitcoindRegtest(t *testing.T) {
	pool, err := dockertest.NewPool("")
	require.NoError(t, err)

	resource, err := pool.Run("ruimarinho/bitcoin-core", "latest", []string{
		"REGTEST=1",
		"BITCOIN_RPCUSER=swapd",
		"BITCOIN_RPCPASSWORD=swapd",
	})
	require.NoError(t, err)
	defer pool.Purge(resource)

	host := fmt.Sprintf("localhost:%s", resource.GetPort("18443/tcp"))

	var client *rpcclient.Client
	err = pool.Retry(func() error {
		c, err := rpcclient.New(&rpcclient.ConnConfig{
			Host:         host,
			User:         "swapd",
			Pass:         "swapd",
			HTTPPostMode: true,
			DisableTLS:   true,
		}, nil)
		if err != nil {
			return err
		}
		if _, err := c.GetBlockCount(); err != nil {
			return err
		}
		client = c
		return nil
	})
	require.NoError(t, err)
	defer client.Shutdown()

	conn := New(client, &chaincfg.RegressionNetParams)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	block, err := conn.LatestBlock(ctx)
	require.NoError(t, err)

	byHash, err := conn.BlockByHash(ctx, block.Hash)
	require.NoError(t, err)
	require.Equal(t, block.Hash, byHash.Hash)
}
