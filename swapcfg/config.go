// Package swapcfg implements the daemon's flag/config-file configuration,
// grounded on lnd.go's loadConfig(): an optional config file is parsed
// first, then command-line flags override it, using
// github.com/jessevdk/go-flags' struct-tag-driven parser throughout.
package swapcfg

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "swapd.conf"
	defaultDataDirname    = "data"
	defaultLogFilename    = "swapd.log"
	defaultRPCPort        = 10443
	defaultPollInterval   = 15 // seconds
	defaultMaxLogFiles    = 3
	defaultMaxLogFileSize = 10 * 1024 // KB
)

// BitcoinConfig is the Bitcoin-ledger sub-config, the per-chain struct lnd's
// cfg.Bitcoin/cfg.Litecoin pair is grounded on.
type BitcoinConfig struct {
	Active  bool   `long:"active" description:"use Bitcoin as a swap ledger"`
	Network string `long:"network" description:"mainnet, testnet, or regtest" default:"regtest"`
	RPCHost string `long:"rpchost" description:"host:port of the backing btcd/bitcoind RPC server"`
	RPCUser string `long:"rpcuser" description:"username for the backing RPC server"`
	RPCPass string `long:"rpcpass" description:"password for the backing RPC server"`
}

// EthereumConfig is the Ethereum-ledger sub-config.
type EthereumConfig struct {
	Active  bool   `long:"active" description:"use Ethereum as a swap ledger"`
	ChainID uint32 `long:"chainid" description:"EVM chain id" default:"1337"`
	RPCURL  string `long:"rpcurl" description:"HTTP or WS URL of the backing go-ethereum/geth node"`
}

// Config is the top-level daemon configuration: defaults live in struct
// tags exactly as lnd.go's config does, so DefaultConfig and the flags
// parser agree on them by construction.
type Config struct {
	ConfigFile string `short:"C" long:"configfile" description:"path to configuration file"`
	DataDir    string `short:"d" long:"datadir" description:"directory to store swap state and logs"`
	LogDir     string `long:"logdir" description:"directory to store log files"`
	DebugLevel string `long:"debuglevel" description:"logging level for all subsystems" default:"info"`

	RPCListen     string `long:"rpclisten" description:"host:port for the action-resolver gRPC surface"`
	WireListen    string `long:"wirelisten" description:"host:port this node accepts SWAP negotiation connections on"`
	MetricsListen string `long:"metricslisten" description:"host:port for the Prometheus /metrics endpoint"`

	PollIntervalSeconds uint32 `long:"pollinterval" description:"seconds between successive btsieve poll cycles" default:"15"`

	SeedFile string `long:"seedfile" description:"path to the keyoracle master seed"`

	ManualAccept bool `long:"manualaccept" description:"leave every incoming swap pending in Start until an operator accepts or declines it via swapcli, instead of auto-accepting"`

	Bitcoin  BitcoinConfig  `group:"Bitcoin" namespace:"bitcoin"`
	Ethereum EthereumConfig `group:"Ethereum" namespace:"ethereum"`

	MaxLogFiles    int   `long:"maxlogfiles" description:"number of rotated log files to keep" default:"3"`
	MaxLogFileSize int64 `long:"maxlogfilesize" description:"log file rollover threshold in KB" default:"10240"`
}

// DefaultConfig returns a Config with every default populated, suitable for
// constructing before either a config file or flags have been applied.
func DefaultConfig() Config {
	dataDir := defaultDataDir()
	return Config{
		DataDir:             dataDir,
		LogDir:              filepath.Join(dataDir, "logs"),
		DebugLevel:          "info",
		RPCListen:           fmt.Sprintf("localhost:%d", defaultRPCPort),
		WireListen:          "localhost:9735",
		MetricsListen:       "localhost:9736",
		PollIntervalSeconds: defaultPollInterval,
		SeedFile:            filepath.Join(dataDir, "seed.key"),
		Bitcoin: BitcoinConfig{
			Network: "regtest",
		},
		Ethereum: EthereumConfig{
			ChainID: 1337,
		},
		MaxLogFiles:    defaultMaxLogFiles,
		MaxLogFileSize: defaultMaxLogFileSize,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultDataDirname
	}
	return filepath.Join(home, ".swapd", defaultDataDirname)
}

// LoadConfig parses args (typically os.Args[1:]) the way lnd.go's
// loadConfig does: a first pass extracts --configfile (if any) and an
// INI-style config file is parsed into defaults, then the full flag set is
// parsed again so command-line flags take precedence over the file.
func LoadConfig(args []string) (*Config, error) {
	preCfg := DefaultConfig()
	preParser := flags.NewParser(&preCfg, flags.Default|flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}

	configFile := preCfg.ConfigFile
	if configFile == "" {
		configFile = filepath.Join(preCfg.DataDir, defaultConfigFilename)
	}

	cfg := DefaultConfig()
	if _, err := os.Stat(configFile); err == nil {
		fileParser := flags.NewParser(&cfg, flags.Default)
		if err := flags.NewIniParser(fileParser).ParseFile(configFile); err != nil {
			return nil, fmt.Errorf("swapcfg: parse config file %s: %w", configFile, err)
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate enforces the cross-field invariants that struct tags alone
// cannot express.
func (c *Config) validate() error {
	if !c.Bitcoin.Active && !c.Ethereum.Active {
		return fmt.Errorf("swapcfg: at least one of --bitcoin.active, --ethereum.active must be set")
	}
	if c.Bitcoin.Active && c.Bitcoin.RPCHost == "" {
		return fmt.Errorf("swapcfg: --bitcoin.rpchost is required when Bitcoin is active")
	}
	if c.Ethereum.Active && c.Ethereum.RPCURL == "" {
		return fmt.Errorf("swapcfg: --ethereum.rpcurl is required when Ethereum is active")
	}
	if c.PollIntervalSeconds == 0 {
		return fmt.Errorf("swapcfg: --pollinterval must be positive")
	}
	return nil
}

// LogFile returns the full path to the daemon's rotated log file.
func (c *Config) LogFile() string {
	return filepath.Join(c.LogDir, defaultLogFilename)
}
