// Package swaplog wires up the ambient logging every other package depends
// on only through the narrow btclog.Logger interface: one btclog.Backend
// writing to both stdout and a rotated log file, fanned out into one
// four-letter-tagged Logger per subsystem.
//
// Grounded on lnd.go's backendLog/ltndLog pair: a single process-wide
// btclog.Backend constructed once at package init against a writer that
// only starts rotating to disk once InitLogRotator is called (so code can
// log from package init before the daemon has parsed --logdir), using
// github.com/jrick/logrotate for the on-disk rotation.
package swaplog

import (
	"fmt"
	"os"
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// pipe is the Backend's one io.Writer: always echoes to stdout, and once
// InitLogRotator attaches a rotator also writes there. Subsystem loggers
// created before InitLogRotator runs keep working, they just don't reach
// disk until the daemon finishes parsing its config.
type pipe struct {
	mu sync.RWMutex
	r  *rotator.Rotator
}

func (p *pipe) Write(b []byte) (int, error) {
	os.Stdout.Write(b)
	p.mu.RLock()
	r := p.r
	p.mu.RUnlock()
	if r == nil {
		return len(b), nil
	}
	return r.Write(b)
}

func (p *pipe) attach(r *rotator.Rotator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.r = r
}

var (
	writer  = &pipe{}
	backend = btclog.NewBackend(writer)

	mu         sync.Mutex
	subsystems = make(map[string]btclog.Logger)
)

// InitLogRotator points the shared backend at a rotated file in addition to
// stdout. maxFileSizeKB is the per-file rollover threshold in kilobytes,
// maxFiles the number of rolled-over files to keep.
func InitLogRotator(logFile string, maxFileSizeKB int64, maxFiles int) error {
	r, err := rotator.New(logFile, maxFileSizeKB, false, maxFiles)
	if err != nil {
		return fmt.Errorf("swaplog: create log rotator for %s: %w", logFile, err)
	}
	writer.attach(r)
	return nil
}

// NewSubsystem returns the btclog.Logger for tag, creating it at
// btclog.LevelInfo on first use. tag should be four uppercase letters, per
// lnd's subsystem-tag convention (e.g. "SWAP", "REGY", "BTSV"), so log
// lines from different components line up in a fixed-width column.
func NewSubsystem(tag string) btclog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := subsystems[tag]; ok {
		return l
	}
	l := backend.Logger(tag)
	l.SetLevel(btclog.LevelInfo)
	subsystems[tag] = l
	return l
}

// SetLevel sets the level of a single already-created subsystem logger. It
// reports false if tag names no known subsystem.
func SetLevel(tag string, level btclog.Level) bool {
	mu.Lock()
	defer mu.Unlock()
	l, ok := subsystems[tag]
	if !ok {
		return false
	}
	l.SetLevel(level)
	return true
}

// SetLevels sets every known subsystem logger to level, the effect of the
// daemon's top-level --debuglevel=<level> flag.
func SetLevels(level btclog.Level) {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range subsystems {
		l.SetLevel(level)
	}
}

// logClosure defers an expensive-to-compute log argument until the message
// is actually written, the wrapper lnd.go's peer.go/channel.go use around
// spew.Sdump so tracing a wire message or transaction costs nothing once
// the subsystem logger is above LevelTrace.
type logClosure func() string

func (c logClosure) String() string {
	return c()
}

// NewLogClosure wraps fn so a btclog.Logger's %v formatting only calls it
// when the line is actually emitted, e.g.
// log.Tracef("got frame: %v", swaplog.NewLogClosure(func() string { return spew.Sdump(f) })).
func NewLogClosure(fn func() string) fmt.Stringer {
	return logClosure(fn)
}

// Subsystem tags, one per package that takes a btclog.Logger dependency.
const (
	TagDaemon    = "SWPD"
	TagRegistry  = "REGY"
	TagSwap      = "SWAP"
	TagBtsieve   = "BTSV"
	TagWireproto = "WIRE"
	TagStore     = "STOR"
	TagKeyOracle = "KORC"
	TagChainBTC  = "CBTC"
	TagChainETH  = "CETH"
	TagResolver  = "RSLV"
)

// Well-known process-wide subsystem loggers, the pattern lnd.go's
// ltndLog/srvrLog/rpcsLog package vars follow: callers that don't need a
// dedicated per-instance logger can use these directly instead of calling
// NewSubsystem themselves.
var (
	Daemon    = NewSubsystem(TagDaemon)
	Registry  = NewSubsystem(TagRegistry)
	Swap      = NewSubsystem(TagSwap)
	Btsieve   = NewSubsystem(TagBtsieve)
	Wireproto = NewSubsystem(TagWireproto)
	Store     = NewSubsystem(TagStore)
	KeyOracle = NewSubsystem(TagKeyOracle)
	ChainBTC  = NewSubsystem(TagChainBTC)
	ChainETH  = NewSubsystem(TagChainETH)
	Resolver  = NewSubsystem(TagResolver)
)
