package runtime

import (
	"github.com/entropyio/go-atvm/atvm"
	"github.com/entropyio/go-atvm/config"
	"github.com/entropyio/go-atvm/logger"
)

var log = logger.NewLogger("[runtime]")

// Config is a basic type specifying certain configuration flags for running
// the ATVM.
type Config struct {
	Fees *config.FeeConfig

	InitialBalance      int64
	InitialBlockHeight  int32
	CreationBlockHeight int32

	DataSize      int
	CallStackSize int
	UserStackSize int

	// MaxRounds bounds Execute; each round confirms one block.
	MaxRounds int

	// Store, when set, persists the code image at creation and a snapshot
	// after every round.
	Store *Store
}

// sets defaults on the config
func setDefaults(cfg *Config) {
	if cfg.Fees == nil {
		cfg.Fees = config.DefaultFeeConfig
	}
	if cfg.InitialBalance == 0 {
		cfg.InitialBalance = DefaultInitialBalance
	}
	if cfg.InitialBlockHeight == 0 {
		cfg.InitialBlockHeight = DefaultInitialBlockHeight
	}
	if cfg.CreationBlockHeight == 0 {
		cfg.CreationBlockHeight = DefaultCreationBlockHeight
	}
	if cfg.DataSize == 0 {
		cfg.DataSize = 32 * config.ValueSize
	}
	if cfg.CallStackSize == 0 {
		cfg.CallStackSize = 16 * config.ValueSize
	}
	if cfg.UserStackSize == 0 {
		cfg.UserStackSize = 16 * config.ValueSize
	}
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = 100
	}
}

// ExecuteRound runs one round against the chain tip, writes the machine's
// balance back to the ledger and confirms the block under construction. The
// snapshot of the quiescent state is persisted when a store is configured.
func ExecuteRound(ms *atvm.MachineState, mc *MemChain, store *Store) error {
	ms.Execute()
	mc.SyncATBalance(ms)

	if _, err := mc.AddCurrentBlockToChain(); err != nil {
		return err
	}

	if store != nil {
		if err := store.PutSnapshot(ATAddress, ms.Serialize()); err != nil {
			return err
		}
	}

	return nil
}

// Execute sets up an in-memory, temporary, environment for the given code
// image and drives rounds until the machine finishes or the round bound is
// hit. It returns the machine's final state and the chain it ran against.
func Execute(code []byte, cfg *Config) (*atvm.MachineState, *MemChain, error) {
	if cfg == nil {
		cfg = new(Config)
	}
	setDefaults(cfg)

	ms, mc, err := NewEnv(code, cfg)
	if err != nil {
		return nil, nil, err
	}

	log.Debugf("execute code: %d bytes, data: %d bytes", len(code), cfg.DataSize)

	for round := 0; round < cfg.MaxRounds && !ms.IsFinished(); round++ {
		if err := ExecuteRound(ms, mc, cfg.Store); err != nil {
			return ms, mc, err
		}
	}

	return ms, mc, nil
}
