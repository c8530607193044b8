package runtime

import (
	"github.com/entropyio/go-atvm/atvm"
)

// NewEnv builds a fresh chain host and a machine bound to it from the given
// config. The code image is persisted once at creation when a store is
// configured; per-round snapshots never include it.
func NewEnv(code []byte, cfg *Config) (*atvm.MachineState, *MemChain, error) {
	mc := NewMemChain(cfg.Fees, cfg.InitialBalance, cfg.InitialBlockHeight, cfg.CreationBlockHeight)

	ms, err := atvm.NewMachineState(mc, cfg.CreationBlockHeight, code, cfg.DataSize, cfg.CallStackSize, cfg.UserStackSize)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Store != nil {
		if err := cfg.Store.PutCode(ATAddress, code); err != nil {
			return nil, nil, err
		}
	}

	return ms, mc, nil
}
