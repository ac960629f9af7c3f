package store

import "github.com/comitswap/swapd/model"

// snapshotRecord is the CBOR wire shape of a model.SwapState. It mirrors
// SwapState's fields directly rather than encoding SwapState itself so the
// on-disk shape stays stable if SwapState ever grows an unexported or
// derived field that shouldn't be persisted verbatim.
type snapshotRecord struct {
	Request model.Request  `cbor:"request"`
	Accept  *model.Accept  `cbor:"accept,omitempty"`
	Decline *model.Decline `cbor:"decline,omitempty"`

	Phase model.Phase `cbor:"phase"`

	AlphaState model.LedgerState `cbor:"alpha_state"`
	BetaState  model.LedgerState `cbor:"beta_state"`

	Role model.Role `cbor:"role"`

	Secret    model.Secret `cbor:"secret"`
	HasSecret bool         `cbor:"has_secret"`

	CreatedAtUnix int64  `cbor:"created_at"`
	Version       uint64 `cbor:"version"`
}

func toSnapshotRecord(state model.SwapState) snapshotRecord {
	return snapshotRecord{
		Request:       state.Request,
		Accept:        state.Accept,
		Decline:       state.Decline,
		Phase:         state.Phase,
		AlphaState:    state.AlphaState,
		BetaState:     state.BetaState,
		Role:          state.Role,
		Secret:        state.Secret,
		HasSecret:     state.HasSecret,
		CreatedAtUnix: state.CreatedAt.Unix(),
		Version:       state.Version,
	}
}

func fromSnapshotRecord(r snapshotRecord) model.SwapState {
	return model.SwapState{
		Request:    r.Request,
		Accept:     r.Accept,
		Decline:    r.Decline,
		Phase:      r.Phase,
		AlphaState: r.AlphaState,
		BetaState:  r.BetaState,
		Role:       r.Role,
		Secret:     r.Secret,
		HasSecret:  r.HasSecret,
		CreatedAt:  model.Timestamp(r.CreatedAtUnix).Time(),
		Version:    r.Version,
	}
}
