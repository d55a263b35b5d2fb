package types

// BlockDetails classifies a block beyond its wire variant: whether it
// moves value and, if so, in which direction, plus its epoch.
type BlockDetails struct {
	IsSend    bool
	IsReceive bool
	IsEpoch   bool
	Epoch     Epoch
}

// Sideband is contextual metadata computed by the ledger engine when a
// block is accepted, and stored alongside the block.
// Account is carried here (rather than reconstructed by walking the
// chain to its Open block) so that legacy blocks, which carry no
// account field of their own, can be resolved to an owner in O(1).
type Sideband struct {
	Account     Account
	Height      uint64
	Successor   Hash // zero if this is the account's current head
	Balance     Amount
	Timestamp   int64
	Details     BlockDetails
	SourceEpoch Epoch
	// Representative is the account's representative immediately after
	// this block, carried here so a rollback can restore it without
	// re-deriving it from block-variant-specific fields (legacy
	// Send/Receive blocks carry no representative of their own).
	Representative Account
}
