package types

// AccountInfo is the per-account summary stored in the accounts table.
type AccountInfo struct {
	Head           Hash
	Representative Account
	OpenBlock      Hash
	Balance        Amount
	Modified       int64
	BlockCount     uint64
	Epoch          Epoch
}

// PendingKey identifies an unreceived send: the destination account and
// the hash of the send block crediting it.
type PendingKey struct {
	Destination Account
	Send        Hash
}

// PendingInfo is the value half of a pending entry.
type PendingInfo struct {
	Source Account
	Amount Amount
	Epoch  Epoch
}

// ConfirmationHeightInfo is the per-account cementation bookmark.
type ConfirmationHeightInfo struct {
	Height   uint64
	Frontier Hash
}
