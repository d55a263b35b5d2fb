package types

// Epoch enumerates the network epoch of an account. Epoch upgrades are
// carried by state blocks whose link matches the epoch marker for the
// target epoch and are signed by that epoch's designated signer.
type Epoch uint8

const (
	EpochUnspecified Epoch = iota
	Epoch0
	Epoch1
	Epoch2
)

func (e Epoch) String() string {
	switch e {
	case Epoch0:
		return "epoch_0"
	case Epoch1:
		return "epoch_1"
	case Epoch2:
		return "epoch_2"
	default:
		return "epoch_unspecified"
	}
}

// EpochLink returns the reserved link value marking an upgrade to e, or
// false for epochs with no marker (the unspecified zero epoch).
func EpochLink(e Epoch) (Hash, bool) {
	h, ok := epochLinks[e]
	return h, ok
}

// epochLinks are network constants: fixed, well-known hashes reserved
// as epoch-upgrade markers. They are fixed at package level for this
// module's default network; no construction-time parameter replaces
// them.
var epochLinks = map[Epoch]Hash{
	Epoch1: {0x65, 0x70, 0x6f, 0x63, 0x68, 0x20, 0x76, 0x31, 0x20, 0x62, 0x6c, 0x6f, 0x63, 0x6b, 0x20, 0x76,
		0x31, 0x20, 0x62, 0x6c, 0x6f, 0x63, 0x6b, 0x20, 0x76, 0x31, 0x20, 0x62, 0x6c, 0x6f, 0x63, 0x6b},
	Epoch2: {0x65, 0x70, 0x6f, 0x63, 0x68, 0x20, 0x76, 0x32, 0x20, 0x62, 0x6c, 0x6f, 0x63, 0x6b, 0x20, 0x76,
		0x32, 0x20, 0x62, 0x6c, 0x6f, 0x63, 0x6b, 0x20, 0x76, 0x32, 0x20, 0x62, 0x6c, 0x6f, 0x63, 0x6b},
}

// EpochSigners maps each epoch to the account authorized to sign an
// upgrade to it. It is supplied at construction through ledger.Config.
type EpochSigners map[Epoch]Account
