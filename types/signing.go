package types

import "crypto/ed25519"

// VerifyBlockSignature checks a block's signature against the account
// believed to own its chain. For legacy blocks the caller (the ledger
// engine) resolves that account from the chain the block extends;
// Open and State blocks carry it directly.
func VerifyBlockSignature(account Account, b Block) bool {
	h := b.Hash()
	sig := b.Signature()
	return ed25519.Verify(ed25519.PublicKey(account[:]), h[:], sig[:])
}
