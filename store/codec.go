package store

import (
	"encoding/binary"

	"github.com/coreledger/coreledger-node/types"
)

// encodeBlockAndSideband appends a sideband encoding after a block's
// own wire bytes.
func encodeBlockAndSideband(b types.Block, sb types.Sideband) []byte {
	out := b.Serialize()
	out = append(out, encodeSideband(sb)...)
	return out
}

func decodeBlockAndSideband(buf []byte) (types.Block, types.Sideband, error) {
	if len(buf) < sidebandLen {
		return nil, types.Sideband{}, errShort
	}
	blockLen := len(buf) - sidebandLen
	blk, err := types.DeserializeBlock(buf[:blockLen])
	if err != nil {
		return nil, types.Sideband{}, err
	}
	sb, err := decodeSideband(buf[blockLen:])
	if err != nil {
		return nil, types.Sideband{}, err
	}
	return blk, sb, nil
}

const sidebandLen = types.HashSize + 8 + types.HashSize + types.AmountSize + 8 + 1 + 1 + 1 + 1 + 1 + types.HashSize

func encodeSideband(sb types.Sideband) []byte {
	out := make([]byte, 0, sidebandLen)
	out = append(out, sb.Account[:]...)
	var height [8]byte
	binary.BigEndian.PutUint64(height[:], sb.Height)
	out = append(out, height[:]...)
	out = append(out, sb.Successor[:]...)
	out = append(out, sb.Balance.Bytes()...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(sb.Timestamp))
	out = append(out, ts[:]...)
	out = append(out, boolByte(sb.Details.IsSend), boolByte(sb.Details.IsReceive), boolByte(sb.Details.IsEpoch))
	out = append(out, byte(sb.Details.Epoch))
	out = append(out, byte(sb.SourceEpoch))
	out = append(out, sb.Representative[:]...)
	return out
}

func decodeSideband(buf []byte) (types.Sideband, error) {
	if len(buf) != sidebandLen {
		return types.Sideband{}, errShort
	}
	var sb types.Sideband
	off := 0
	copy(sb.Account[:], buf[off:off+types.HashSize])
	off += types.HashSize
	sb.Height = binary.BigEndian.Uint64(buf[off : off+8])
	off += 8
	copy(sb.Successor[:], buf[off:off+types.HashSize])
	off += types.HashSize
	bal, err := types.AmountFromBytes(buf[off : off+types.AmountSize])
	if err != nil {
		return types.Sideband{}, err
	}
	sb.Balance = bal
	off += types.AmountSize
	sb.Timestamp = int64(binary.BigEndian.Uint64(buf[off : off+8]))
	off += 8
	sb.Details.IsSend = buf[off] != 0
	off++
	sb.Details.IsReceive = buf[off] != 0
	off++
	sb.Details.IsEpoch = buf[off] != 0
	off++
	sb.Details.Epoch = types.Epoch(buf[off])
	off++
	sb.SourceEpoch = types.Epoch(buf[off])
	off++
	copy(sb.Representative[:], buf[off:off+types.HashSize])
	return sb, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func encodeAccountInfo(a types.AccountInfo) []byte {
	out := make([]byte, 0, types.HashSize*3+types.AmountSize+8+8+1)
	out = append(out, a.Head[:]...)
	out = append(out, a.Representative[:]...)
	out = append(out, a.OpenBlock[:]...)
	out = append(out, a.Balance.Bytes()...)
	var mod [8]byte
	binary.BigEndian.PutUint64(mod[:], uint64(a.Modified))
	out = append(out, mod[:]...)
	var cnt [8]byte
	binary.BigEndian.PutUint64(cnt[:], a.BlockCount)
	out = append(out, cnt[:]...)
	out = append(out, byte(a.Epoch))
	return out
}

func decodeAccountInfo(buf []byte) (types.AccountInfo, error) {
	const want = types.HashSize*3 + types.AmountSize + 8 + 8 + 1
	if len(buf) != want {
		return types.AccountInfo{}, errShort
	}
	var a types.AccountInfo
	off := 0
	copy(a.Head[:], buf[off:off+types.HashSize])
	off += types.HashSize
	copy(a.Representative[:], buf[off:off+types.HashSize])
	off += types.HashSize
	copy(a.OpenBlock[:], buf[off:off+types.HashSize])
	off += types.HashSize
	bal, err := types.AmountFromBytes(buf[off : off+types.AmountSize])
	if err != nil {
		return types.AccountInfo{}, err
	}
	a.Balance = bal
	off += types.AmountSize
	a.Modified = int64(binary.BigEndian.Uint64(buf[off : off+8]))
	off += 8
	a.BlockCount = binary.BigEndian.Uint64(buf[off : off+8])
	off += 8
	a.Epoch = types.Epoch(buf[off])
	return a, nil
}

func encodePendingInfo(p types.PendingInfo) []byte {
	out := make([]byte, 0, types.HashSize+types.AmountSize+1)
	out = append(out, p.Source[:]...)
	out = append(out, p.Amount.Bytes()...)
	out = append(out, byte(p.Epoch))
	return out
}

func decodePendingInfo(buf []byte) (types.PendingInfo, error) {
	const want = types.HashSize + types.AmountSize + 1
	if len(buf) != want {
		return types.PendingInfo{}, errShort
	}
	var p types.PendingInfo
	copy(p.Source[:], buf[0:types.HashSize])
	amt, err := types.AmountFromBytes(buf[types.HashSize : types.HashSize+types.AmountSize])
	if err != nil {
		return types.PendingInfo{}, err
	}
	p.Amount = amt
	p.Epoch = types.Epoch(buf[types.HashSize+types.AmountSize])
	return p, nil
}

func pendingKeyBytes(k types.PendingKey) []byte {
	out := make([]byte, 0, types.HashSize*2)
	out = append(out, k.Destination[:]...)
	out = append(out, k.Send[:]...)
	return out
}

func encodeConfirmationHeight(c types.ConfirmationHeightInfo) []byte {
	out := make([]byte, 0, 8+types.HashSize)
	var h [8]byte
	binary.BigEndian.PutUint64(h[:], c.Height)
	out = append(out, h[:]...)
	out = append(out, c.Frontier[:]...)
	return out
}

func decodeConfirmationHeight(buf []byte) (types.ConfirmationHeightInfo, error) {
	const want = 8 + types.HashSize
	if len(buf) != want {
		return types.ConfirmationHeightInfo{}, errShort
	}
	var c types.ConfirmationHeightInfo
	c.Height = binary.BigEndian.Uint64(buf[0:8])
	copy(c.Frontier[:], buf[8:])
	return c, nil
}

type shortErr string

func (e shortErr) Error() string { return string(e) }

const errShort = shortErr("store: buffer too short")
