package feed

import (
	"crypto/rand"
	"fmt"
	"time"

	dtcbor "github.com/datatrails/go-datatrails-common/cbor"
	dtcose "github.com/datatrails/go-datatrails-common/cose"
	"github.com/veraison/go-cose"
)

// State is the feed state a checkpoint commits to. The root digest is
// detached before publication so verifiers are forced to recompute it
// from their own copy of the log.
type State struct {
	// TreeLength is the committed block count the checkpoint covers.
	TreeLength uint64 `cbor:"1,keyasint"`
	ByteLength uint64 `cbor:"2,keyasint"`
	Root       []byte `cbor:"3,keyasint,omitempty"`
	// Timestamp is unix milliseconds at signing, allowing the same
	// state to be re-signed.
	Timestamp int64 `cbor:"4,keyasint"`
}

// Checkpoint is a decoded signed checkpoint message.
type Checkpoint struct {
	Sign1Message *dtcose.CoseSign1Message
	State        State
}

// RootSigner produces signed commitments to a feed's reconstructed
// state. A checkpoint should only be published after the caller has
// checked consistency against the previously signed state.
type RootSigner struct {
	codec dtcbor.CBORCodec
}

// NewCheckpointCodec returns the deterministic CBOR codec checkpoints
// are encoded with.
func NewCheckpointCodec() (dtcbor.CBORCodec, error) {
	codec, err := dtcbor.NewCBORCodec(
		dtcbor.NewDeterministicEncOpts(),
		dtcbor.NewDeterministicDecOpts(),
	)
	if err != nil {
		return dtcbor.CBORCodec{}, err
	}
	return codec, nil
}

func NewRootSigner(codec dtcbor.CBORCodec) RootSigner {
	return RootSigner{codec: codec}
}

// Sign1 signs the feed's current state with its signing key and
// returns the encoded COSE Sign1 message, with the root detached.
func (rs RootSigner) Sign1(f *Feed) ([]byte, error) {
	if !f.Writable() {
		return nil, fmt.Errorf("%w: checkpoints require the signing key", ErrNotWritable)
	}

	state := State{
		TreeLength: f.length,
		ByteLength: f.byteLength,
		Root:       RootHash(f.roots),
		Timestamp:  time.Now().UnixMilli(),
	}
	payload, err := rs.codec.MarshalCBOR(state)
	if err != nil {
		return nil, err
	}

	signer, err := cose.NewSigner(cose.AlgorithmEdDSA, f.secretKey)
	if err != nil {
		return nil, err
	}
	msg := cose.Sign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{
				cose.HeaderLabelKeyID: []byte(f.publicKey),
			},
		},
		Payload: payload,
	}
	if err = msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, err
	}

	// Detach the root: it is recomputed from the log at verification.
	state.Root = nil
	if msg.Payload, err = rs.codec.MarshalCBOR(state); err != nil {
		return nil, err
	}
	return msg.MarshalCBOR()
}

// DecodeCheckpoint decodes a signed checkpoint without verifying it.
// The decoded state carries no root; see VerifyCheckpoint.
func DecodeCheckpoint(codec dtcbor.CBORCodec, msg []byte) (*Checkpoint, error) {
	signed, err := dtcose.NewCoseSign1MessageFromCBOR(msg)
	if err != nil {
		return nil, err
	}
	var state State
	if err = codec.UnmarshalInto(signed.Payload, &state); err != nil {
		return nil, err
	}
	return &Checkpoint{Sign1Message: signed, State: state}, nil
}

// VerifyCheckpoint checks that cp was signed over f's key and that its
// committed state matches the reconstructed feed. The root digest is
// recomputed from the feed's own root set and reattached before
// signature verification, so a tampered store fails here even when the
// message itself is intact.
func (f *Feed) VerifyCheckpoint(codec dtcbor.CBORCodec, cp *Checkpoint) error {
	if cp.State.TreeLength != f.length || cp.State.ByteLength != f.byteLength {
		return fmt.Errorf(
			"%w: checkpoint covers %d blocks / %d bytes, feed has %d / %d",
			ErrCheckpointState, cp.State.TreeLength, cp.State.ByteLength, f.length, f.byteLength)
	}

	state := cp.State
	state.Root = RootHash(f.roots)
	payload, err := codec.MarshalCBOR(state)
	if err != nil {
		return err
	}
	cp.Sign1Message.Payload = payload

	verifier, err := cose.NewVerifier(cose.AlgorithmEdDSA, f.publicKey)
	if err != nil {
		return err
	}
	if err = cp.Sign1Message.Verify(nil, verifier); err != nil {
		return fmt.Errorf("%w: %v", ErrCheckpointVerify, err)
	}
	return nil
}
