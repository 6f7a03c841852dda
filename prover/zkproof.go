package prover

import (
	"bytes"
	"encoding/hex"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
	"github.com/kysee/zktx/types"
)

// ProofSize is the fixed slot a proof occupies on the wire. The compressed
// Groth16 encoding is zero padded up to it.
const ProofSize = 192

type Proof [ProofSize]byte

func (p Proof) Hex() string {
	return hex.EncodeToString(p[:])
}

func ParseProof(b []byte) (Proof, error) {
	var p Proof
	if len(b) != ProofSize {
		return p, errs.Newf(errs.ParseError, "proof", "expected %d bytes, got %d", ProofSize, len(b))
	}
	copy(p[:], b)
	return p, nil
}

func encodeProof(proof groth16.Proof) (Proof, error) {
	var out Proof
	buf := bytes.NewBuffer(nil)
	if _, err := proof.WriteTo(buf); err != nil {
		return out, errs.Wrap(errs.ProofError, err, "encode proof")
	}
	if buf.Len() > ProofSize {
		return out, errs.Newf(errs.ProofError, "encode proof", "encoding is %d bytes", buf.Len())
	}
	copy(out[:], buf.Bytes())
	return out, nil
}

func decodeProof(p Proof) (groth16.Proof, error) {
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(p[:])); err != nil {
		return nil, errs.Wrap(errs.ProofError, err, "decode proof")
	}
	return proof, nil
}

func prove(keys *circuitKeys, assignment frontend.Circuit, op string) (Proof, error) {
	wtn, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return Proof{}, errs.Wrap(errs.ProofError, err, op)
	}
	proof, err := groth16.Prove(keys.ccs, keys.pk, wtn)
	if err != nil {
		return Proof{}, errs.Wrap(errs.ProofError, err, op)
	}
	return encodeProof(proof)
}

func verify(keys *circuitKeys, p Proof, assignment frontend.Circuit, op string) error {
	proof, err := decodeProof(p)
	if err != nil {
		return err
	}
	pubWtn, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return errs.Wrap(errs.ProofError, err, op)
	}
	if err := groth16.Verify(proof, keys.vk, pubWtn); err != nil {
		return errs.Wrap(errs.ProofError, err, op)
	}
	return nil
}

// SpendInputs is the private data behind a spend proof.
type SpendInputs struct {
	ProofGenerationKey types.ProofGenerationKey
	Randomness         *crypto.Scalar
	Note               *types.Note
	ValueRandomness    *crypto.Scalar
	Witness            types.Witness
}

// SpendPublic is what a verifier sees of a spend.
type SpendPublic struct {
	RandomizedKey   *crypto.Point
	ValueCommitment *crypto.Point
	Anchor          [32]byte
	Nullifier       types.Nullifier
}

// CheckWitness confirms w authenticates cm at the compiled tree depth.
func (p *Params) CheckWitness(w types.Witness, cm types.NoteCommitment) error {
	path := w.AuthenticationPath()
	if len(path) != p.depth {
		return errs.Newf(errs.ProofError, "witness", "path length %d, tree depth %d", len(path), p.depth)
	}
	if types.WitnessRoot(path, cm) != w.RootHash() {
		return errs.New(errs.ProofError, "witness", "root hash mismatch")
	}
	return nil
}

// ProveSpend proves in.Note is in the tree under the witness root and is
// owned by the proof generation key.
func (p *Params) ProveSpend(in *SpendInputs) (Proof, *SpendPublic, error) {
	vk := in.ProofGenerationKey.ViewKey()
	if vk.OwnerTag() != in.Note.Owner.Owner {
		return Proof{}, nil, errs.New(errs.ProofError, "prove spend", "note is not owned by the proof generation key")
	}
	cm := in.Note.Commitment()
	if err := p.CheckWitness(in.Witness, cm); err != nil {
		return Proof{}, nil, err
	}

	position := types.WitnessPosition(in.Witness)
	pub := &SpendPublic{
		RandomizedKey:   crypto.RandomizePublic(in.ProofGenerationKey.AK, in.Randomness),
		ValueCommitment: in.Note.ValueCommitment(in.ValueRandomness),
		Anchor:          in.Witness.RootHash(),
		Nullifier:       in.Note.Nullifier(in.ProofGenerationKey.NK, position),
	}

	assignment := spendPublicAssignment(p.depth, pub)
	assignment.Ak = pointAssignment(in.ProofGenerationKey.AK)
	assignment.Alpha = in.Randomness.BigInt()
	nk := in.ProofGenerationKey.NK.Bytes()
	assignment.Nk = fieldAssignment(nk[:])
	assignment.Value = in.Note.Value
	assignment.Ga = pointAssignment(in.Note.Asset.Generator())
	assignment.Rcv = in.ValueRandomness.BigInt()
	rcm := in.Note.Randomness.Bytes()
	assignment.Rcm = fieldAssignment(rcm[:])
	assignment.Position = position
	for i, n := range in.Witness.AuthenticationPath() {
		assignment.Path[i] = fieldAssignment(n.Sibling[:])
	}

	proof, err := prove(&p.spend, assignment, "prove spend")
	if err != nil {
		return Proof{}, nil, err
	}
	return proof, pub, nil
}

func (p *Params) VerifySpend(proof Proof, pub *SpendPublic) error {
	return verify(&p.spend, proof, spendPublicAssignment(p.depth, pub), "verify spend")
}

func spendPublicAssignment(depth int, pub *SpendPublic) *SpendCircuit {
	return &SpendCircuit{
		Rk:     pointAssignment(pub.RandomizedKey),
		Cv:     pointAssignment(pub.ValueCommitment),
		Anchor: fieldAssignment(pub.Anchor[:]),
		Nf:     fieldAssignment(pub.Nullifier[:]),
		Path:   make([]frontend.Variable, depth),
	}
}

// ProveOutput proves the note commitment opens to the value committed in
// the returned value commitment.
func (p *Params) ProveOutput(note *types.Note, rcv *crypto.Scalar) (Proof, *crypto.Point, error) {
	cv := note.ValueCommitment(rcv)
	cm := note.Commitment()

	assignment := outputPublicAssignment(cv, cm)
	assignment.Value = note.Value
	assignment.Ga = pointAssignment(note.Asset.Generator())
	assignment.Rcv = rcv.BigInt()
	assignment.Owner = fieldAssignment(note.Owner.Owner[:])
	rcm := note.Randomness.Bytes()
	assignment.Rcm = fieldAssignment(rcm[:])

	proof, err := prove(&p.output, assignment, "prove output")
	if err != nil {
		return Proof{}, nil, err
	}
	return proof, cv, nil
}

func (p *Params) VerifyOutput(proof Proof, cv *crypto.Point, cm types.NoteCommitment) error {
	return verify(&p.output, proof, outputPublicAssignment(cv, cm), "verify output")
}

func outputPublicAssignment(cv *crypto.Point, cm types.NoteCommitment) *OutputCircuit {
	return &OutputCircuit{
		Cv: pointAssignment(cv),
		Cm: fieldAssignment(cm[:]),
	}
}

// ProveMint proves the holder of pgk owns the returned owner tag, under the
// randomized key ak + alpha*G.
func (p *Params) ProveMint(pgk types.ProofGenerationKey, alpha *crypto.Scalar) (Proof, *crypto.Point, [32]byte, error) {
	rk := crypto.RandomizePublic(pgk.AK, alpha)
	owner := pgk.ViewKey().OwnerTag()

	assignment := mintPublicAssignment(rk, owner)
	assignment.Ak = pointAssignment(pgk.AK)
	nk := pgk.NK.Bytes()
	assignment.Nk = fieldAssignment(nk[:])
	assignment.Alpha = alpha.BigInt()

	proof, err := prove(&p.mint, assignment, "prove mint")
	if err != nil {
		return Proof{}, nil, owner, err
	}
	return proof, rk, owner, nil
}

func (p *Params) VerifyMint(proof Proof, rk *crypto.Point, owner [32]byte) error {
	return verify(&p.mint, proof, mintPublicAssignment(rk, owner), "verify mint")
}

func mintPublicAssignment(rk *crypto.Point, owner [32]byte) *MintCircuit {
	return &MintCircuit{
		Rk:    pointAssignment(rk),
		Owner: fieldAssignment(owner[:]),
	}
}
