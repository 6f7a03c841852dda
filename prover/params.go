package prover

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/kysee/zktx/utils"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// DefaultTreeDepth is the note commitment tree depth used on a live ledger.
const DefaultTreeDepth = 32

const metaFile = "params.yaml"

type circuitKeys struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// Params holds the compiled circuits and Groth16 keys. It is safe for
// concurrent proving and verification.
type Params struct {
	depth  int
	spend  circuitKeys
	output circuitKeys
	mint   circuitKeys
}

type paramsMeta struct {
	TreeDepth int `yaml:"treeDepth"`
}

// Depth is the note tree depth the spend circuit was compiled for.
func (p *Params) Depth() int {
	return p.depth
}

// Setup compiles the circuits and runs a local Groth16 setup.
func Setup(depth int) (*Params, error) {
	if depth < 1 || depth > 64 {
		return nil, errors.Errorf("tree depth %d out of range", depth)
	}

	p := &Params{depth: depth}
	spend := &SpendCircuit{Path: make([]frontend.Variable, depth)}

	var err error
	if p.spend, err = setupCircuit("spend", spend); err != nil {
		return nil, err
	}
	if p.output, err = setupCircuit("output", &OutputCircuit{}); err != nil {
		return nil, err
	}
	if p.mint, err = setupCircuit("mint", &MintCircuit{}); err != nil {
		return nil, err
	}
	return p, nil
}

func setupCircuit(name string, circuit frontend.Circuit) (circuitKeys, error) {
	start := time.Now()
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return circuitKeys{}, errors.Wrapf(err, "compile %s circuit", name)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return circuitKeys{}, errors.Wrapf(err, "setup %s circuit", name)
	}
	utils.Logger().Info().
		Str("circuit", name).
		Int("constraints", ccs.GetNbConstraints()).
		Dur("elapsed", time.Since(start)).
		Msg("circuit setup")
	return circuitKeys{ccs: ccs, pk: pk, vk: vk}, nil
}

// Save writes the parameters under dir.
func (p *Params) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "save params")
	}
	meta, err := yaml.Marshal(&paramsMeta{TreeDepth: p.depth})
	if err != nil {
		return errors.Wrap(err, "save params")
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), meta, 0o644); err != nil {
		return errors.Wrap(err, "save params")
	}
	for name, keys := range p.circuits() {
		if err := keys.save(dir, name); err != nil {
			return errors.Wrapf(err, "save %s params", name)
		}
	}
	return nil
}

// Load reads parameters written by Save.
func Load(dir string) (*Params, error) {
	raw, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, errors.Wrap(err, "load params")
	}
	var meta paramsMeta
	if err := yaml.Unmarshal(raw, &meta); err != nil {
		return nil, errors.Wrap(err, "load params")
	}

	p := &Params{depth: meta.TreeDepth}
	for name, keys := range p.circuits() {
		if err := keys.load(dir, name); err != nil {
			return nil, errors.Wrapf(err, "load %s params", name)
		}
	}
	utils.Logger().Info().Str("dir", dir).Int("treeDepth", p.depth).Msg("params loaded")
	return p, nil
}

// ExportSolidity writes one Groth16 verifier contract per circuit under
// dir, so that proofs can also be checked on an EVM chain.
func (p *Params) ExportSolidity(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "export solidity")
	}
	var written []string
	for name, keys := range p.circuits() {
		var buf bytes.Buffer
		if err := keys.vk.ExportSolidity(&buf); err != nil {
			return nil, errors.Wrapf(err, "export %s verifier", name)
		}
		path := filepath.Join(dir, strings.ToUpper(name[:1])+name[1:]+"Verifier.sol")
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, errors.Wrapf(err, "export %s verifier", name)
		}
		written = append(written, path)
	}
	sort.Strings(written)
	return written, nil
}

func (p *Params) circuits() map[string]*circuitKeys {
	return map[string]*circuitKeys{
		"spend":  &p.spend,
		"output": &p.output,
		"mint":   &p.mint,
	}
}

func (k *circuitKeys) save(dir, name string) error {
	files := []struct {
		suffix string
		write  func(f *os.File) error
	}{
		{".ccs", func(f *os.File) error { _, err := k.ccs.WriteTo(f); return err }},
		{".pk", func(f *os.File) error { _, err := k.pk.WriteTo(f); return err }},
		{".vk", func(f *os.File) error { _, err := k.vk.WriteTo(f); return err }},
	}
	for _, fl := range files {
		f, err := os.Create(filepath.Join(dir, name+fl.suffix))
		if err != nil {
			return err
		}
		if err := fl.write(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (k *circuitKeys) load(dir, name string) error {
	k.ccs = groth16.NewCS(ecc.BN254)
	k.pk = groth16.NewProvingKey(ecc.BN254)
	k.vk = groth16.NewVerifyingKey(ecc.BN254)

	files := []struct {
		suffix string
		read   func(f *os.File) error
	}{
		{".ccs", func(f *os.File) error { _, err := k.ccs.ReadFrom(f); return err }},
		{".pk", func(f *os.File) error { _, err := k.pk.ReadFrom(f); return err }},
		{".vk", func(f *os.File) error { _, err := k.vk.ReadFrom(f); return err }},
	}
	for _, fl := range files {
		f, err := os.Open(filepath.Join(dir, name+fl.suffix))
		if err != nil {
			return err
		}
		err = fl.read(f)
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}
