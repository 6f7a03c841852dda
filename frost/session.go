package frost

import (
	"io"
	"sync"

	"github.com/kysee/zktx/crypto"
	"github.com/kysee/zktx/errs"
)

// SigningSession holds one participant's nonces for a single signature.
// Sign can succeed at most once per session.
type SigningSession struct {
	mu          sync.Mutex
	keyPackage  *KeyPackage
	nonces      *SigningNonces
	commitments *SigningCommitments
	consumed    bool
}

func NewSigningSession(r io.Reader, kp *KeyPackage) (*SigningSession, error) {
	nonces, commitments, err := Commit(r, kp)
	if err != nil {
		return nil, err
	}
	return &SigningSession{
		keyPackage:  kp,
		nonces:      nonces,
		commitments: commitments,
	}, nil
}

// RestoreSigningSession resumes a session from nonces stored after round one.
func RestoreSigningSession(kp *KeyPackage, nonces *SigningNonces) *SigningSession {
	return &SigningSession{
		keyPackage:  kp,
		nonces:      nonces,
		commitments: nonces.Commitments(),
	}
}

func (s *SigningSession) Identifier() Identifier {
	return s.keyPackage.Identifier
}

// Commitments is the value to broadcast to the coordinator.
func (s *SigningSession) Commitments() *SigningCommitments {
	return s.commitments
}

// Sign consumes the session, whether or not it succeeds.
func (s *SigningSession) Sign(sp *SigningPackage, randomizer *crypto.Scalar) (*SignatureShare, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consumed {
		return nil, errs.New(errs.SignatureError, "sign", "session already consumed: nonce reuse prevented")
	}
	s.consumed = true

	nonces := s.nonces
	s.nonces = nil
	return Sign(sp, nonces, s.keyPackage, randomizer)
}

func (s *SigningSession) IsConsumed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumed
}
