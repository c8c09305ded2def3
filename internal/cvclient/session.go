package cvclient

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/pkg/auth"
)

// Backend is the slice of the CV API a Session mirrors. *Client implements it.
type Backend interface {
	ListCVs(ctx context.Context) ([]cv.CV, error)
	CreateCV(ctx context.Context, title string, body *cv.CVData, isPrimary bool) (*cv.CV, error)
	UpdateCV(ctx context.Context, id uuid.UUID, patch cv.Patch) (*cv.CV, error)
	SetPrimary(ctx context.Context, id uuid.UUID) (*cv.CV, error)
	DeleteCV(ctx context.Context, id uuid.UUID) error
}

var _ Backend = (*Client)(nil)

// Session keeps the signed-in user's CVs in memory, newest first, and applies each successful
// mutation locally so callers need not re-list. A failed call leaves the mirror as it was.
type Session struct {
	backend Backend

	mu       sync.RWMutex
	identity *auth.Identity
	// gen changes with every identity switch so a response for the previous user is dropped.
	gen uint64
	cvs []cv.CV
}

func NewSession(b Backend) *Session {
	return &Session{backend: b, cvs: []cv.CV{}}
}

func (s *Session) Identity() (auth.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return auth.Identity{}, false
	}
	return *s.identity, true
}

// SetIdentity switches the session to id and reloads its CVs. nil signs out and clears the mirror.
// Setting the identity already in place is a no-op.
func (s *Session) SetIdentity(ctx context.Context, id *auth.Identity) error {
	s.mu.Lock()
	if sameIdentity(s.identity, id) {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	s.cvs = []cv.CV{}
	if id == nil {
		s.identity = nil
		s.mu.Unlock()
		return nil
	}
	copied := *id
	s.identity = &copied
	s.mu.Unlock()

	return s.Refresh(ctx)
}

func sameIdentity(a, b *auth.Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UserID == b.UserID
}

// Refresh replaces the mirror with a fresh listing.
func (s *Session) Refresh(ctx context.Context) error {
	gen, ok := s.current()
	if !ok {
		return nil
	}
	list, err := s.backend.ListCVs(ctx)
	if err != nil {
		return err
	}
	s.apply(gen, func() {
		s.cvs = append([]cv.CV{}, list...)
	})
	return nil
}

func (s *Session) current() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen, s.identity != nil
}

func (s *Session) apply(gen uint64, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	fn()
}

// CVs returns a copy of the mirror.
func (s *Session) CVs() []cv.CV {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]cv.CV{}, s.cvs...)
}

func (s *Session) Get(id uuid.UUID) (cv.CV, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cvs {
		if c.ID == id {
			return c, true
		}
	}
	return cv.CV{}, false
}

func (s *Session) Primary() (cv.CV, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cvs {
		if c.IsPrimary {
			return c, true
		}
	}
	return cv.CV{}, false
}

// clearPrimaryExcept mirrors the server-side demotion. Caller holds mu.
func (s *Session) clearPrimaryExcept(id uuid.UUID) {
	for i := range s.cvs {
		if s.cvs[i].ID != id {
			s.cvs[i].IsPrimary = false
		}
	}
}

func (s *Session) Create(ctx context.Context, title string, body *cv.CVData, isPrimary bool) (*cv.CV, error) {
	gen, _ := s.current()
	created, err := s.backend.CreateCV(ctx, title, body, isPrimary)
	if err != nil {
		return nil, err
	}
	s.apply(gen, func() {
		if created.IsPrimary {
			s.clearPrimaryExcept(created.ID)
		}
		s.cvs = append([]cv.CV{*created}, s.cvs...)
	})
	return created, nil
}

func (s *Session) Update(ctx context.Context, id uuid.UUID, patch cv.Patch) (*cv.CV, error) {
	gen, _ := s.current()
	updated, err := s.backend.UpdateCV(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.apply(gen, func() { s.replace(*updated) })
	return updated, nil
}

func (s *Session) SetPrimary(ctx context.Context, id uuid.UUID) (*cv.CV, error) {
	gen, _ := s.current()
	updated, err := s.backend.SetPrimary(ctx, id)
	if err != nil {
		return nil, err
	}
	s.apply(gen, func() { s.replace(*updated) })
	return updated, nil
}

// replace swaps the stored copy of c in place. Caller holds mu.
func (s *Session) replace(c cv.CV) {
	if c.IsPrimary {
		s.clearPrimaryExcept(c.ID)
	}
	for i := range s.cvs {
		if s.cvs[i].ID == c.ID {
			s.cvs[i] = c
			return
		}
	}
}

func (s *Session) Delete(ctx context.Context, id uuid.UUID) error {
	gen, _ := s.current()
	if err := s.backend.DeleteCV(ctx, id); err != nil {
		return err
	}
	s.apply(gen, func() {
		kept := s.cvs[:0]
		for _, c := range s.cvs {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		s.cvs = kept
	})
	return nil
}
