// Package testutil holds in-memory stand-ins for the storage collaborators. They keep the same
// owner scoping and single-primary rules as the Postgres adapters so use-case tests exercise the
// real contracts.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/talentsin/internal/application/service"
	"github.com/khoahotran/talentsin/internal/domain/cv"
	"github.com/khoahotran/talentsin/internal/domain/user"
	"github.com/khoahotran/talentsin/pkg/apperror"
)

type storedCV struct {
	seq int
	cv  cv.CV
}

// CVRepo is an in-memory cv.Repository.
type CVRepo struct {
	mu   sync.Mutex
	seq  int
	rows map[uuid.UUID]*storedCV
	// Fail, when set, is returned by every call as a StorageUnavailable error.
	Fail error
}

func NewCVRepo() *CVRepo {
	return &CVRepo{rows: make(map[uuid.UUID]*storedCV)}
}

func (r *CVRepo) failure(action string) error {
	if r.Fail != nil {
		return apperror.NewStorageUnavailable(action, r.Fail)
	}
	return nil
}

// demoteLocked clears the flag on every other row of owner. Caller holds mu.
func (r *CVRepo) demoteLocked(owner, keep uuid.UUID, now time.Time) {
	for id, row := range r.rows {
		if id != keep && row.cv.OwnerID == owner && row.cv.IsPrimary {
			row.cv.IsPrimary = false
			row.cv.UpdatedAt = now
		}
	}
}

func (r *CVRepo) Save(_ context.Context, c *cv.CV) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("save cv"); err != nil {
		return err
	}
	if c.IsPrimary {
		r.demoteLocked(c.OwnerID, c.ID, c.UpdatedAt)
	}
	r.seq++
	r.rows[c.ID] = &storedCV{seq: r.seq, cv: cloneCV(*c)}
	return nil
}

func (r *CVRepo) Update(_ context.Context, id uuid.UUID, ownerID uuid.UUID, patch cv.Patch) (*cv.CV, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("update cv"); err != nil {
		return nil, err
	}
	row, ok := r.rows[id]
	if !ok || row.cv.OwnerID != ownerID {
		return nil, apperror.NewNotFound("cv", id.String())
	}
	now := time.Now().UTC()
	if patch.Body != nil {
		body := cloneBody(*patch.Body)
		patch.Body = &body
	}
	patch.Apply(&row.cv)
	row.cv.UpdatedAt = now
	if row.cv.IsPrimary && patch.IsPrimary != nil {
		r.demoteLocked(ownerID, id, now)
	}
	out := cloneCV(row.cv)
	return &out, nil
}

func (r *CVRepo) Delete(_ context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("delete cv"); err != nil {
		return err
	}
	row, ok := r.rows[id]
	if !ok || row.cv.OwnerID != ownerID {
		return apperror.NewNotFound("cv", id.String())
	}
	delete(r.rows, id)
	return nil
}

func (r *CVRepo) FindByID(_ context.Context, id uuid.UUID, ownerID uuid.UUID) (*cv.CV, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("find cv"); err != nil {
		return nil, err
	}
	row, ok := r.rows[id]
	if !ok || row.cv.OwnerID != ownerID {
		return nil, apperror.NewNotFound("cv", id.String())
	}
	out := cloneCV(row.cv)
	return &out, nil
}

func (r *CVRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*cv.CV, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("list cvs"); err != nil {
		return nil, err
	}
	rows := make([]*storedCV, 0)
	for _, row := range r.rows {
		if row.cv.OwnerID == ownerID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].cv.CreatedAt.Equal(rows[j].cv.CreatedAt) {
			return rows[i].cv.CreatedAt.After(rows[j].cv.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]*cv.CV, len(rows))
	for i, row := range rows {
		c := cloneCV(row.cv)
		out[i] = &c
	}
	return out, nil
}

// PrimaryCount counts the owner's rows flagged primary.
func (r *CVRepo) PrimaryCount(ownerID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.cv.OwnerID == ownerID && row.cv.IsPrimary {
			n++
		}
	}
	return n
}

// cloneBody round-trips through JSON, the same path a JSONB column takes.
func cloneBody(b cv.CVData) cv.CVData {
	raw, err := json.Marshal(b)
	if err != nil {
		panic(fmt.Sprintf("marshal cv body: %v", err))
	}
	var out cv.CVData
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("unmarshal cv body: %v", err))
	}
	return out
}

func cloneCV(c cv.CV) cv.CV {
	c.Body = cloneBody(c.Body)
	return c
}

// FileRepo is an in-memory cv.FileRepository.
type FileRepo struct {
	mu    sync.Mutex
	seq   int
	rows  map[uuid.UUID]*cv.File
	order map[uuid.UUID]int
	Fail  error
}

func NewFileRepo() *FileRepo {
	return &FileRepo{rows: make(map[uuid.UUID]*cv.File), order: make(map[uuid.UUID]int)}
}

func (r *FileRepo) failure(action string) error {
	if r.Fail != nil {
		return apperror.NewStorageUnavailable(action, r.Fail)
	}
	return nil
}

func cloneFile(f cv.File) *cv.File {
	if f.AIScore != nil {
		s := *f.AIScore
		f.AIScore = &s
	}
	if f.AIFeedback != nil {
		fb := cv.Feedback{
			Strengths:    append([]string(nil), f.AIFeedback.Strengths...),
			Improvements: append([]string(nil), f.AIFeedback.Improvements...),
			Keywords:     append([]string(nil), f.AIFeedback.Keywords...),
		}
		f.AIFeedback = &fb
	}
	return &f
}

func (r *FileRepo) Save(_ context.Context, f *cv.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("save cv file"); err != nil {
		return err
	}
	r.seq++
	r.order[f.ID] = r.seq
	r.rows[f.ID] = cloneFile(*f)
	return nil
}

func (r *FileRepo) SaveAnalysis(_ context.Context, ownerID uuid.UUID, fileURL string, a cv.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("save analysis"); err != nil {
		return err
	}
	found := false
	for _, f := range r.rows {
		if f.FileURL == fileURL && f.OwnerID == ownerID {
			score := a.Score
			fb := a.Feedback
			f.AIScore = &score
			f.AIFeedback = &fb
			f.UpdatedAt = time.Now().UTC()
			found = true
		}
	}
	if !found {
		return apperror.NewNotFound("cv file", fileURL)
	}
	return nil
}

func (r *FileRepo) Delete(_ context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("delete cv file"); err != nil {
		return err
	}
	f, ok := r.rows[id]
	if !ok || f.OwnerID != ownerID {
		return apperror.NewNotFound("cv file", id.String())
	}
	delete(r.rows, id)
	return nil
}

func (r *FileRepo) FindByID(_ context.Context, id uuid.UUID, ownerID uuid.UUID) (*cv.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("find cv file"); err != nil {
		return nil, err
	}
	f, ok := r.rows[id]
	if !ok || f.OwnerID != ownerID {
		return nil, apperror.NewNotFound("cv file", id.String())
	}
	return cloneFile(*f), nil
}

func (r *FileRepo) FindByURL(_ context.Context, fileURL string, ownerID uuid.UUID) (*cv.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("find cv file"); err != nil {
		return nil, err
	}
	for _, f := range r.rows {
		if f.FileURL == fileURL && f.OwnerID == ownerID {
			return cloneFile(*f), nil
		}
	}
	return nil, apperror.NewNotFound("cv file", fileURL)
}

func (r *FileRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*cv.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("list cv files"); err != nil {
		return nil, err
	}
	out := make([]*cv.File, 0)
	for _, f := range r.rows {
		if f.OwnerID == ownerID {
			out = append(out, cloneFile(*f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return r.order[out[i].ID] > r.order[out[j].ID]
	})
	return out, nil
}

func (r *FileRepo) ListPending(_ context.Context, createdBefore time.Time, limit int) ([]*cv.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("list pending cv files"); err != nil {
		return nil, err
	}
	out := make([]*cv.File, 0)
	for _, f := range r.rows {
		if f.Status == cv.FileStatusActive && f.AIScore == nil && f.CreatedAt.Before(createdBefore) {
			out = append(out, cloneFile(*f))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return r.order[out[i].ID] < r.order[out[j].ID]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ObjectStore keeps blobs in a map and serves them from BaseURL.
type ObjectStore struct {
	mu      sync.Mutex
	BaseURL string
	Objects map[string][]byte
	Fail    error
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{BaseURL: "https://objects.test/cvs", Objects: make(map[string][]byte)}
}

func (s *ObjectStore) Put(_ context.Context, key string, file io.Reader, _ string) (string, error) {
	if s.Fail != nil {
		return "", s.Fail
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.Objects[key] = buf.Bytes()
	s.mu.Unlock()
	return s.PublicURL(key), nil
}

func (s *ObjectStore) PublicURL(key string) string {
	return s.BaseURL + "/" + key
}

func (s *ObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.Objects, key)
	return nil
}

func (s *ObjectStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Objects[key]
	return ok
}

func (s *ObjectStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Objects)
}

// Notifier fans events out to in-process subscribers.
type Notifier struct {
	mu   sync.Mutex
	subs map[uuid.UUID][]chan service.AnalysisEvent
	Sent []service.AnalysisEvent
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[uuid.UUID][]chan service.AnalysisEvent)}
}

func (n *Notifier) Publish(_ context.Context, ev service.AnalysisEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, ev)
	for _, ch := range n.subs[ev.OwnerID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (n *Notifier) Subscribe(_ context.Context, ownerID uuid.UUID) (<-chan service.AnalysisEvent, func(), error) {
	ch := make(chan service.AnalysisEvent, 8)
	n.mu.Lock()
	n.subs[ownerID] = append(n.subs[ownerID], ch)
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			subs := n.subs[ownerID]
			for i, c := range subs {
				if c == ch {
					n.subs[ownerID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
	return ch, cancel, nil
}

func (n *Notifier) Events() []service.AnalysisEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]service.AnalysisEvent(nil), n.Sent...)
}

// Subscribers reports how many streams are open for ownerID.
func (n *Notifier) Subscribers(ownerID uuid.UUID) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[ownerID])
}

// UserRepo is an in-memory user.Repository keyed by email.
type UserRepo struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*user.User)}
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[email]
	if !ok {
		return nil, apperror.NewNotFound("user", email)
	}
	out := *u
	return &out, nil
}

func (r *UserRepo) Upsert(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.users[u.Email]; ok {
		u.ID = existing.ID
	}
	stored := *u
	r.users[u.Email] = &stored
	return nil
}
