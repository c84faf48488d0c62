package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"ai-chatbot-be/internal/entity"
	"ai-chatbot-be/internal/repository/contract"
	"ai-chatbot-be/internal/repository/specification"
	"ai-chatbot-be/internal/repository/unitofwork"
	"ai-chatbot-be/pkg/events"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var errStore = errors.New("store unavailable")

// fakeDB backs every fake repository. Specifications are interpreted by type,
// which is enough for the queries the services issue.
type fakeDB struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*entity.User
	tokens    map[string]*entity.UserRefreshToken
	profiles  map[uuid.UUID]*entity.Profile
	knowledge map[uuid.UUID]*entity.KnowledgeDocument

	// searchArgs records the last SearchSimilar call.
	searchThreshold float64
	searchLimit     int
	searchResult    []*entity.ScoredKnowledgeDocument

	commits   int
	rollbacks int
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:     make(map[uuid.UUID]*entity.User),
		tokens:    make(map[string]*entity.UserRefreshToken),
		profiles:  make(map[uuid.UUID]*entity.Profile),
		knowledge: make(map[uuid.UUID]*entity.KnowledgeDocument),
	}
}

func (db *fakeDB) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUoW{db: db}
}

func (db *fakeDB) activeTokens(userId uuid.UUID) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	n := 0
	for _, t := range db.tokens {
		if t.UserId == userId && !t.Revoked {
			n++
		}
	}
	return n
}

type fakeUoW struct {
	db *fakeDB
	tx bool
}

func (u *fakeUoW) Begin(ctx context.Context) error {
	u.tx = true
	return nil
}

func (u *fakeUoW) Commit() error {
	if !u.tx {
		return errors.New("no transaction to commit")
	}
	u.tx = false
	u.db.mu.Lock()
	u.db.commits++
	u.db.mu.Unlock()
	return nil
}

func (u *fakeUoW) Rollback() error {
	if !u.tx {
		return errors.New("no transaction to rollback")
	}
	u.tx = false
	u.db.mu.Lock()
	u.db.rollbacks++
	u.db.mu.Unlock()
	return nil
}

func (u *fakeUoW) UserRepository() contract.UserRepository           { return &fakeUserRepo{u.db} }
func (u *fakeUoW) ProfileRepository() contract.ProfileRepository     { return &fakeProfileRepo{u.db} }
func (u *fakeUoW) KnowledgeRepository() contract.KnowledgeRepository { return &fakeKnowledgeRepo{u.db} }
func (u *fakeUoW) ChatSessionRepository() contract.ChatSessionRepository {
	return nil
}
func (u *fakeUoW) ChatMessageRepository() contract.ChatMessageRepository {
	return nil
}

type fakeUserRepo struct{ db *fakeDB }

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	email := strings.ToLower(user.Email)
	for _, u := range r.db.users {
		if u.Email == email {
			return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	cp := *user
	cp.Email = email
	r.db.users[user.Id] = &cp
	return nil
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if matchUser(u, specs) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func matchUser(u *entity.User, specs []specification.Specification) bool {
	for _, s := range specs {
		switch spec := s.(type) {
		case specification.ByEmail:
			if u.Email != strings.ToLower(strings.TrimSpace(spec.Email)) {
				return false
			}
		case specification.ByID:
			if u.Id != spec.ID {
				return false
			}
		}
	}
	return true
}

func (r *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *entity.UserRefreshToken) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *token
	r.db.tokens[token.TokenHash] = &cp
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(ctx context.Context, specs ...specification.Specification) (*entity.UserRefreshToken, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.tokens {
		ok := true
		for _, s := range specs {
			switch spec := s.(type) {
			case specification.ByTokenHash:
				ok = ok && t.TokenHash == spec.Hash
			case specification.UsableToken:
				ok = ok && !t.Revoked && t.ExpiresAt.After(spec.Now)
			}
		}
		if ok {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) RevokeRefreshToken(ctx context.Context, userId uuid.UUID, tokenHash string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.tokens[tokenHash]
	if !ok || t.UserId != userId || t.Revoked {
		return 0, nil
	}
	t.Revoked = true
	return 1, nil
}

func (r *fakeUserRepo) RevokeAllRefreshTokens(ctx context.Context, userId uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, t := range r.db.tokens {
		if t.UserId == userId {
			t.Revoked = true
		}
	}
	return nil
}

type fakeProfileRepo struct{ db *fakeDB }

func (r *fakeProfileRepo) FindById(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if p, ok := r.db.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeProfileRepo) Upsert(ctx context.Context, profile *entity.Profile) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *profile
	r.db.profiles[profile.Id] = &cp
	return nil
}

type fakeKnowledgeRepo struct{ db *fakeDB }

func (r *fakeKnowledgeRepo) Create(ctx context.Context, doc *entity.KnowledgeDocument) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *doc
	r.db.knowledge[doc.Id] = &cp
	return nil
}

func (r *fakeKnowledgeRepo) Delete(ctx context.Context, userId, id uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.knowledge[id]
	if !ok || d.UserId != userId {
		return 0, nil
	}
	delete(r.db.knowledge, id)
	return 1, nil
}

func (r *fakeKnowledgeRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeDocument, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]*entity.KnowledgeDocument, 0)
	for _, d := range r.db.knowledge {
		keep := true
		for _, s := range specs {
			if spec, ok := s.(specification.UserOwnedBy); ok && d.UserId != spec.UserID {
				keep = false
			}
		}
		if keep {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeKnowledgeRepo) SearchSimilar(ctx context.Context, userId uuid.UUID, embedding []float32, threshold float64, limit int) ([]*entity.ScoredKnowledgeDocument, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.searchThreshold = threshold
	r.db.searchLimit = limit
	return r.db.searchResult, nil
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.6, 0.8}, nil
}

func (e *fakeEmbedder) ModelName() string {
	return "fake-embed"
}

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// fakeProfileStore satisfies ProfileStore for the profile service tests.
type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*entity.Profile
	reads    int
	getErr   error
	uploads  []string
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[uuid.UUID]*entity.Profile)}
}

func (s *fakeProfileStore) GetProfile(ctx context.Context, ownerId uuid.UUID) (*entity.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.getErr != nil {
		return nil, s.getErr
	}
	if p, ok := s.profiles[ownerId]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *fakeProfileStore) UpsertProfile(ctx context.Context, profile *entity.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *profile
	s.profiles[profile.Id] = &cp
	return nil
}

func (s *fakeProfileStore) UploadAvatarBlob(ctx context.Context, ownerId uuid.UUID, filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, filename)
	return "http://localhost/uploads/" + ownerId.String() + ".png", nil
}

func (s *fakeProfileStore) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}
