package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dtroode/appauth-server/internal/model"
)

// MemoryStore is an in-memory implementation of every store plus the
// Transactor. WithinTx serializes transactions and rolls the whole state
// back when fn fails.
type MemoryStore struct {
	Users         *MemoryUsers
	Applications  *MemoryApplications
	Roles         *MemoryRoles
	Recoveries    *MemoryRecoveries
	RefreshTokens *MemoryRefreshTokens

	txMu  sync.Mutex
	state *memState
}

var _ model.Transactor = (*MemoryStore)(nil)

type memState struct {
	mu         sync.Mutex
	seq        int64
	users      map[model.Domain]map[int64]model.User
	apps       map[int64]model.Application
	roles      map[int64]model.Role
	userRoles  map[int64][]int64
	recoveries map[model.Domain]map[int64]model.Recovery
	tokens     map[model.Domain]map[string]model.RefreshToken
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	st := &memState{
		users: map[model.Domain]map[int64]model.User{
			model.DomainService: {},
			model.DomainApp:     {},
		},
		apps:      map[int64]model.Application{},
		roles:     map[int64]model.Role{},
		userRoles: map[int64][]int64{},
		recoveries: map[model.Domain]map[int64]model.Recovery{
			model.DomainService: {},
			model.DomainApp:     {},
		},
		tokens: map[model.Domain]map[string]model.RefreshToken{
			model.DomainService: {},
			model.DomainApp:     {},
		},
	}
	return &MemoryStore{
		Users:         &MemoryUsers{st: st},
		Applications:  &MemoryApplications{st: st},
		Roles:         &MemoryRoles{st: st},
		Recoveries:    &MemoryRecoveries{st: st},
		RefreshTokens: &MemoryRefreshTokens{st: st},
		state:         st,
	}
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.state.clone()
	if err := fn(ctx); err != nil {
		m.state.restore(snapshot)
		return err
	}
	return nil
}

// SeedRole stores a role of appID granting the named permissions.
func (m *MemoryStore) SeedRole(appID int64, name string, permissions ...string) model.Role {
	st := m.state
	st.mu.Lock()
	defer st.mu.Unlock()

	role := model.Role{ID: st.next(), AppID: appID, Name: name}
	for i, p := range permissions {
		role.Permissions = append(role.Permissions, model.Permission{ID: int64(i + 1), Name: p})
	}
	st.roles[role.ID] = role
	return role
}

// SetBanned flips the banned flag of a user.
func (m *MemoryStore) SetBanned(domain model.Domain, userID int64, banned bool) {
	st := m.state
	st.mu.Lock()
	defer st.mu.Unlock()

	if u, ok := st.users[domain][userID]; ok {
		u.Banned = banned
		st.users[domain][userID] = u
	}
}

// DeleteUser removes a user together with its dependent rows.
func (m *MemoryStore) DeleteUser(domain model.Domain, userID int64) {
	st := m.state
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.users[domain], userID)
	for hash, t := range st.tokens[domain] {
		if t.UserID == userID {
			delete(st.tokens[domain], hash)
		}
	}
	for id, r := range st.recoveries[domain] {
		if r.UserID == userID {
			delete(st.recoveries[domain], id)
		}
	}
	if domain == model.DomainApp {
		delete(st.userRoles, userID)
	}
}

// RefreshTokenCount returns the number of stored refresh tokens of a user.
func (m *MemoryStore) RefreshTokenCount(domain model.Domain, userID int64) int {
	st := m.state
	st.mu.Lock()
	defer st.mu.Unlock()

	n := 0
	for _, t := range st.tokens[domain] {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

// ExpireRefreshTokens moves the expiry of every token of a user to at.
func (m *MemoryStore) ExpireRefreshTokens(domain model.Domain, userID int64, at time.Time) {
	st := m.state
	st.mu.Lock()
	defer st.mu.Unlock()

	for hash, t := range st.tokens[domain] {
		if t.UserID == userID {
			t.ExpiresAt = at
			st.tokens[domain][hash] = t
		}
	}
}

func (st *memState) next() int64 {
	st.seq++
	return st.seq
}

func (st *memState) clone() *memState {
	st.mu.Lock()
	defer st.mu.Unlock()

	c := &memState{
		seq:        st.seq,
		users:      map[model.Domain]map[int64]model.User{},
		apps:       make(map[int64]model.Application, len(st.apps)),
		roles:      make(map[int64]model.Role, len(st.roles)),
		userRoles:  make(map[int64][]int64, len(st.userRoles)),
		recoveries: map[model.Domain]map[int64]model.Recovery{},
		tokens:     map[model.Domain]map[string]model.RefreshToken{},
	}
	for d, users := range st.users {
		c.users[d] = make(map[int64]model.User, len(users))
		for k, v := range users {
			c.users[d][k] = v
		}
	}
	for d, recs := range st.recoveries {
		c.recoveries[d] = make(map[int64]model.Recovery, len(recs))
		for k, v := range recs {
			c.recoveries[d][k] = v
		}
	}
	for d, tokens := range st.tokens {
		c.tokens[d] = make(map[string]model.RefreshToken, len(tokens))
		for k, v := range tokens {
			c.tokens[d][k] = v
		}
	}
	for k, v := range st.apps {
		c.apps[k] = v
	}
	for k, v := range st.roles {
		c.roles[k] = v
	}
	for k, v := range st.userRoles {
		c.userRoles[k] = append([]int64(nil), v...)
	}
	return c
}

func (st *memState) restore(from *memState) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.seq = from.seq
	st.users = from.users
	st.apps = from.apps
	st.roles = from.roles
	st.userRoles = from.userRoles
	st.recoveries = from.recoveries
	st.tokens = from.tokens
}

// MemoryUsers implements model.UserStore.
type MemoryUsers struct{ st *memState }

var _ model.UserStore = (*MemoryUsers)(nil)

func (s *MemoryUsers) GetByEmail(_ context.Context, scope model.Scope, email string) (model.User, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if u, ok := s.findByEmail(scope, email); ok {
		return u, nil
	}
	return model.User{}, model.ErrNotFound
}

func (s *MemoryUsers) GetByID(_ context.Context, scope model.Scope, id int64) (model.User, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	u, ok := s.st.users[scope.Domain][id]
	if !ok || (scope.IsApp() && u.AppID != scope.AppID) {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s *MemoryUsers) Create(_ context.Context, scope model.Scope, user model.User) (model.User, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, ok := s.findByEmail(scope, user.Email); ok {
		return model.User{}, model.ErrConflict
	}
	now := time.Now()
	user.ID = s.st.next()
	user.AppID = scope.AppID
	user.CreatedAt = now
	user.UpdatedAt = now
	s.st.users[scope.Domain][user.ID] = user
	return user, nil
}

func (s *MemoryUsers) UpdatePasswordHash(_ context.Context, scope model.Scope, id int64, passwordHash string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	u, ok := s.st.users[scope.Domain][id]
	if !ok || (scope.IsApp() && u.AppID != scope.AppID) {
		return model.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	s.st.users[scope.Domain][id] = u
	return nil
}

func (s *MemoryUsers) Exists(_ context.Context, scope model.Scope, email string) (bool, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	_, ok := s.findByEmail(scope, email)
	return ok, nil
}

func (s *MemoryUsers) findByEmail(scope model.Scope, email string) (model.User, bool) {
	for _, u := range s.st.users[scope.Domain] {
		if scope.IsApp() && u.AppID != scope.AppID {
			continue
		}
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return model.User{}, false
}

// MemoryApplications implements model.ApplicationStore.
type MemoryApplications struct{ st *memState }

var _ model.ApplicationStore = (*MemoryApplications)(nil)

func (s *MemoryApplications) GetByID(_ context.Context, id int64) (model.Application, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	app, ok := s.st.apps[id]
	if !ok {
		return model.Application{}, model.ErrNotFound
	}
	return app, nil
}

func (s *MemoryApplications) Create(_ context.Context, app model.Application) (model.Application, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	for _, existing := range s.st.apps {
		if existing.OwnerID == app.OwnerID && existing.Name == app.Name {
			return model.Application{}, model.ErrConflict
		}
	}
	now := time.Now()
	app.ID = s.st.next()
	app.CreatedAt = now
	app.UpdatedAt = now
	s.st.apps[app.ID] = app
	return app, nil
}

func (s *MemoryApplications) UpdateSecret(_ context.Context, id int64, encryptedSecret string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	app, ok := s.st.apps[id]
	if !ok {
		return model.ErrNotFound
	}
	app.EncryptedSecret = encryptedSecret
	app.UpdatedAt = time.Now()
	s.st.apps[id] = app
	return nil
}

// MemoryRoles implements model.RoleStore.
type MemoryRoles struct{ st *memState }

var _ model.RoleStore = (*MemoryRoles)(nil)

func (s *MemoryRoles) FindRolesWithPermissions(_ context.Context, appID, userID int64) ([]model.Role, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	var roles []model.Role
	for _, id := range s.st.userRoles[userID] {
		if role, ok := s.st.roles[id]; ok && role.AppID == appID {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func (s *MemoryRoles) GetByIDs(_ context.Context, appID int64, ids []int64) ([]model.Role, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	var roles []model.Role
	for _, id := range ids {
		if role, ok := s.st.roles[id]; ok && role.AppID == appID {
			roles = append(roles, role)
		}
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].ID < roles[j].ID })
	return roles, nil
}

func (s *MemoryRoles) ReplaceUserRoles(_ context.Context, appID, userID int64, roleIDs []int64) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	u, ok := s.st.users[model.DomainApp][userID]
	if !ok || u.AppID != appID {
		return model.ErrNotFound
	}
	s.st.userRoles[userID] = append([]int64(nil), roleIDs...)
	return nil
}

// MemoryRecoveries implements model.RecoveryStore.
type MemoryRecoveries struct{ st *memState }

var _ model.RecoveryStore = (*MemoryRecoveries)(nil)

func (s *MemoryRecoveries) Create(_ context.Context, domain model.Domain, recovery model.Recovery) (model.Recovery, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	now := time.Now()
	recovery.ID = s.st.next()
	recovery.CreatedAt = now
	recovery.UpdatedAt = now
	s.st.recoveries[domain][recovery.ID] = recovery
	return recovery, nil
}

func (s *MemoryRecoveries) GetByID(_ context.Context, domain model.Domain, id int64) (model.Recovery, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	r, ok := s.st.recoveries[domain][id]
	if !ok {
		return model.Recovery{}, model.ErrNotFound
	}
	return r, nil
}

func (s *MemoryRecoveries) ListByUser(_ context.Context, domain model.Domain, userID int64) ([]model.Recovery, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	var list []model.Recovery
	for _, r := range s.st.recoveries[domain] {
		if r.UserID == userID {
			list = append(list, r)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *MemoryRecoveries) Update(_ context.Context, domain model.Domain, recovery model.Recovery) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, ok := s.st.recoveries[domain][recovery.ID]; !ok {
		return model.ErrNotFound
	}
	recovery.UpdatedAt = time.Now()
	s.st.recoveries[domain][recovery.ID] = recovery
	return nil
}

func (s *MemoryRecoveries) Delete(_ context.Context, domain model.Domain, id int64) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, ok := s.st.recoveries[domain][id]; !ok {
		return model.ErrNotFound
	}
	delete(s.st.recoveries[domain], id)
	return nil
}

// MemoryRefreshTokens implements model.RefreshTokenStore.
type MemoryRefreshTokens struct{ st *memState }

var _ model.RefreshTokenStore = (*MemoryRefreshTokens)(nil)

func (s *MemoryRefreshTokens) Create(_ context.Context, domain model.Domain, token model.RefreshToken) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, ok := s.st.tokens[domain][token.TokenHash]; ok {
		return model.ErrConflict
	}
	token.ID = s.st.next()
	token.CreatedAt = time.Now()
	s.st.tokens[domain][token.TokenHash] = token
	return nil
}

func (s *MemoryRefreshTokens) GetByHash(_ context.Context, domain model.Domain, tokenHash string) (model.RefreshToken, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	t, ok := s.st.tokens[domain][tokenHash]
	if !ok {
		return model.RefreshToken{}, model.ErrNotFound
	}
	return t, nil
}

func (s *MemoryRefreshTokens) DeleteByHash(_ context.Context, domain model.Domain, tokenHash string) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	if _, ok := s.st.tokens[domain][tokenHash]; !ok {
		return model.ErrNotFound
	}
	delete(s.st.tokens[domain], tokenHash)
	return nil
}

func (s *MemoryRefreshTokens) DeleteAllByUser(_ context.Context, domain model.Domain, userID int64) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	for hash, t := range s.st.tokens[domain] {
		if t.UserID == userID {
			delete(s.st.tokens[domain], hash)
		}
	}
	return nil
}

func (s *MemoryRefreshTokens) DeleteAllByApp(_ context.Context, appID int64) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()

	for hash, t := range s.st.tokens[model.DomainApp] {
		if u, ok := s.st.users[model.DomainApp][t.UserID]; ok && u.AppID == appID {
			delete(s.st.tokens[model.DomainApp], hash)
		}
	}
	return nil
}
