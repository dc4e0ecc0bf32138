package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/pgdeveloper/internal/adapter/observability"
	"github.com/fairyhunter13/pgdeveloper/internal/domain"
	obsctx "github.com/fairyhunter13/pgdeveloper/internal/observability"
)

// Opener creates a pool for a profile.
type Opener func(ctx context.Context, p domain.ConnectionProfile) (PgxPool, error)

// ManagerOptions configure a Manager. Zero values pick the defaults.
type ManagerOptions struct {
	Pool PoolOptions
	// Opener replaces NewPool, mostly in tests.
	Opener Opener
	// Backoff returns the retry policy of Test. Nil means a policy bounded by
	// the connect timeout.
	Backoff func() backoff.BackOff
	// Breaker settings for repeated connection failures.
	BreakerFailures int
	BreakerCooldown time.Duration
	Now             func() time.Time
}

// Manager owns the connection profiles and one lazily created pool per
// profile. All methods are safe for concurrent use.
type Manager struct {
	store   domain.ProfileStore
	opts    ManagerOptions
	open    Opener
	backoff func() backoff.BackOff
	now     func() time.Time

	mu       sync.Mutex
	profiles map[string]domain.ConnectionProfile
	temp     map[string]bool
	pools    map[string]PgxPool
	breakers map[string]*breaker
	active   string
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// ValidateProfile checks the required fields of p.
func ValidateProfile(p domain.ConnectionProfile) error {
	if err := getValidator().Struct(p); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			fields := make([]string, 0, len(ve))
			for _, fe := range ve {
				fields = append(fields, strings.ToLower(fe.Field())+" "+fe.Tag())
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

// NewManager loads the saved profiles from store. The first profile by name
// becomes active.
func NewManager(store domain.ProfileStore, opts ManagerOptions) (*Manager, error) {
	if opts.Pool == (PoolOptions{}) {
		opts.Pool = DefaultPoolOptions()
	}
	if opts.BreakerFailures <= 0 {
		opts.BreakerFailures = 3
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}
	m := &Manager{
		store:    store,
		opts:     opts,
		open:     opts.Opener,
		backoff:  opts.Backoff,
		now:      opts.Now,
		profiles: map[string]domain.ConnectionProfile{},
		temp:     map[string]bool{},
		pools:    map[string]PgxPool{},
		breakers: map[string]*breaker{},
	}
	if m.open == nil {
		m.open = func(ctx context.Context, p domain.ConnectionProfile) (PgxPool, error) {
			return NewPool(ctx, p, opts.Pool)
		}
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.backoff == nil {
		timeout := opts.Pool.ConnectTimeout
		m.backoff = func() backoff.BackOff {
			expo := backoff.NewExponentialBackOff()
			expo.InitialInterval = 200 * time.Millisecond
			expo.MaxInterval = time.Second
			expo.MaxElapsedTime = timeout
			return expo
		}
	}
	saved, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("op=datasource.new: %w", err)
	}
	for _, p := range saved {
		m.profiles[p.Name] = p
	}
	m.active = m.firstNameLocked()
	return m, nil
}

// AddProfile stores p, replacing a profile with the same name, and persists
// the list. p becomes active when nothing is active yet.
func (m *Manager) AddProfile(p domain.ConnectionProfile) error {
	if err := ValidateProfile(p); err != nil {
		return fmt.Errorf("op=datasource.add_profile: %w", err)
	}
	m.mu.Lock()
	prev, existed := m.profiles[p.Name]
	wasTemp := m.temp[p.Name]
	m.profiles[p.Name] = p
	delete(m.temp, p.Name)
	if err := m.persistLocked(); err != nil {
		if existed {
			m.profiles[p.Name] = prev
			if wasTemp {
				m.temp[p.Name] = true
			}
		} else {
			delete(m.profiles, p.Name)
		}
		m.mu.Unlock()
		return fmt.Errorf("op=datasource.add_profile: %w", err)
	}
	var stale PgxPool
	if existed && prev != p {
		stale = m.detachPoolLocked(p.Name)
	}
	if m.active == "" {
		m.active = p.Name
	}
	m.mu.Unlock()
	closePool(stale)
	return nil
}

// RemoveProfile deletes the named profile and closes its pool. When it was
// active the first remaining profile takes over.
func (m *Manager) RemoveProfile(name string) error {
	m.mu.Lock()
	prev, ok := m.profiles[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("op=datasource.remove_profile: %w: profile not found: %s", domain.ErrNotFound, name)
	}
	wasTemp := m.temp[name]
	delete(m.profiles, name)
	delete(m.temp, name)
	if err := m.persistLocked(); err != nil {
		m.profiles[name] = prev
		if wasTemp {
			m.temp[name] = true
		}
		m.mu.Unlock()
		return fmt.Errorf("op=datasource.remove_profile: %w", err)
	}
	stale := m.detachPoolLocked(name)
	delete(m.breakers, name)
	if m.active == name {
		m.active = m.firstNameLocked()
	}
	m.mu.Unlock()
	closePool(stale)
	return nil
}

// SetActive switches the active profile. Unknown names are ignored and
// reported as false.
func (m *Manager) SetActive(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[name]; !ok {
		return false
	}
	m.active = name
	return true
}

// ActiveName returns the active profile name or "".
func (m *Manager) ActiveName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Profiles returns a name-sorted copy of all profiles.
func (m *Manager) Profiles() []domain.ConnectionProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ConnectionProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Profile looks a profile up by name.
func (m *Manager) Profile(name string) (domain.ConnectionProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[name]
	return p, ok
}

// IsTemporary reports whether name was registered by ConnectTemporary.
func (m *Manager) IsTemporary(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.temp[name]
}

// Resolve maps "" to the active profile name.
func (m *Manager) Resolve(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	if active := m.ActiveName(); active != "" {
		return active, nil
	}
	return "", domain.ErrNoActiveProfile
}

// Pool returns the pool of the named profile, creating it on first use.
func (m *Manager) Pool(ctx context.Context, name string) (PgxPool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.poolLocked(ctx, name)
}

// ActivePool returns the pool of the active profile.
func (m *Manager) ActivePool(ctx context.Context) (PgxPool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == "" {
		return nil, fmt.Errorf("op=datasource.active_pool: %w", domain.ErrNoActiveProfile)
	}
	return m.poolLocked(ctx, m.active)
}

// poolLocked creates pools while holding mu so one profile never gets two
// pools. pgxpool does not dial until first use, so this stays short.
func (m *Manager) poolLocked(ctx context.Context, name string) (PgxPool, error) {
	p, ok := m.profiles[name]
	if !ok {
		return nil, fmt.Errorf("op=datasource.pool: %w: profile not found: %s", domain.ErrNotFound, name)
	}
	if pool, ok := m.pools[name]; ok {
		return pool, nil
	}
	pool, err := m.open(ctx, p)
	if err != nil {
		if errors.Is(err, domain.ErrConnection) {
			return nil, fmt.Errorf("op=datasource.pool: %w", err)
		}
		return nil, fmt.Errorf("op=datasource.pool: %w: %s: %w", domain.ErrConnection, name, err)
	}
	m.pools[name] = pool
	observability.PoolsOpen.Inc()
	slog.Debug("pool created", slog.String("connection", name), slog.String("pool", PoolName(name)))
	return pool, nil
}

func (m *Manager) breakerFor(name string) *breaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.breakers[name]
	if !ok {
		b = newBreaker(name, m.opts.BreakerFailures, m.opts.BreakerCooldown, m.now)
		m.breakers[name] = b
	}
	return b
}

// BreakerState reports the connect breaker state of a profile.
func (m *Manager) BreakerState(name string) BreakerState {
	return m.breakerFor(name).State()
}

// Do runs fn with the pool of the named profile ("" for active). Repeated
// connection failures open the profile's breaker and later calls fail fast
// with ErrConnection until the cool-down passes.
func (m *Manager) Do(ctx context.Context, name string, fn func(ctx context.Context, pool PgxPool) error) error {
	resolved, err := m.Resolve(name)
	if err != nil {
		return fmt.Errorf("op=datasource.do: %w", err)
	}
	pool, err := m.Pool(ctx, resolved)
	if err != nil {
		return err
	}
	br := m.breakerFor(resolved)
	if !br.allow() {
		return fmt.Errorf("op=datasource.do: %w: circuit open for %s", domain.ErrConnection, resolved)
	}
	err = fn(obsctx.ContextWithConnection(ctx, resolved), pool)
	br.record(isConnFailure(err))
	return err
}

// Test runs SELECT 1 on the named profile and reports whether it succeeded.
// Transient connection errors are retried within the connect timeout.
func (m *Manager) Test(ctx context.Context, name string) bool {
	tracer := otel.Tracer("repo.datasource")
	ctx, span := tracer.Start(ctx, "datasource.Test")
	defer span.End()

	if resolved, err := m.Resolve(name); err == nil {
		name = resolved
	}
	pool, err := m.Pool(ctx, name)
	if err != nil {
		obsctx.LoggerFromContext(ctx).Warn("connection test failed", slog.String("connection", name), slog.Any("error", err))
		return false
	}
	err = m.ping(ctx, pool)
	m.breakerFor(name).record(isConnFailure(err))
	if err != nil {
		obsctx.LoggerFromContext(ctx).Warn("connection test failed", slog.String("connection", name), slog.Any("error", err))
		return false
	}
	return true
}

// TestProfile checks an unsaved profile with a throwaway pool.
func (m *Manager) TestProfile(ctx context.Context, p domain.ConnectionProfile) bool {
	if ValidateProfile(p) != nil {
		return false
	}
	pool, err := m.open(ctx, p)
	if err != nil {
		return false
	}
	defer pool.Close()
	return m.ping(ctx, pool) == nil
}

func (m *Manager) ping(ctx context.Context, pool PgxPool) error {
	op := func() error {
		var one int
		err := pool.QueryRow(ctx, "SELECT 1").Scan(&one)
		if err == nil {
			return nil
		}
		err = classify("datasource.test", err)
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(m.backoff(), ctx))
}

// retryable is true for connection-level failures that are not server
// rejections such as a wrong password.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}
	return errors.Is(err, domain.ErrConnection) || errors.Is(err, domain.ErrTimeout)
}

// ConnectionInfo describes the active profile for status display.
func (m *Manager) ConnectionInfo() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[m.active]
	if !ok {
		return "No Connection"
	}
	return fmt.Sprintf("%s [%s/%s]", p.Name, p.Host, p.Database)
}

// ConnectTemporary registers an unsaved profile and makes it active.
func (m *Manager) ConnectTemporary(host string, port int, database, username, password string, useSSL bool) (domain.ConnectionProfile, error) {
	p := domain.ConnectionProfile{
		Name:     fmt.Sprintf("Temp-%d", m.now().UnixMilli()),
		Host:     host,
		Port:     port,
		Database: database,
		Username: username,
		Password: password,
		UseSSL:   useSSL,
	}
	if err := ValidateProfile(p); err != nil {
		return domain.ConnectionProfile{}, fmt.Errorf("op=datasource.connect_temporary: %w", err)
	}
	m.mu.Lock()
	m.profiles[p.Name] = p
	m.temp[p.Name] = true
	m.active = p.Name
	m.mu.Unlock()
	return p, nil
}

// ReplaceProfiles swaps in profiles read from disk. Temporary profiles are
// kept. Pools of removed or changed profiles are closed.
func (m *Manager) ReplaceProfiles(profiles []domain.ConnectionProfile) {
	next := make(map[string]domain.ConnectionProfile, len(profiles))
	for _, p := range profiles {
		next[p.Name] = p
	}
	m.mu.Lock()
	var stale []PgxPool
	for name, old := range m.profiles {
		if m.temp[name] {
			continue
		}
		if np, ok := next[name]; !ok || np != old {
			stale = append(stale, m.detachPoolLocked(name))
			delete(m.profiles, name)
		}
	}
	for name, p := range next {
		if m.temp[name] {
			delete(m.temp, name)
			stale = append(stale, m.detachPoolLocked(name))
		}
		m.profiles[name] = p
	}
	if _, ok := m.profiles[m.active]; !ok {
		m.active = m.firstNameLocked()
	}
	m.mu.Unlock()
	for _, p := range stale {
		closePool(p)
	}
}

// Close closes every open pool.
func (m *Manager) Close() {
	m.mu.Lock()
	pools := m.pools
	m.pools = map[string]PgxPool{}
	m.mu.Unlock()
	for name, p := range pools {
		slog.Debug("closing pool", slog.String("connection", name))
		closePool(p)
	}
}

func (m *Manager) detachPoolLocked(name string) PgxPool {
	p, ok := m.pools[name]
	if !ok {
		return nil
	}
	delete(m.pools, name)
	return p
}

func closePool(p PgxPool) {
	if p == nil {
		return
	}
	p.Close()
	observability.PoolsOpen.Dec()
}

func (m *Manager) firstNameLocked() string {
	first := ""
	for name := range m.profiles {
		if first == "" || name < first {
			first = name
		}
	}
	return first
}

func (m *Manager) persistLocked() error {
	out := make([]domain.ConnectionProfile, 0, len(m.profiles))
	for name, p := range m.profiles {
		if !m.temp[name] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return m.store.SaveAll(out)
}
