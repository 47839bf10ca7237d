package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type account struct {
	id           string
	email        string
	displayName  string
	passwordHash []byte
}

func (a *account) identity() *Identity {
	return &Identity{ID: a.id, DisplayName: a.displayName, Email: a.email}
}

// Directory is an in-memory account directory with bcrypt password hashes.
// It also remembers which account each browser client is signed in as, so a
// provider handed out again for the same client reports the live session.
// Subscribers are kept per client id only while at least one is registered.
type Directory struct {
	mu       sync.RWMutex
	accounts map[string]*account // key: lower-cased email
	byID     map[string]*account
	sessions map[string]string // client id -> account id
	subs     map[string]map[int]func(*Identity)
	nextSub  int
	cost     int
}

// NewDirectory creates an empty Directory. bcryptCost <= 0 uses bcrypt.DefaultCost.
func NewDirectory(bcryptCost int) *Directory {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Directory{
		accounts: make(map[string]*account),
		byID:     make(map[string]*account),
		sessions: make(map[string]string),
		subs:     make(map[string]map[int]func(*Identity)),
		cost:     bcryptCost,
	}
}

// ProviderFor returns the Provider view of the directory for one client.
// Views are cheap; every view of the same client id shares its subscribers.
func (d *Directory) ProviderFor(clientID string) Provider {
	return &Client{dir: d, clientID: clientID}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d *Directory) create(email, password string) (*account, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	key := normalizeEmail(email)

	// Hash outside the lock; bcrypt is slow on purpose.
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.accounts[key]; exists {
		return nil, ErrEmailInUse
	}
	acc := &account{
		id:           uuid.NewString(),
		email:        key,
		passwordHash: hash,
	}
	d.accounts[key] = acc
	d.byID[acc.id] = acc
	return acc, nil
}

func (d *Directory) verify(email, password string) (*account, error) {
	d.mu.RLock()
	acc, ok := d.accounts[normalizeEmail(email)]
	d.mu.RUnlock()
	if !ok {
		// hide whether the account exists
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

func (d *Directory) setDisplayName(id, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	acc, ok := d.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	acc.displayName = name
	return nil
}

func (d *Directory) bind(clientID, accountID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if accountID == "" {
		delete(d.sessions, clientID)
		return
	}
	d.sessions[clientID] = accountID
}

func (d *Directory) current(clientID string) *Identity {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.sessions[clientID]
	if !ok {
		return nil
	}
	acc, ok := d.byID[id]
	if !ok {
		return nil
	}
	return acc.identity()
}

func (d *Directory) subscribe(clientID string, fn func(*Identity)) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := d.nextSub
	d.nextSub++
	subs, ok := d.subs[clientID]
	if !ok {
		subs = make(map[int]func(*Identity))
		d.subs[clientID] = subs
	}
	subs[key] = fn
	return key
}

func (d *Directory) unsubscribe(clientID string, key int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	subs := d.subs[clientID]
	delete(subs, key)
	if len(subs) == 0 {
		delete(d.subs, clientID)
	}
}

func (d *Directory) subscribers(clientID string) []func(*Identity) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	subs := make([]func(*Identity), 0, len(d.subs[clientID]))
	for _, fn := range d.subs[clientID] {
		subs = append(subs, fn)
	}
	return subs
}

// watched reports how many client ids currently have subscribers.
func (d *Directory) watched() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// Client is the per-browser Provider handed out by Directory.
type Client struct {
	dir      *Directory
	clientID string
}
func (c *Client) CreateAccount(ctx context.Context, email, password string) (*Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	acc, err := c.dir.create(email, password)
	if err != nil {
		return nil, err
	}
	c.dir.bind(c.clientID, acc.id)
	c.notify()
	return c.dir.current(c.clientID), nil
}

func (c *Client) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	acc, err := c.dir.verify(email, password)
	if err != nil {
		return nil, err
	}
	c.dir.bind(c.clientID, acc.id)
	c.notify()
	return c.dir.current(c.clientID), nil
}

func (c *Client) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.dir.bind(c.clientID, "")
	c.notify()
	return nil
}

// SetDisplayName updates the profile only; it does not notify subscribers.
func (c *Client) SetDisplayName(ctx context.Context, id *Identity, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == nil {
		return ErrUserNotFound
	}
	if err := c.dir.setDisplayName(id.ID, name); err != nil {
		return err
	}
	id.DisplayName = name
	return nil
}

func (c *Client) Subscribe(onChange func(*Identity)) func() {
	key := c.dir.subscribe(c.clientID, onChange)

	onChange(c.dir.current(c.clientID))

	var once sync.Once
	return func() {
		once.Do(func() { c.dir.unsubscribe(c.clientID, key) })
	}
}

// notify calls subscribers outside the lock so they may call back in.
func (c *Client) notify() {
	for _, fn := range c.dir.subscribers(c.clientID) {
		fn(c.dir.current(c.clientID))
	}
}
