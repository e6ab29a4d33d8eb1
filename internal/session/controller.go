package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/controlboxthe-coder/THE-BOX/internal/core"
	"github.com/controlboxthe-coder/THE-BOX/internal/log"
	"github.com/controlboxthe-coder/THE-BOX/internal/store"
)

var (
	ErrNotAuthenticated    = errors.New("no authenticated session")
	ErrLoginInProgress     = errors.New("login already in progress")
	ErrNotConfirmed        = errors.New("deletion not confirmed")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateCategory   = errors.New("category already exists")
)

// Publisher announces that a snapshot reached durable storage. A nil
// publisher disables announcements without disabling saves.
type Publisher interface {
	PublishSnapshotSaved(ctx context.Context, email string, savedAt time.Time) error
}

const saveQueueSize = 64

type saveRequest struct {
	email    string
	snapshot core.Snapshot
}

// Controller owns the single application state for one process and mediates
// every mutation. Successful mutations enqueue a durable save; the syncer
// goroutine drains the queue so storage latency never blocks a caller.
type Controller struct {
	mu    sync.Mutex
	state ApplicationState

	snapshots store.SnapshotStore
	sessions  store.SessionStore
	publisher Publisher
	logger    *log.Logger

	loginDelay time.Duration
	newID      func() string
	now        func() time.Time

	saves     chan saveRequest
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Options configures a Controller.
type Options struct {
	Snapshots store.SnapshotStore
	Sessions  store.SessionStore
	Publisher Publisher
	Logger    *log.Logger

	// LoginDelay simulates the latency of an identity exchange. Zero skips
	// the wait.
	LoginDelay time.Duration
}

func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	c := &Controller{
		state:      emptyState(),
		snapshots:  opts.Snapshots,
		sessions:   opts.Sessions,
		publisher:  opts.Publisher,
		logger:     logger.WithComponent(log.ComponentSession),
		loginDelay: opts.LoginDelay,
		newID:      uuid.NewString,
		now:        time.Now,
		saves:      make(chan saveRequest, saveQueueSize),
	}

	c.wg.Add(1)
	go c.runSyncer()

	return c
}

// Close stops the syncer after draining queued saves.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		close(c.saves)
	})
	c.wg.Wait()
	return nil
}

// State returns a deep copy of the current application state.
func (c *Controller) State() ApplicationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Login authenticates the candidate identity and replaces the application
// state with the identity's stored snapshot merged over defaults. The
// simulated latency elapses before the load; cancelling ctx during the wait
// returns the session to its previous phase.
func (c *Controller) Login(ctx context.Context, user core.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	switch c.state.Phase {
	case Loading:
		c.mu.Unlock()
		return ErrLoginInProgress
	case Authenticated:
		c.mu.Unlock()
		return ErrLoginInProgress
	}
	c.state.Phase = Loading
	c.mu.Unlock()

	if c.loginDelay > 0 {
		timer := time.NewTimer(c.loginDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			c.mu.Lock()
			c.state.Phase = Unauthenticated
			c.mu.Unlock()
			return ctx.Err()
		}
	}

	return c.completeLogin(ctx, user)
}

// Resume restores the session pointer left by a previous run, skipping the
// simulated latency. It is a no-op when no pointer exists.
func (c *Controller) Resume(ctx context.Context) error {
	if c.sessions == nil {
		return nil
	}

	user, ok, err := c.sessions.LoadSession(ctx)
	if err != nil || !ok {
		return err
	}

	c.mu.Lock()
	if c.state.Phase != Unauthenticated {
		c.mu.Unlock()
		return ErrLoginInProgress
	}
	c.state.Phase = Loading
	c.mu.Unlock()

	return c.completeLogin(ctx, user)
}

func (c *Controller) completeLogin(ctx context.Context, user core.User) error {
	snap, found, err := c.snapshots.Load(ctx, user.Email)
	if err != nil {
		// Storage failures surface as "no prior data", never as a failed
		// login.
		c.logger.WarnContext(ctx, "Snapshot load failed, starting fresh",
			log.FieldEmail, user.Email,
			log.FieldError, err)
		found = false
	}

	fresh := emptyState()
	fresh.Phase = Authenticated
	u := user
	fresh.User = &u
	if found {
		fresh.Transactions = append([]core.Transaction(nil), snap.Transactions...)
		if snap.Categories != nil {
			fresh.Categories = append([]string(nil), snap.Categories...)
		}
		fresh.Recurring = append([]core.RecurringItem(nil), snap.Recurring...)
		fresh.LicenseKey = snap.LicenseKey
	}

	c.mu.Lock()
	c.state = fresh
	c.mu.Unlock()

	if c.sessions != nil {
		if err := c.sessions.SaveSession(ctx, user); err != nil {
			c.logger.WarnContext(ctx, "Session pointer save failed",
				log.FieldEmail, user.Email,
				log.FieldError, err)
		}
	}

	c.logger.InfoContext(ctx, "Session authenticated",
		log.FieldOperation, log.OpLogin,
		log.FieldEmail, user.Email,
		"snapshot_found", found)

	return nil
}

// Logout clears the session pointer and resets the state to empty. Durable
// per-identity data is untouched.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	email := ""
	if c.state.User != nil {
		email = c.state.User.Email
	}
	c.state = emptyState()
	c.mu.Unlock()

	if c.sessions != nil {
		if err := c.sessions.ClearSession(ctx); err != nil {
			c.logger.WarnContext(ctx, "Session pointer clear failed", log.FieldError, err)
		}
	}

	c.logger.InfoContext(ctx, "Session closed",
		log.FieldOperation, log.OpLogout,
		log.FieldEmail, email)

	return nil
}

// AddTransaction validates and prepends a transaction, assigning an ID when
// absent. An unknown category falls back to the default bucket.
func (c *Controller) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = c.newID()
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	c.mu.Lock()
	if !c.state.IsAuthenticated() {
		c.mu.Unlock()
		return core.Transaction{}, ErrNotAuthenticated
	}
	if !containsCategory(c.state.Categories, tx.Category) {
		tx.Category = core.FallbackCategory
	}
	c.state.Transactions = append([]core.Transaction{tx}, c.state.Transactions...)
	req := c.saveRequestLocked()
	c.mu.Unlock()

	c.scheduleSave(ctx, req)

	c.logger.InfoContext(ctx, "Transaction recorded",
		log.FieldOperation, log.OpCreate,
		log.FieldTxID, tx.ID,
		log.FieldTxType, string(tx.Type),
		log.FieldCategory, tx.Category,
		log.FieldAmountCents, tx.Amount.Cents)

	return tx, nil
}

// DeleteTransaction removes a transaction by ID. The confirmed flag is the
// human-in-the-loop guard: without it the state is left unchanged.
func (c *Controller) DeleteTransaction(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	c.mu.Lock()
	if !c.state.IsAuthenticated() {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	idx := -1
	for i, tx := range c.state.Transactions {
		if tx.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return ErrTransactionNotFound
	}
	c.state.Transactions = append(
		c.state.Transactions[:idx:idx],
		c.state.Transactions[idx+1:]...)
	req := c.saveRequestLocked()
	c.mu.Unlock()

	c.scheduleSave(ctx, req)

	c.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTxID, id)

	return nil
}

// SetLicenseKey stores the activation value. Any value other than the known
// PRO constant leaves the account in the free tier.
func (c *Controller) SetLicenseKey(ctx context.Context, key string) (bool, error) {
	key = strings.TrimSpace(key)

	c.mu.Lock()
	if !c.state.IsAuthenticated() {
		c.mu.Unlock()
		return false, ErrNotAuthenticated
	}
	c.state.LicenseKey = key
	pro := c.state.IsPro()
	req := c.saveRequestLocked()
	c.mu.Unlock()

	c.scheduleSave(ctx, req)

	return pro, nil
}

// AddCategory appends a new category name, preserving order.
func (c *Controller) AddCategory(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}

	c.mu.Lock()
	if !c.state.IsAuthenticated() {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	if containsCategory(c.state.Categories, name) {
		c.mu.Unlock()
		return ErrDuplicateCategory
	}
	c.state.Categories = append(c.state.Categories, name)
	req := c.saveRequestLocked()
	c.mu.Unlock()

	c.scheduleSave(ctx, req)

	return nil
}

// Restore applies a validated partial backup. Nil patch fields leave the
// current value untouched; non-nil fields replace it wholesale.
func (c *Controller) Restore(ctx context.Context, patch core.SnapshotPatch) error {
	c.mu.Lock()
	if !c.state.IsAuthenticated() {
		c.mu.Unlock()
		return ErrNotAuthenticated
	}
	if patch.Transactions != nil {
		c.state.Transactions = append([]core.Transaction(nil), (*patch.Transactions)...)
	}
	if patch.Categories != nil {
		c.state.Categories = append([]string(nil), (*patch.Categories)...)
	}
	if patch.Recurring != nil {
		c.state.Recurring = append([]core.RecurringItem(nil), (*patch.Recurring)...)
	}
	if patch.LicenseKey != nil {
		c.state.LicenseKey = *patch.LicenseKey
	}
	req := c.saveRequestLocked()
	c.mu.Unlock()

	c.scheduleSave(ctx, req)

	c.logger.InfoContext(ctx, "Backup restored",
		log.FieldOperation, log.OpRestore,
		"replaced_transactions", patch.Transactions != nil,
		"replaced_categories", patch.Categories != nil,
		"replaced_recurring", patch.Recurring != nil)

	return nil
}

// saveRequestLocked stamps UpdatedAt here so the durable record and the
// announcement carry the same timestamp.
func (c *Controller) saveRequestLocked() saveRequest {
	snap := c.state.snapshot()
	snap.UpdatedAt = c.now().UTC()
	return saveRequest{
		email:    c.state.User.Email,
		snapshot: snap,
	}
}

// scheduleSave hands a state copy to the syncer. Saves are fire-and-forget;
// when the queue is full the request is dropped and logged.
func (c *Controller) scheduleSave(ctx context.Context, req saveRequest) {
	select {
	case c.saves <- req:
	default:
		c.logger.WarnContext(ctx, "Save queue full, dropping snapshot",
			log.FieldEmail, req.email)
	}
}

func (c *Controller) runSyncer() {
	defer c.wg.Done()

	logger := c.logger.WithComponent(log.ComponentSyncer)
	for req := range c.saves {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := c.snapshots.Save(ctx, req.email, req.snapshot); err != nil {
			logger.ErrorContext(ctx, "Snapshot save failed",
				log.FieldOperation, log.OpSave,
				log.FieldEmail, req.email,
				log.FieldError, err)
			cancel()
			continue
		}

		if c.publisher != nil {
			if err := c.publisher.PublishSnapshotSaved(ctx, req.email, req.snapshot.UpdatedAt); err != nil {
				logger.WarnContext(ctx, "Snapshot announcement failed",
					log.FieldEmail, req.email,
					log.FieldError, err)
			}
		}

		cancel()
	}
}

func containsCategory(categories []string, name string) bool {
	for _, c := range categories {
		if c == name {
			return true
		}
	}
	return false
}
