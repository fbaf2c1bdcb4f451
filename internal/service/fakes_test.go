package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vidora/vidora-backend/internal/models"
	"github.com/vidora/vidora-backend/pkg/clock"
	"github.com/vidora/vidora-backend/pkg/payment"
)

// testEnv wires the services against the in-memory store, the scripted
// gateway and a fixed clock.
type testEnv struct {
	store   *memStore
	gateway *fakeGateway
	mailer  *fakeMailer
	clock   *clock.Fixed

	ledger        *LedgerService
	payments      *PaymentService
	subscriptions *SubscriptionService
	topups        *TopupService
}

func newTestEnv() *testEnv {
	store := newMemStore()
	gateway := newFakeGateway()
	mailer := &fakeMailer{}
	clk := &clock.Fixed{Time: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	nop := zap.NewNop()

	payments := NewPaymentService(
		memPayments{store},
		memUsers{store},
		gateway,
		mailer,
		clk,
		nop,
	)

	return &testEnv{
		store:         store,
		gateway:       gateway,
		mailer:        mailer,
		clock:         clk,
		ledger:        NewLedgerService(memLedger{store}, clk, nop),
		payments:      payments,
		subscriptions: NewSubscriptionService(memSubs{store}, memUsers{store}, payments, mailer, clk, nop),
		topups:        NewTopupService(memPurchases{store}, payments, nop),
	}
}

// memStore is a shared in-memory backing for all store interfaces. The
// typed views below (memUsers, memLedger, ...) adapt it to each interface.
// All methods copy values in and out so tests see only what went through
// the store API.
type memStore struct {
	mu        sync.Mutex
	settleMu  sync.Mutex
	users     map[uint]models.User
	holds     map[uint]models.CreditHold
	payments  map[uint]models.Payment
	subs      map[uint]models.Subscription
	purchases map[uint]models.CreditPurchase
	gens      map[uint]models.Generation
	lastID    uint

	setCreditsCalls int
	addCreditsCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users:     make(map[uint]models.User),
		holds:     make(map[uint]models.CreditHold),
		payments:  make(map[uint]models.Payment),
		subs:      make(map[uint]models.Subscription),
		purchases: make(map[uint]models.CreditPurchase),
		gens:      make(map[uint]models.Generation),
	}
}

// nextID must be called with mu held.
func (m *memStore) nextID() uint {
	m.lastID++
	return m.lastID
}

func (m *memStore) addUser(email string, credits int) uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID()
	m.users[id] = models.User{ID: id, Email: email, Credits: credits}
	return id
}

func (m *memStore) userCredits(id uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id].Credits
}

func (m *memStore) hold(id uint) models.CreditHold {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.holds[id]
}

func (m *memStore) payment(id uint) models.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payments[id]
}

func (m *memStore) subscription(id uint) models.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs[id]
}

func (m *memStore) purchase(id uint) models.CreditPurchase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purchases[id]
}

func (m *memStore) generation(id uint) models.Generation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gens[id]
}

// memUsers implements UserStore.
type memUsers struct{ *memStore }

func (m memUsers) GetByID(id uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &u, nil
}

func (m memUsers) AddCredits(userID uint, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return models.ErrNotFound
	}
	u.Credits += amount
	m.users[userID] = u
	m.addCreditsCalls++
	return nil
}

func (m memUsers) SetCredits(userID uint, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return models.ErrNotFound
	}
	u.Credits = amount
	m.users[userID] = u
	m.setCreditsCalls++
	return nil
}

// memLedger implements LedgerStore with the same semantics as the gorm
// repository: placement deducts the balance, release re-credits it.
type memLedger struct{ *memStore }

func (m memLedger) AvailableBalance(userID uint) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return 0, 0, models.ErrNotFound
	}
	held := 0
	for _, h := range m.holds {
		if h.UserID == userID && h.Status == models.HoldOpen {
			held += h.CreditsHeld
		}
	}
	return u.Credits, held, nil
}

func (m memLedger) PlaceHold(userID uint, kind models.GenerationKind, generationID uint, amount int, now time.Time) (*models.CreditHold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if u.Credits < amount {
		return nil, &models.InsufficientCreditsError{Required: amount, Available: u.Credits}
	}
	u.Credits -= amount
	m.users[userID] = u

	h := models.CreditHold{
		ID:           m.nextID(),
		UserID:       userID,
		Kind:         kind,
		GenerationID: generationID,
		CreditsHeld:  amount,
		Status:       models.HoldOpen,
		CreatedAt:    now,
	}
	m.holds[h.ID] = h
	return &h, nil
}

func (m memLedger) GetHold(id uint) (*models.CreditHold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &h, nil
}

func (m memLedger) ConfirmHold(id uint, now time.Time) (*models.CreditHold, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[id]
	if !ok {
		return nil, false, models.ErrNotFound
	}
	if h.Status != models.HoldOpen {
		return &h, false, nil
	}
	h.Status = models.HoldConfirmed
	h.ConfirmedAt = &now
	m.holds[id] = h
	return &h, true, nil
}

func (m memLedger) ReleaseHold(id uint, now time.Time) (*models.CreditHold, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[id]
	if !ok {
		return nil, false, models.ErrNotFound
	}
	if h.Status != models.HoldOpen {
		return &h, false, nil
	}
	h.Status = models.HoldReleased
	h.ReleasedAt = &now
	m.holds[id] = h

	u := m.users[h.UserID]
	u.Credits += h.CreditsHeld
	m.users[h.UserID] = u
	return &h, true, nil
}

// memPayments implements PaymentStore.
type memPayments struct{ *memStore }

func (m memPayments) Create(p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextID()
	m.payments[p.ID] = *p
	return nil
}

func (m memPayments) GetByID(id uint) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (m memPayments) GetByOrderID(orderID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.OrderID == orderID {
			p := p
			return &p, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m memPayments) Update(p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.ID]; !ok {
		return models.ErrNotFound
	}
	m.payments[p.ID] = *p
	return nil
}

// Settle mimics the row-locked settlement transaction: settleMu stands in
// for the FOR UPDATE lock, so concurrent settlements serialize and fn sees
// the payment state left by the previous one.
func (m memPayments) Settle(id uint, fn func(tx SettlementStores, p *models.Payment) error) error {
	m.settleMu.Lock()
	defer m.settleMu.Unlock()
	p, err := m.GetByID(id)
	if err != nil {
		return err
	}
	return fn(SettlementStores{
		Payments:      memPayments{m.memStore},
		Users:         memUsers{m.memStore},
		Subscriptions: memSubs{m.memStore},
		Purchases:     memPurchases{m.memStore},
	}, p)
}

func (m memPayments) GetUserPayments(userID uint) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// memSubs implements SubscriptionStore.
type memSubs struct{ *memStore }

func (m memSubs) Create(s *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.nextID()
	m.subs[s.ID] = *s
	return nil
}

func (m memSubs) GetByID(id uint) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &s, nil
}

func (m memSubs) GetByUserID(userID uint) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.UserID == userID {
			s := s
			return &s, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m memSubs) Update(s *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[s.ID]; !ok {
		return models.ErrNotFound
	}
	m.subs[s.ID] = *s
	return nil
}

func (m memSubs) DueForRenewal(now time.Time) ([]models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Subscription
	for _, s := range m.subs {
		live := s.Status == models.SubscriptionActive || s.Status == models.SubscriptionPastDue
		if live && s.PeriodEnd != nil && !s.PeriodEnd.After(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memSubs) HardCancel(userID uint, now time.Time) (*models.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sub *models.Subscription
	for id, s := range m.subs {
		if s.UserID == userID {
			s.Status = models.SubscriptionCancelled
			s.AutoRenew = false
			s.CancelledAt = &now
			m.subs[id] = s
			s := s
			sub = &s
			break
		}
	}
	if sub == nil {
		return nil, models.ErrNotFound
	}

	u := m.users[userID]
	u.Credits = 0
	m.users[userID] = u

	for id, h := range m.holds {
		if h.UserID == userID && h.Status == models.HoldOpen {
			h.Status = models.HoldReleased
			h.ReleasedAt = &now
			m.holds[id] = h
		}
	}
	for id, p := range m.purchases {
		if p.UserID == userID && p.Status == models.PurchasePending {
			p.Status = models.PurchaseCancelled
			m.purchases[id] = p
		}
	}
	return sub, nil
}

// memPurchases implements PurchaseStore.
type memPurchases struct{ *memStore }

func (m memPurchases) Create(p *models.CreditPurchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextID()
	m.purchases[p.ID] = *p
	return nil
}

func (m memPurchases) GetByID(id uint) (*models.CreditPurchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &p, nil
}

func (m memPurchases) Update(p *models.CreditPurchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.purchases[p.ID]; !ok {
		return models.ErrNotFound
	}
	m.purchases[p.ID] = *p
	return nil
}

func (m memPurchases) GetUserPurchases(userID uint) ([]models.CreditPurchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CreditPurchase
	for _, p := range m.purchases {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// memGens implements GenerationStore.
type memGens struct{ *memStore }

func (m memGens) Create(g *models.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = m.nextID()
	m.gens[g.ID] = *g
	return nil
}

func (m memGens) GetByID(id uint) (*models.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gens[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &g, nil
}

func (m memGens) Update(g *models.Generation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gens[g.ID]; !ok {
		return models.ErrNotFound
	}
	m.gens[g.ID] = *g
	return nil
}

func (m memGens) GetUserGenerations(userID uint) ([]models.Generation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Generation
	for _, g := range m.gens {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// fakeGateway scripts the provider: intent and status outcomes are set per
// test. Webhook payloads are plain JSON and signature "valid" passes.
type fakeGateway struct {
	mu          sync.Mutex
	intentErr   error
	statusErr   error
	status      payment.Status
	intentCalls int
	statusCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{status: payment.StatusCompleted}
}

func (g *fakeGateway) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.intentErr != nil {
		return nil, g.intentErr
	}
	g.intentCalls++
	return &payment.Intent{
		TransactionID: "tx-" + req.OrderID,
		RedirectURL:   "https://gateway.test/checkout/" + req.OrderID,
		RawResponse:   `{"status":"success"}`,
	}, nil
}

func (g *fakeGateway) QueryStatus(_ context.Context, _ string) (payment.Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	if g.statusErr != nil {
		return "", g.statusErr
	}
	return g.status, nil
}

func (g *fakeGateway) VerifyWebhook(data, signature string) (*payment.WebhookEvent, error) {
	if signature != "valid" {
		return nil, payment.ErrSignatureInvalid
	}
	var payload struct {
		OrderID     string `json:"order_id"`
		Transaction string `json:"transaction"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, err
	}
	status := payment.StatusPending
	switch payload.Status {
	case "success", "completed":
		status = payment.StatusCompleted
	case "failed", "error", "declined":
		status = payment.StatusFailed
	}
	return &payment.WebhookEvent{
		OrderID:       payload.OrderID,
		TransactionID: payload.Transaction,
		Status:        status,
		RawStatus:     payload.Status,
	}, nil
}

func (g *fakeGateway) setStatus(s payment.Status) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = s
}

func (g *fakeGateway) setIntentErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intentErr = err
}

func (g *fakeGateway) setStatusErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusErr = err
}

type fakeMailer struct {
	mu       sync.Mutex
	receipts []string
	notices  []string
}

func (f *fakeMailer) SendPaymentReceipt(to, _, _, _, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts = append(f.receipts, to+":"+orderID)
	return nil
}

func (f *fakeMailer) SendPastDueNotice(to, plan string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, to+":"+plan)
	return nil
}
