// Package orderstest provides an in-memory orders.Store for tests.
package orderstest

import (
	"context"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

type state struct {
	stock      map[orders.StockKey]int
	promos     map[string]orders.PromoCode
	users      map[string]int64
	orders     map[string]*orders.Order
	byID       map[int64]string
	newsletter map[string]bool
	nextID     int64
}

func (s *state) clone() *state {
	c := &state{
		stock:      maps.Clone(s.stock),
		promos:     maps.Clone(s.promos),
		users:      maps.Clone(s.users),
		orders:     make(map[string]*orders.Order, len(s.orders)),
		byID:       maps.Clone(s.byID),
		newsletter: maps.Clone(s.newsletter),
		nextID:     s.nextID,
	}
	for k, o := range s.orders {
		cp := *o
		cp.Lines = append([]orders.OrderLine(nil), o.Lines...)
		c.orders[k] = &cp
	}
	return c
}

// Store keeps everything in maps. Transactions are serialized and applied only on success,
// and the write methods follow the same conditional rules as the Postgres store.
type Store struct {
	mu    sync.Mutex
	st    *state
	names map[int64]orders.LineSnapshot // product id -> name and color
	sizes map[int64]string
	image map[int64]string
	// decrement attempts in call order, committed or not
	decrements []orders.StockKey

	// BeforeTx runs before a transaction takes the lock; tests use it to simulate a
	// concurrent writer between stock validation and the transaction.
	BeforeTx func(s *Store)
	// Fail makes the named Tx method return the error.
	Fail map[string]error
}

func NewStore() *Store {
	return &Store{
		st: &state{
			stock:      map[orders.StockKey]int{},
			promos:     map[string]orders.PromoCode{},
			users:      map[string]int64{},
			orders:     map[string]*orders.Order{},
			byID:       map[int64]string{},
			newsletter: map[string]bool{},
		},
		names: map[int64]orders.LineSnapshot{},
		sizes: map[int64]string{},
		image: map[int64]string{},
		Fail:  map[string]error{},
	}
}

// AddProduct registers catalog names used for line snapshots.
func (s *Store) AddProduct(id int64, name, color, imageURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[id] = orders.LineSnapshot{ProductName: name, Color: color}
	if imageURL != "" {
		s.image[id] = imageURL
	}
}

func (s *Store) AddSize(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sizes[id] = name
}

func (s *Store) SetStock(productID, sizeID int64, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.stock[orders.StockKey{ProductID: productID, SizeID: sizeID}] = qty
}

func (s *Store) Stock(productID, sizeID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.stock[orders.StockKey{ProductID: productID, SizeID: sizeID}]
}

// Decrements returns every stock entry DecrementStock was called for, in call order.
func (s *Store) Decrements() []orders.StockKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]orders.StockKey(nil), s.decrements...)
}

func (s *Store) AddPromo(p orders.PromoCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.nextID++
	if p.ID == 0 {
		p.ID = s.st.nextID
	}
	s.st.promos[strings.ToUpper(p.Code)] = p
}

func (s *Store) Promo(code string) orders.PromoCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.promos[strings.ToUpper(code)]
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.users)
}

func (s *Store) Subscribed(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.newsletter[email]
}

// AddUser stores an existing account and returns its id.
func (s *Store) AddUser(email string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.nextID++
	s.st.users[email] = s.st.nextID
	return s.st.nextID
}

// TakeOrderNumber reserves a number as if another order already used it.
func (s *Store) TakeOrderNumber(number string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.nextID++
	s.st.orders[number] = &orders.Order{ID: s.st.nextID, OrderNumber: number}
	s.st.byID[s.st.nextID] = number
}

func (s *Store) StockEntries(_ context.Context, keys []orders.StockKey) (map[orders.StockKey]orders.StockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[orders.StockKey]orders.StockEntry, len(keys))
	for _, k := range keys {
		if q, ok := s.st.stock[k]; ok {
			out[k] = orders.StockEntry{ProductID: k.ProductID, SizeID: k.SizeID, Quantity: q, InStock: q > 0}
		}
	}
	return out, nil
}

func (s *Store) PromoByCode(_ context.Context, code string) (*orders.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.promos[strings.ToUpper(code)]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return &p, nil
}

func (s *Store) OrderByNumber(_ context.Context, number string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.st.orders[number]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := *o
	cp.Lines = append([]orders.OrderLine(nil), o.Lines...)
	for i := range cp.Lines {
		cp.Lines[i].ImageURL = s.image[cp.Lines[i].ProductID]
	}
	return &cp, nil
}

func (s *Store) InTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	if s.BeforeTx != nil {
		s.BeforeTx(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s, st: s.st.clone()}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = t.st
	return nil
}

type tx struct {
	s  *Store
	st *state
}

func (t *tx) fail(method string) error { return t.s.Fail[method] }

func (t *tx) EnsureUser(_ context.Context, u orders.NewUser) (int64, bool, error) {
	if err := t.fail("EnsureUser"); err != nil {
		return 0, false, err
	}
	if id, ok := t.st.users[u.Email]; ok {
		return id, false, nil
	}
	t.st.nextID++
	t.st.users[u.Email] = t.st.nextID
	return t.st.nextID, true, nil
}

func (t *tx) InsertOrder(_ context.Context, o *orders.Order) (bool, error) {
	if err := t.fail("InsertOrder"); err != nil {
		return false, err
	}
	if _, taken := t.st.orders[o.OrderNumber]; taken {
		return false, nil
	}
	t.st.nextID++
	o.ID = t.st.nextID
	o.CreatedAt = time.Now().UTC()
	cp := *o
	cp.Lines = nil
	t.st.orders[o.OrderNumber] = &cp
	t.st.byID[o.ID] = o.OrderNumber
	return true, nil
}

func (t *tx) InsertLine(_ context.Context, l *orders.OrderLine) error {
	if err := t.fail("InsertLine"); err != nil {
		return err
	}
	o := t.st.orders[t.st.byID[l.OrderID]]
	t.st.nextID++
	l.ID = t.st.nextID
	o.Lines = append(o.Lines, *l)
	return nil
}

func (t *tx) Snapshot(_ context.Context, productID, sizeID int64) (orders.LineSnapshot, error) {
	if err := t.fail("Snapshot"); err != nil {
		return orders.LineSnapshot{}, err
	}
	snap := t.s.names[productID]
	snap.SizeName = t.s.sizes[sizeID]
	return snap, nil
}

func (t *tx) DecrementStock(_ context.Context, productID, sizeID int64, qty int) (bool, error) {
	if err := t.fail("DecrementStock"); err != nil {
		return false, err
	}
	k := orders.StockKey{ProductID: productID, SizeID: sizeID}
	t.s.decrements = append(t.s.decrements, k)
	have, ok := t.st.stock[k]
	if !ok || have < qty {
		return false, nil
	}
	t.st.stock[k] = have - qty
	return true, nil
}

func (t *tx) IncrementPromoUsage(_ context.Context, promoID int64) (bool, error) {
	if err := t.fail("IncrementPromoUsage"); err != nil {
		return false, err
	}
	for code, p := range t.st.promos {
		if p.ID != promoID {
			continue
		}
		if p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit {
			return false, nil
		}
		p.UsageCount++
		t.st.promos[code] = p
		return true, nil
	}
	return false, nil
}

func (t *tx) SubscribeNewsletter(_ context.Context, email string) (bool, error) {
	if err := t.fail("SubscribeNewsletter"); err != nil {
		return false, err
	}
	if t.st.newsletter[email] {
		return false, nil
	}
	t.st.newsletter[email] = true
	return true, nil
}
