// Package stats maintains the derived aggregate view of the order history.
// The ledger is the durability source of truth; this document is a cache
// of it, persisted whole on every mutation.
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"triton-orders/internal/models"
	"triton-orders/internal/util"

	"go.uber.org/zap"
)

// recentSnapshotLimit is how many orders the dashboard summary carries.
const recentSnapshotLimit = 10

// document is the persisted shape of the aggregate. Orders mirrors ledger
// creation order; PendingOrders holds exactly the subset still pending.
type document struct {
	TotalOrders   int64          `json:"totalOrders"`
	TotalRevenue  int64          `json:"totalRevenue"`
	Orders        []models.Order `json:"orders"`
	PendingOrders []models.Order `json:"pendingOrders"`
}

// Summary is the dashboard view computed at query time.
type Summary struct {
	TotalOrders        int64          `json:"totalOrders"`
	TotalRevenue       int64          `json:"totalRevenue"`
	TodayOrders        int64          `json:"todayOrders"`
	TodayRevenue       int64          `json:"todayRevenue"`
	PendingOrdersCount int            `json:"pendingOrdersCount"`
	RecentOrders       []models.Order `json:"recentOrders"`
}

// Store holds the aggregate in memory and rewrites the whole document on
// every mutation. All access is serialized by the mutex; a concurrent
// RecordCreated and RecordCompleted must not interleave mid-rewrite.
type Store struct {
	mu     sync.Mutex
	path   string
	doc    document
	logger *zap.Logger
}

// New loads the aggregate document from path, creating an empty one on
// first run.
func New(path string) (*Store, error) {
	s := &Store{
		path:   path,
		logger: util.GetLogger(),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", models.ErrStorageInit, err)
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		s.logger.Info("Stats document initialized", zap.String("path", path))
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read stats document: %v", models.ErrStorageInit, err)
	}
	if err := json.Unmarshal(raw, &s.doc); err != nil {
		return nil, fmt.Errorf("%w: parse stats document: %v", models.ErrStorageInit, err)
	}
	return s, nil
}

// RecordCreated folds a newly created order into the aggregate. Call it
// exactly once per order, only after the ledger append succeeded.
func (s *Store) RecordCreated(order models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.TotalOrders++
	s.doc.TotalRevenue += order.Total
	s.doc.Orders = append(s.doc.Orders, order)
	s.doc.PendingOrders = append(s.doc.PendingOrders, order)

	return s.persistLocked()
}

// FindPending returns the pending order for orderNumber, carrying the
// ledger row handle recorded at creation.
func (s *Store) FindPending(orderNumber string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.doc.PendingOrders {
		if o.OrderNumber == orderNumber {
			return o, nil
		}
	}
	return models.Order{}, fmt.Errorf("%w: %s", models.ErrOrderNotFound, orderNumber)
}

// RecordCompleted removes the order from the pending set and flips its
// status in the history. Totals never change: revenue counts every order
// ever created, completed or not.
func (s *Store) RecordCompleted(orderNumber string) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, o := range s.doc.PendingOrders {
		if o.OrderNumber == orderNumber {
			idx = i
			break
		}
	}
	if idx == -1 {
		return models.Order{}, fmt.Errorf("%w: %s", models.ErrOrderNotFound, orderNumber)
	}

	order := s.doc.PendingOrders[idx]
	s.doc.PendingOrders = append(s.doc.PendingOrders[:idx], s.doc.PendingOrders[idx+1:]...)

	for i := range s.doc.Orders {
		if s.doc.Orders[i].OrderNumber == orderNumber {
			s.doc.Orders[i].Status = models.StatusCompleted
			break
		}
	}

	if err := s.persistLocked(); err != nil {
		return models.Order{}, err
	}
	order.Status = models.StatusCompleted
	return order, nil
}

// Pending returns the pending orders in creation order.
func (s *Store) Pending() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Order, len(s.doc.PendingOrders))
	copy(out, s.doc.PendingOrders)
	return out
}

// Recent returns up to n orders, newest first.
func (s *Store) Recent(n int) []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recentLocked(n)
}

func (s *Store) recentLocked(n int) []models.Order {
	if n > len(s.doc.Orders) {
		n = len(s.doc.Orders)
	}
	out := make([]models.Order, 0, n)
	for i := len(s.doc.Orders) - 1; i >= len(s.doc.Orders)-n; i-- {
		out = append(out, s.doc.Orders[i])
	}
	return out
}

// Snapshot computes the dashboard summary. Today's figures are filtered
// against the stored creation timestamp at query time, never cached.
func (s *Store) Snapshot(now time.Time) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	y, m, d := now.Date()
	var todayOrders, todayRevenue int64
	for _, o := range s.doc.Orders {
		oy, om, od := o.CreatedAt.In(now.Location()).Date()
		if oy == y && om == m && od == d {
			todayOrders++
			todayRevenue += o.Total
		}
	}

	return Summary{
		TotalOrders:        s.doc.TotalOrders,
		TotalRevenue:       s.doc.TotalRevenue,
		TodayOrders:        todayOrders,
		TodayRevenue:       todayRevenue,
		PendingOrdersCount: len(s.doc.PendingOrders),
		RecentOrders:       s.recentLocked(recentSnapshotLimit),
	}
}

// Rebuild replaces the aggregate with one recomputed from a ledger replay.
// Operational recovery for the documented inconsistency window between the
// ledger write and the stats write.
func (s *Store) Rebuild(orders []models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := document{
		Orders:        orders,
		PendingOrders: []models.Order{},
	}
	for _, o := range orders {
		doc.TotalOrders++
		doc.TotalRevenue += o.Total
		if o.IsPending() {
			doc.PendingOrders = append(doc.PendingOrders, o)
		}
	}
	s.doc = doc

	s.logger.Info("Stats rebuilt from ledger",
		zap.Int64("total_orders", doc.TotalOrders),
		zap.Int("pending", len(doc.PendingOrders)))
	return s.persistLocked()
}

// persistLocked rewrites the whole document: temp file in the same
// directory, then rename, so readers never observe a partial write.
// Callers must hold the mutex.
func (s *Store) persistLocked() error {
	raw, err := json.MarshalIndent(&s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode stats document: %v", models.ErrStorageWrite, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "order-stats-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", models.ErrStorageWrite, err)
	}
	return nil
}
