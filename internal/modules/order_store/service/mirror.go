package service

import (
	"context"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"trade_bot/internal/models"
)

var ErrNotFound = errors.New("order not found")

// Mirror локальная копия ордеров, которые выставил бот.
// Источник истины биржа, зеркало нужно для восстановления после рестарта и разбора.
type Mirror interface {
	Put(ctx context.Context, o models.Order) error
	Get(ctx context.Context, id string) (models.Order, error)
}

const keyPrefix = "order:"

func orderKey(id string) string {
	return keyPrefix + strings.TrimSpace(id)
}

func encode(o models.Order) ([]byte, error) {
	raw, err := sonic.Marshal(o)
	return raw, errors.Wrapf(err, "encode order %s", o.ID)
}

func decode(raw []byte) (models.Order, error) {
	var o models.Order
	if err := sonic.Unmarshal(raw, &o); err != nil {
		return models.Order{}, errors.Wrap(err, "decode order")
	}
	return o, nil
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("order id is empty")
	}
	return nil
}

type MemoryMirror struct {
	mu     sync.RWMutex
	orders map[string][]byte
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{orders: map[string][]byte{}}
}

func (m *MemoryMirror) Put(_ context.Context, o models.Order) error {
	if err := validID(o.ID); err != nil {
		return err
	}
	raw, err := encode(o)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.orders[orderKey(o.ID)] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryMirror) Get(_ context.Context, id string) (models.Order, error) {
	m.mu.RLock()
	raw, ok := m.orders[orderKey(id)]
	m.mu.RUnlock()
	if !ok {
		return models.Order{}, ErrNotFound
	}
	return decode(raw)
}

func (m *MemoryMirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}
