package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/eugenenazirov/balance-table/internal/balance"
)

const maxDenominations = 64

var (
	// ErrInvalidInventory indicates the provided inventory violates validation rules.
	ErrInvalidInventory = errors.New("inventory must contain at most 64 denominations with non-zero values and non-negative counts")
)

var defaultInventory = []balance.Denomination{
	{Value: 1, Count: 1},
	{Value: 2, Count: 2},
	{Value: 5, Count: 1},
	{Value: 10, Count: 1},
	{Value: 20, Count: 2},
	{Value: 50, Count: 1},
	{Value: 100, Count: 1},
	{Value: 200, Count: 2},
	{Value: 500, Count: 1},
	{Value: 1000, Count: 2},
	{Value: 2000, Count: 1},
	{Value: 5000, Count: 1},
}

// Storage provides access to the weight inventory used by the solver.
type Storage interface {
	GetInventory() ([]balance.Denomination, error)
	SetInventory(inventory []balance.Denomination) error
}

// MemoryStorage keeps the inventory in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu        sync.RWMutex
	inventory []balance.Denomination
}

// NewMemoryStorage initialises storage with a copy of the default inventory.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		inventory: clone(defaultInventory),
	}
}

// DefaultInventory returns a copy of the default inventory.
func DefaultInventory() []balance.Denomination {
	return clone(defaultInventory)
}

// GetInventory returns a defensive copy of the current inventory in its original order.
func (s *MemoryStorage) GetInventory() ([]balance.Denomination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return clone(s.inventory), nil
}

// SetInventory validates and stores the provided inventory.
func (s *MemoryStorage) SetInventory(inventory []balance.Denomination) error {
	if err := validate(inventory); err != nil {
		return err
	}

	s.mu.Lock()
	s.inventory = clone(inventory)
	s.mu.Unlock()

	return nil
}

func clone(src []balance.Denomination) []balance.Denomination {
	out := make([]balance.Denomination, len(src))
	copy(out, src)
	return out
}

func validate(inventory []balance.Denomination) error {
	if len(inventory) > maxDenominations {
		return fmt.Errorf("%w: more than %d denominations", ErrInvalidInventory, maxDenominations)
	}
	if err := balance.Validate(inventory); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInventory, err)
	}
	return nil
}
