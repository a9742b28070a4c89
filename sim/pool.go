// Implements the OrderPool, which holds all open orders not yet accepted by a vehicle.
// Orders keep their generation order; assignment heuristics depend on it for tie-breaking.

package sim

import (
	"fmt"
	"strings"
)

// OrderPool is an ordered set of open orders.
type OrderPool struct {
	orders []Order
}

// Enqueue adds an order to the back of the pool.
func (p *OrderPool) Enqueue(o Order) {
	p.orders = append(p.orders, o)
}

func (p *OrderPool) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, o := range p.orders {
		sb.WriteString(fmt.Sprint(o.ID))
		if i < len(p.orders)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of open orders.
func (p *OrderPool) Len() int {
	return len(p.orders)
}

// Items returns the pool contents for iteration.
// The returned slice is the pool's internal storage -- callers within the
// sim package may iterate over it but MUST NOT append to or reslice it.
func (p *OrderPool) Items() []Order {
	return p.orders
}

// Remove deletes the orders with the given IDs, preserving the order of the
// rest. It returns the number of orders removed.
func (p *OrderPool) Remove(ids ...int) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := p.orders[:0]
	removed := 0
	for _, o := range p.orders {
		if _, ok := drop[o.ID]; ok {
			removed++
			continue
		}
		kept = append(kept, o)
	}
	// zero the tail so the backing array does not pin stale values
	for i := len(kept); i < len(p.orders); i++ {
		p.orders[i] = Order{}
	}
	p.orders = kept
	return removed
}
