package coins

import "fmt"

// BankSize is the number of coins in the bank at the start of an expert match.
const BankSize = 20

// StartingCoins is the number of coins each player takes from the bank at setup.
const StartingCoins = 1

// Pool is a counted pile of coins: the bank or a player's purse.
// Pools are plain values so a match can be copied and committed atomically.
type Pool struct {
	Coins int
}

// NewBank creates a bank holding BankSize coins.
func NewBank() Pool {
	return Pool{Coins: BankSize}
}

// Add adds coins to the pool. Non-positive amounts are ignored.
func (p *Pool) Add(amount int) {
	if amount > 0 {
		p.Coins += amount
	}
}

// CanSpend reports whether the pool holds at least amount coins.
func (p Pool) CanSpend(amount int) bool {
	return amount >= 0 && p.Coins >= amount
}

// Spend removes amount coins and reports whether the pool could pay.
// Nothing is removed on failure.
func (p *Pool) Spend(amount int) bool {
	if !p.CanSpend(amount) {
		return false
	}
	p.Coins -= amount
	return true
}

// Transfer moves amount coins from p into dst.
func (p *Pool) Transfer(dst *Pool, amount int) error {
	if !p.Spend(amount) {
		return fmt.Errorf("insufficient coins: have %d, need %d", p.Coins, amount)
	}
	dst.Add(amount)
	return nil
}
