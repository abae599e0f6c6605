package surety

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/maxmedina05/flight-surety-udacity-project/model"
)

// Credits is the ledger-backed Accounting used by Insurance. It tracks how
// much each insuree may withdraw; the transfer itself happens elsewhere.
type Credits struct {
	store Store
	clock func() time.Time
	locks *keyedMutex
}

// NewCredits returns a credit book over store. A nil clock means time.Now.
func NewCredits(store Store, clock func() time.Time) *Credits {
	if clock == nil {
		clock = time.Now
	}
	return &Credits{store: store, clock: clock, locks: newKeyedMutex()}
}

// Credit adds amount to holder's balance.
func (c *Credits) Credit(holder string, amount *uint256.Int) error {
	if err := validateAttribute(holder, "holder"); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return nil
	}
	unlock := c.locks.Lock(holder)
	defer unlock()
	bal, err := c.balance(holder)
	if err != nil {
		return err
	}
	sum, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return fmt.Errorf("%w: balance of '%s' overflows", ErrInvalidArgument, holder)
	}
	return c.save(holder, sum)
}

// Balance returns holder's withdrawable credit.
func (c *Credits) Balance(holder string) (*uint256.Int, error) {
	return c.balance(holder)
}

// Withdraw zeroes holder's balance and returns what it held.
func (c *Credits) Withdraw(holder string) (*uint256.Int, error) {
	if err := validateAttribute(holder, "holder"); err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	if err := requireOperational(c.store); err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	unlock := c.locks.Lock(holder)
	defer unlock()
	bal, err := c.balance(holder)
	if err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	if bal.IsZero() {
		return nil, fmt.Errorf("Withdraw: holder '%s' has no credit: %w", holder, ErrInsufficientFunds)
	}
	if err := deleteRecord(c.store, creditObjectType, []string{holder}); err != nil {
		return nil, fmt.Errorf("Withdraw: %w", err)
	}
	insuranceLogger.Infof("Holder '%s' withdrew %s", holder, bal.Dec())
	return bal, nil
}

func (c *Credits) balance(holder string) (*uint256.Int, error) {
	rec, err := getRecord[model.CreditBalance](c.store, creditObjectType, []string{holder})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return new(uint256.Int), nil
	}
	return ParseAmount(rec.Amount)
}

func (c *Credits) save(holder string, amount *uint256.Int) error {
	rec := &model.CreditBalance{
		ObjectType:    creditObjectType,
		Holder:        holder,
		Amount:        amount.Dec(),
		LastUpdatedAt: c.clock().UTC(),
	}
	return putRecord(c.store, creditObjectType, []string{holder}, rec)
}
