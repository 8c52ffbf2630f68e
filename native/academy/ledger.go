package academy

import (
	"fmt"
	"math/big"
)

// splitPayment divides amount into the author's share and the platform fee.
// The fee truncates toward zero, so rounding dust stays with the author.
func splitPayment(amount *big.Int, feeBps uint64) (authorCredit, platformCredit *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0), big.NewInt(0)
	}
	platformCredit = new(big.Int).Mul(amount, new(big.Int).SetUint64(feeBps))
	platformCredit.Quo(platformCredit, big.NewInt(bpsDenominator))
	authorCredit = new(big.Int).Sub(amount, platformCredit)
	return authorCredit, platformCredit
}

func (e *Engine) authorBalance(author [20]byte) (*big.Int, error) {
	var balance big.Int
	ok, err := e.state.KVGet(authorBalanceKey(author), &balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return &balance, nil
}

func (e *Engine) putAuthorBalance(author [20]byte, balance *big.Int) error {
	return e.state.KVPut(authorBalanceKey(author), newBigInt(balance))
}

// creditEnrollment books a payment for course using the fee in force now.
// It performs no transfer.
func (e *Engine) creditEnrollment(s *Settings, course *Course, amount *big.Int) (authorCredit, platformCredit *big.Int, err error) {
	authorCredit, platformCredit = splitPayment(amount, s.FeeBps)
	balance, err := e.authorBalance(course.Author)
	if err != nil {
		return nil, nil, err
	}
	if err := e.putAuthorBalance(course.Author, balance.Add(balance, authorCredit)); err != nil {
		return nil, nil, err
	}
	s.AuthorLiabilities = new(big.Int).Add(s.AuthorLiabilities, authorCredit)
	s.PlatformBalance = new(big.Int).Add(s.PlatformBalance, platformCredit)
	if err := e.putSettings(s); err != nil {
		return nil, nil, err
	}
	return authorCredit, platformCredit, nil
}

// AuthorWithdraw pays out the caller's accrued author balance. The balance
// is cleared before the transfer; a rejected transfer reverts the clear.
func (e *Engine) AuthorWithdraw(caller [20]byte) (*big.Int, error) {
	s, release, err := e.nonReentrant()
	if err != nil {
		return nil, err
	}
	defer release()

	var paid *big.Int
	err = e.atomic(func() error {
		balance, err := e.authorBalance(caller)
		if err != nil {
			return err
		}
		if balance.Sign() == 0 {
			return ErrNothingToWithdraw
		}
		if err := e.putAuthorBalance(caller, big.NewInt(0)); err != nil {
			return err
		}
		s.AuthorLiabilities = new(big.Int).Sub(s.AuthorLiabilities, balance)
		if err := e.putSettings(s); err != nil {
			return err
		}
		if err := e.bank.Transfer(e.address, caller, balance); err != nil {
			return fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}
		e.emit(withdrawalEvent(EventTypeAuthorWithdrawal, caller, balance))
		paid = balance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// PlatformWithdraw pays the accrued platform fees to the owner.
func (e *Engine) PlatformWithdraw(caller [20]byte) (*big.Int, error) {
	s, release, err := e.nonReentrant(e.onlyRole(caller, RoleOwner))
	if err != nil {
		return nil, err
	}
	defer release()

	var paid *big.Int
	err = e.atomic(func() error {
		amount := newBigInt(s.PlatformBalance)
		if amount.Sign() == 0 {
			return ErrNothingToWithdraw
		}
		s.PlatformBalance = big.NewInt(0)
		if err := e.putSettings(s); err != nil {
			return err
		}
		if err := e.bank.Transfer(e.address, s.Owner, amount); err != nil {
			return fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}
		e.emit(withdrawalEvent(EventTypePlatformWithdrawal, s.Owner, amount))
		paid = amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// UpdatePlatformFee sets the fee applied to future enrollments.
func (e *Engine) UpdatePlatformFee(caller [20]byte, feeBps uint64) error {
	s, err := e.check(e.onlyRole(caller, RoleOwner))
	if err != nil {
		return err
	}
	if feeBps > MaxPlatformFeeBps {
		return fmt.Errorf("%w: %d > %d", ErrFeeTooHigh, feeBps, MaxPlatformFeeBps)
	}
	previous := s.FeeBps
	s.FeeBps = feeBps
	if err := e.putSettings(s); err != nil {
		return err
	}
	e.emit(feeUpdatedEvent(previous, feeBps))
	return nil
}
