package bank

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"learnchain/core/events"
	"learnchain/core/types"
)

const EventTypeTransfer = "bank.transfer"

var (
	errNilState = errors.New("bank: state not configured")

	ErrInvalidAmount       = errors.New("bank: amount must not be negative")
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrTransferRejected    = errors.New("bank: recipient rejected transfer")
)

// Receiver is notified after value lands in its account. Returning an error
// rejects the transfer; a receiver may also call back into other contracts.
type Receiver interface {
	OnReceive(from [20]byte, amount *big.Int) error
}

// ReceiverFunc adapts a function into a Receiver.
type ReceiverFunc func(from [20]byte, amount *big.Int) error

// OnReceive implements Receiver.
func (f ReceiverFunc) OnReceive(from [20]byte, amount *big.Int) error { return f(from, amount) }

type bankState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Bank moves native value between accounts. It never rolls back on its own:
// when Transfer fails after debiting, the caller reverts its state snapshot.
type Bank struct {
	state     bankState
	emitter   events.Emitter
	receivers map[[20]byte]Receiver
}

// New constructs a bank over the supplied state.
func New(state bankState) *Bank {
	return &Bank{
		state:     state,
		emitter:   events.NoopEmitter{},
		receivers: make(map[[20]byte]Receiver),
	}
}

// SetEmitter configures the event emitter used by the bank.
func (b *Bank) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		b.emitter = events.NoopEmitter{}
		return
	}
	b.emitter = emitter
}

// SetReceiver installs a receive hook for addr. Passing nil removes it.
func (b *Bank) SetReceiver(addr [20]byte, receiver Receiver) {
	if receiver == nil {
		delete(b.receivers, addr)
		return
	}
	b.receivers[addr] = receiver
}

// Balance returns the native balance held by addr.
func (b *Bank) Balance(addr [20]byte) (*big.Int, error) {
	if b == nil || b.state == nil {
		return nil, errNilState
	}
	acc, err := b.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Balance), nil
}

// Mint credits addr with freshly created value. Used by genesis allocation
// and the development faucet.
func (b *Bank) Mint(to [20]byte, amount *big.Int) error {
	if b == nil || b.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	acc, err := b.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return b.state.PutAccount(to[:], acc)
}

// Transfer debits from and credits to, then notifies the recipient's receive
// hook. A zero amount is a no-op that still consults the hook.
func (b *Bank) Transfer(from, to [20]byte, amount *big.Int) error {
	if b == nil || b.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	fromAcc, err := b.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	if fromAcc.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, fromAcc.Balance, amount)
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	if err := b.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	toAcc, err := b.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := b.state.PutAccount(to[:], toAcc); err != nil {
		return err
	}
	b.emitter.Emit(events.Wrap(&types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"from":   common.BytesToAddress(from[:]).Hex(),
			"to":     common.BytesToAddress(to[:]).Hex(),
			"amount": amount.String(),
		},
	}))
	if receiver, ok := b.receivers[to]; ok {
		if err := receiver.OnReceive(from, new(big.Int).Set(amount)); err != nil {
			return fmt.Errorf("%w: %v", ErrTransferRejected, err)
		}
	}
	return nil
}
