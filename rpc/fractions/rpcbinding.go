// Package fractions contains RPC wrappers for Property Fractions contract.
package fractions

import (
	"errors"
	"fmt"
	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"math/big"
	"unicode/utf8"
)

// FractionsTokenMetadata is a contract-specific fractions.TokenMetadata type used by its methods.
type FractionsTokenMetadata struct {
	Name string
	Description string
	Location string
	Image string
}

// MintEvent represents "Mint" event emitted by the contract.
type MintEvent struct {
	TokenId *big.Int
	Owner util.Uint160
	Fractions *big.Int
}

// FractionsPurchasedEvent represents "FractionsPurchased" event emitted by the contract.
type FractionsPurchasedEvent struct {
	TokenId *big.Int
	Buyer util.Uint160
	Amount *big.Int
	Payment *big.Int
}

// FractionsSoldEvent represents "FractionsSold" event emitted by the contract.
type FractionsSoldEvent struct {
	TokenId *big.Int
	Seller util.Uint160
	Amount *big.Int
	Payout *big.Int
}

// PriceChangedEvent represents "PriceChanged" event emitted by the contract.
type PriceChangedEvent struct {
	Price *big.Int
}

// MetadataUpdatedEvent represents "MetadataUpdated" event emitted by the contract.
type MetadataUpdatedEvent struct {
	TokenId *big.Int
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
	CallAndExpandIterator(contract util.Uint160, method string, maxItems int, params ...any) (*result.Invoke, error)
	TerminateSession(sessionID uuid.UUID) error
	TraverseIterator(sessionID uuid.UUID, iterator *result.Iterator, num int) ([]stackitem.Item, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// Admin invokes `admin` method of contract.
func (c *ContractReader) Admin() (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "admin"))
}

// BalanceOf invokes `balanceOf` method of contract.
func (c *ContractReader) BalanceOf(tokenID *big.Int, holder util.Uint160) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "balanceOf", tokenID, holder))
}

// ContractBalance invokes `contractBalance` method of contract.
func (c *ContractReader) ContractBalance() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "contractBalance"))
}

// Decimals invokes `decimals` method of contract.
func (c *ContractReader) Decimals() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "decimals"))
}

// FractionPrice invokes `fractionPrice` method of contract.
func (c *ContractReader) FractionPrice() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "fractionPrice"))
}

// ImageOf invokes `imageOf` method of contract.
func (c *ContractReader) ImageOf(tokenID *big.Int) (string, error) {
	return unwrap.UTF8String(c.invoker.Call(c.hash, "imageOf", tokenID))
}

// OwnerOf invokes `ownerOf` method of contract.
func (c *ContractReader) OwnerOf(tokenID *big.Int) (util.Uint160, error) {
	return unwrap.Uint160(c.invoker.Call(c.hash, "ownerOf", tokenID))
}

// Properties invokes `properties` method of contract.
func (c *ContractReader) Properties(tokenID *big.Int) (*stackitem.Map, error) {
	return unwrap.Map(c.invoker.Call(c.hash, "properties", tokenID))
}

// SupplyOf invokes `supplyOf` method of contract.
func (c *ContractReader) SupplyOf(tokenID *big.Int) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "supplyOf", tokenID))
}

// Symbol invokes `symbol` method of contract.
func (c *ContractReader) Symbol() (string, error) {
	return unwrap.UTF8String(c.invoker.Call(c.hash, "symbol"))
}

// TokenURI invokes `tokenURI` method of contract.
func (c *ContractReader) TokenURI(tokenID *big.Int) (string, error) {
	return unwrap.UTF8String(c.invoker.Call(c.hash, "tokenURI", tokenID))
}

// Tokens invokes `tokens` method of contract.
func (c *ContractReader) Tokens() (uuid.UUID, result.Iterator, error) {
	return unwrap.SessionIterator(c.invoker.Call(c.hash, "tokens"))
}

// TokensExpanded is similar to Tokens (uses the same contract
// method), but can be useful if the server used doesn't support sessions and
// doesn't expand iterators. It creates a script that will get the specified
// number of result items from the iterator right in the VM and return them to
// you. It's only limited by VM stack and GAS available for RPC invocations.
func (c *ContractReader) TokensExpanded(_numOfIteratorItems int) ([]stackitem.Item, error) {
	return unwrap.Array(c.invoker.CallAndExpandIterator(c.hash, "tokens", _numOfIteratorItems))
}

// TokensCount invokes `tokensCount` method of contract.
func (c *ContractReader) TokensCount() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "tokensCount"))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// BuyFraction creates a transaction invoking `buyFraction` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) BuyFraction(buyer util.Uint160, tokenID *big.Int, amount *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "buyFraction", buyer, tokenID, amount)
}

// BuyFractionTransaction creates a transaction invoking `buyFraction` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) BuyFractionTransaction(buyer util.Uint160, tokenID *big.Int, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "buyFraction", buyer, tokenID, amount)
}

// BuyFractionUnsigned creates a transaction invoking `buyFraction` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) BuyFractionUnsigned(buyer util.Uint160, tokenID *big.Int, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "buyFraction", nil, buyer, tokenID, amount)
}

// Mint creates a transaction invoking `mint` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Mint(name string, description string, location string, image string, fractions *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "mint", name, description, location, image, fractions)
}

// MintTransaction creates a transaction invoking `mint` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) MintTransaction(name string, description string, location string, image string, fractions *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "mint", name, description, location, image, fractions)
}

// MintUnsigned creates a transaction invoking `mint` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) MintUnsigned(name string, description string, location string, image string, fractions *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "mint", nil, name, description, location, image, fractions)
}

// OnNEP17Payment creates a transaction invoking `onNEP17Payment` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) OnNEP17Payment(from util.Uint160, amount *big.Int, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "onNEP17Payment", from, amount, data)
}

// OnNEP17PaymentTransaction creates a transaction invoking `onNEP17Payment` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) OnNEP17PaymentTransaction(from util.Uint160, amount *big.Int, data any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "onNEP17Payment", from, amount, data)
}

// OnNEP17PaymentUnsigned creates a transaction invoking `onNEP17Payment` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) OnNEP17PaymentUnsigned(from util.Uint160, amount *big.Int, data any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "onNEP17Payment", nil, from, amount, data)
}

// SellFraction creates a transaction invoking `sellFraction` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) SellFraction(seller util.Uint160, tokenID *big.Int, amount *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "sellFraction", seller, tokenID, amount)
}

// SellFractionTransaction creates a transaction invoking `sellFraction` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) SellFractionTransaction(seller util.Uint160, tokenID *big.Int, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "sellFraction", seller, tokenID, amount)
}

// SellFractionUnsigned creates a transaction invoking `sellFraction` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) SellFractionUnsigned(seller util.Uint160, tokenID *big.Int, amount *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "sellFraction", nil, seller, tokenID, amount)
}

// SetFractionPrice creates a transaction invoking `setFractionPrice` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) SetFractionPrice(price *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "setFractionPrice", price)
}

// SetFractionPriceTransaction creates a transaction invoking `setFractionPrice` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) SetFractionPriceTransaction(price *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "setFractionPrice", price)
}

// SetFractionPriceUnsigned creates a transaction invoking `setFractionPrice` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) SetFractionPriceUnsigned(price *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "setFractionPrice", nil, price)
}

// SetTokenMetadata creates a transaction invoking `setTokenMetadata` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) SetTokenMetadata(tokenID *big.Int, name string, description string, location string, image string) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "setTokenMetadata", tokenID, name, description, location, image)
}

// SetTokenMetadataTransaction creates a transaction invoking `setTokenMetadata` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) SetTokenMetadataTransaction(tokenID *big.Int, name string, description string, location string, image string) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "setTokenMetadata", tokenID, name, description, location, image)
}

// SetTokenMetadataUnsigned creates a transaction invoking `setTokenMetadata` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) SetTokenMetadataUnsigned(tokenID *big.Int, name string, description string, location string, image string) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "setTokenMetadata", nil, tokenID, name, description, location, image)
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(script []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "update", script, manifest, data)
}

// UpdateTransaction creates a transaction invoking `update` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateTransaction(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "update", script, manifest, data)
}

// UpdateUnsigned creates a transaction invoking `update` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateUnsigned(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "update", nil, script, manifest, data)
}

// Withdraw creates a transaction invoking `withdraw` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Withdraw() (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "withdraw")
}

// WithdrawTransaction creates a transaction invoking `withdraw` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) WithdrawTransaction() (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "withdraw")
}

// WithdrawUnsigned creates a transaction invoking `withdraw` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) WithdrawUnsigned() (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "withdraw", nil)
}

// itemToFractionsTokenMetadata converts stack item into *FractionsTokenMetadata.
func itemToFractionsTokenMetadata(item stackitem.Item, err error) (*FractionsTokenMetadata, error) {
	if err != nil {
		return nil, err
	}
	var res = new(FractionsTokenMetadata)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of FractionsTokenMetadata from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *FractionsTokenMetadata) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 4 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	res.Name, err = func (item stackitem.Item) (string, error) {
		b, err := item.TryBytes()
		if err != nil {
			return "", err
		}
		if !utf8.Valid(b) {
			return "", errors.New("not a UTF-8 string")
		}
		return string(b), nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field Name: %w", err)
	}

	index++
	res.Description, err = func (item stackitem.Item) (string, error) {
		b, err := item.TryBytes()
		if err != nil {
			return "", err
		}
		if !utf8.Valid(b) {
			return "", errors.New("not a UTF-8 string")
		}
		return string(b), nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field Description: %w", err)
	}

	index++
	res.Location, err = func (item stackitem.Item) (string, error) {
		b, err := item.TryBytes()
		if err != nil {
			return "", err
		}
		if !utf8.Valid(b) {
			return "", errors.New("not a UTF-8 string")
		}
		return string(b), nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field Location: %w", err)
	}

	index++
	res.Image, err = func (item stackitem.Item) (string, error) {
		b, err := item.TryBytes()
		if err != nil {
			return "", err
		}
		if !utf8.Valid(b) {
			return "", errors.New("not a UTF-8 string")
		}
		return string(b), nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field Image: %w", err)
	}

	return nil
}

// MintEventsFromApplicationLog retrieves a set of all emitted events
// with "Mint" name from the provided [result.ApplicationLog].
func MintEventsFromApplicationLog(log *result.ApplicationLog) ([]*MintEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*MintEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "Mint" {
				continue
			}
			event := new(MintEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize MintEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to MintEvent or
// returns an error if it's not possible to do to so.
func (e *MintEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 3 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	e.TokenId, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field TokenId: %w", err)
	}

	index++
	e.Owner, err = func (item stackitem.Item) (util.Uint160, error) {
		b, err := item.TryBytes()
		if err != nil {
			return util.Uint160{}, err
		}
		u, err := util.Uint160DecodeBytesBE(b)
		if err != nil {
			return util.Uint160{}, err
		}
		return u, nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	index++
	e.Fractions, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Fractions: %w", err)
	}

	return nil
}

// FractionsPurchasedEventsFromApplicationLog retrieves a set of all emitted events
// with "FractionsPurchased" name from the provided [result.ApplicationLog].
func FractionsPurchasedEventsFromApplicationLog(log *result.ApplicationLog) ([]*FractionsPurchasedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*FractionsPurchasedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "FractionsPurchased" {
				continue
			}
			event := new(FractionsPurchasedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize FractionsPurchasedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to FractionsPurchasedEvent or
// returns an error if it's not possible to do to so.
func (e *FractionsPurchasedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 4 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	e.TokenId, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field TokenId: %w", err)
	}

	index++
	e.Buyer, err = func (item stackitem.Item) (util.Uint160, error) {
		b, err := item.TryBytes()
		if err != nil {
			return util.Uint160{}, err
		}
		u, err := util.Uint160DecodeBytesBE(b)
		if err != nil {
			return util.Uint160{}, err
		}
		return u, nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field Buyer: %w", err)
	}

	index++
	e.Amount, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}

	index++
	e.Payment, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Payment: %w", err)
	}

	return nil
}

// FractionsSoldEventsFromApplicationLog retrieves a set of all emitted events
// with "FractionsSold" name from the provided [result.ApplicationLog].
func FractionsSoldEventsFromApplicationLog(log *result.ApplicationLog) ([]*FractionsSoldEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*FractionsSoldEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "FractionsSold" {
				continue
			}
			event := new(FractionsSoldEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize FractionsSoldEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to FractionsSoldEvent or
// returns an error if it's not possible to do to so.
func (e *FractionsSoldEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 4 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	e.TokenId, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field TokenId: %w", err)
	}

	index++
	e.Seller, err = func (item stackitem.Item) (util.Uint160, error) {
		b, err := item.TryBytes()
		if err != nil {
			return util.Uint160{}, err
		}
		u, err := util.Uint160DecodeBytesBE(b)
		if err != nil {
			return util.Uint160{}, err
		}
		return u, nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field Seller: %w", err)
	}

	index++
	e.Amount, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Amount: %w", err)
	}

	index++
	e.Payout, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Payout: %w", err)
	}

	return nil
}

// PriceChangedEventsFromApplicationLog retrieves a set of all emitted events
// with "PriceChanged" name from the provided [result.ApplicationLog].
func PriceChangedEventsFromApplicationLog(log *result.ApplicationLog) ([]*PriceChangedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*PriceChangedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "PriceChanged" {
				continue
			}
			event := new(PriceChangedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize PriceChangedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to PriceChangedEvent or
// returns an error if it's not possible to do to so.
func (e *PriceChangedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 1 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	e.Price, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Price: %w", err)
	}

	return nil
}

// MetadataUpdatedEventsFromApplicationLog retrieves a set of all emitted events
// with "MetadataUpdated" name from the provided [result.ApplicationLog].
func MetadataUpdatedEventsFromApplicationLog(log *result.ApplicationLog) ([]*MetadataUpdatedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*MetadataUpdatedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "MetadataUpdated" {
				continue
			}
			event := new(MetadataUpdatedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize MetadataUpdatedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to MetadataUpdatedEvent or
// returns an error if it's not possible to do to so.
func (e *MetadataUpdatedEvent) FromStackItem(item *stackitem.Array) error {
	if item == nil {
		return errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 1 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	e.TokenId, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field TokenId: %w", err)
	}

	return nil
}
