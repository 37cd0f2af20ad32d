package fractions

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/iterator"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/gas"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/propshares/fractions-contract/common"
)

// TokenMetadata describes a single minted property token.
type TokenMetadata struct {
	// Human-readable property name.
	Name string
	// Free-form property description.
	Description string
	// Postal or geographic location of the property.
	Location string
	// Content address of the property image.
	Image string
}

// Prefixes used for contract data storage.
const (
	// prefixSupply contains map from token ID to its fixed fractional supply.
	prefixSupply byte = 0x01
	// prefixBalance contains map from (token ID + holder) to the number of
	// fractions held. The contract's own account is the ledger counterparty
	// holding all unsold fractions.
	prefixBalance byte = 0x02
	// prefixMetadata contains map from token ID to serialized TokenMetadata.
	prefixMetadata byte = 0x03
	// prefixCollectibleOwner contains map from token ID to the account owning
	// the property token as an indivisible collectible.
	prefixCollectibleOwner byte = 0x04
	// prefixAdmin contains the administrator script hash fixed at deploy.
	prefixAdmin byte = 0x10
	// prefixPrice contains the uniform price of a single fraction in GAS
	// fractions.
	prefixPrice byte = 0x11
	// prefixTokenCounter contains the identifier to be assigned by the next
	// mint, starting at 0 and never reused.
	prefixTokenCounter byte = 0x12
)

// Contract failure messages surfaced to callers as transaction FAULTs.
const (
	errUnknownToken          = "unknown token"
	errInsufficientPayment   = "insufficient payment"
	errInsufficientSupply    = "insufficient supply"
	errInsufficientFractions = "insufficient fractions"
	errInsufficientBalance   = "insufficient contract balance"
	errPayoutFailed          = "failed to transfer GAS, aborting"
)

// purchaseCollectionDetails marks GAS transfers initiated by the contract
// itself when it collects payment inside BuyFraction, so that OnNEP17Payment
// does not treat them as incoming purchase orders.
const purchaseCollectionDetails = "fraction purchase collection"

func _deploy(data interface{}, isUpdate bool) {
	if isUpdate {
		args := data.([]interface{})
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	args := data.(struct {
		admin         interop.Hash160
		fractionPrice int
	})

	if len(args.admin) != interop.Hash160Len {
		panic("incorrect length of administrator script hash")
	}
	if args.fractionPrice <= 0 {
		panic("non-positive fraction price")
	}

	ctx := storage.GetContext()
	storage.Put(ctx, []byte{prefixAdmin}, args.admin)
	storage.Put(ctx, []byte{prefixPrice}, args.fractionPrice)
	storage.Put(ctx, []byte{prefixTokenCounter}, 0)
	runtime.Log("fractions contract initialized")
}

// Update method updates contract source code and manifest. Can be invoked
// only by the contract administrator.
func Update(script []byte, manifest []byte, data interface{}) {
	ctx := storage.GetReadOnlyContext()
	common.CheckAdminWitness(getAdmin(ctx))

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, script, manifest, common.AppendVersion(data))
	runtime.Log("fractions contract updated")
}

// Symbol returns the symbol shown by wallets for the property collectibles.
func Symbol() string {
	return "FRP"
}

// Decimals returns 0: property collectibles are indivisible, their divisible
// part is modelled by per-token fractions instead.
func Decimals() int {
	return 0
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

// Admin returns the script hash of the contract administrator.
func Admin() interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	return getAdmin(ctx)
}

// FractionPrice returns the current price of a single fraction in GAS
// fractions. The price is uniform across all tokens.
func FractionPrice() int {
	ctx := storage.GetReadOnlyContext()
	return getPrice(ctx)
}

// TokensCount returns the identifier that will be assigned by the next mint.
// It equals the overall number of tokens minted so far.
func TokensCount() int {
	ctx := storage.GetReadOnlyContext()
	return storage.Get(ctx, []byte{prefixTokenCounter}).(int)
}

// ContractBalance returns the GAS reserve held by the ledger itself. This is
// the fund sell payouts are served from until the administrator withdraws it.
func ContractBalance() int {
	return gas.BalanceOf(runtime.GetExecutingScriptHash())
}

// SupplyOf returns the fixed fractional supply of the specified token, or 0
// if the token has not been minted.
func SupplyOf(tokenID int) int {
	ctx := storage.GetReadOnlyContext()
	return getSupply(ctx, tokenID)
}

// BalanceOf returns the number of fractions of the specified token held by
// the specified account.
func BalanceOf(tokenID int, holder interop.Hash160) int {
	if len(holder) != interop.Hash160Len {
		panic("invalid holder")
	}
	ctx := storage.GetReadOnlyContext()
	return getBalance(ctx, tokenID, holder)
}

// OwnerOf returns the account owning the specified token as an indivisible
// collectible. In this design it is always the administrator the token was
// issued to at mint.
func OwnerOf(tokenID int) interop.Hash160 {
	ctx := storage.GetReadOnlyContext()
	requireMinted(ctx, tokenID)
	return storage.Get(ctx, collectibleOwnerKey(tokenID)).(interop.Hash160)
}

// ImageOf returns the stored image content address of the specified token.
func ImageOf(tokenID int) string {
	ctx := storage.GetReadOnlyContext()
	requireMinted(ctx, tokenID)
	return getMetadata(ctx, tokenID).Image
}

// Properties returns a map of the stored metadata fields of the specified
// token for NEP-11-style viewers.
func Properties(tokenID int) map[string]interface{} {
	ctx := storage.GetReadOnlyContext()
	requireMinted(ctx, tokenID)
	meta := getMetadata(ctx, tokenID)
	return map[string]interface{}{
		"name":        meta.Name,
		"description": meta.Description,
		"location":    meta.Location,
		"image":       meta.Image,
	}
}

// TokenURI serializes the stored metadata of the specified token into a JSON
// document {name, description, location, image} and returns it as a base-64
// data URI consumable by generic token viewers.
func TokenURI(tokenID int) string {
	ctx := storage.GetReadOnlyContext()
	requireMinted(ctx, tokenID)
	meta := getMetadata(ctx, tokenID)
	doc := std.JSONSerialize(map[string]interface{}{
		"name":        meta.Name,
		"description": meta.Description,
		"location":    meta.Location,
		"image":       meta.Image,
	})
	return "data:application/json;base64," + std.Base64Encode(doc)
}

// Tokens returns an iterator over identifiers of all minted tokens. The
// identifiers are returned as decimal strings.
func Tokens() iterator.Iterator {
	ctx := storage.GetReadOnlyContext()
	return storage.Find(ctx, []byte{prefixSupply}, storage.KeysOnly|storage.RemovePrefix)
}

// Mint creates a new property token: assigns the next sequential identifier,
// records metadata and the fixed fractional supply, credits the whole supply
// to the ledger's own account and issues the collectible to the
// administrator. Can be invoked only by the contract administrator.
//
// Produces Mint notification.
func Mint(name, description, location, image string, fractions int) int {
	ctx := storage.GetContext()
	admin := getAdmin(ctx)
	common.CheckAdminWitness(admin)

	if fractions <= 0 {
		panic("non-positive fraction count")
	}

	tokenID := storage.Get(ctx, []byte{prefixTokenCounter}).(int)

	common.SetSerialized(ctx, metadataKey(tokenID), TokenMetadata{
		Name:        name,
		Description: description,
		Location:    location,
		Image:       image,
	})
	storage.Put(ctx, supplyKey(tokenID), fractions)
	storage.Put(ctx, collectibleOwnerKey(tokenID), admin)
	storage.Put(ctx, balanceKey(tokenID, runtime.GetExecutingScriptHash()), fractions)
	storage.Put(ctx, []byte{prefixTokenCounter}, tokenID+1)

	runtime.Notify("Mint", tokenID, admin, fractions)
	return tokenID
}

// BuyFraction sells the specified number of fractions from the ledger's own
// account to the buyer. The contract collects price × amount GAS from the
// witnessed buyer; a failed collection means the buyer can't cover the price.
//
// Produces FractionsPurchased notification.
func BuyFraction(buyer interop.Hash160, tokenID int, amount int) {
	common.CheckOwnerWitness(buyer)

	ctx := storage.GetContext()
	cost := getPrice(ctx) * amount
	self := runtime.GetExecutingScriptHash()

	if !gas.Transfer(buyer, self, cost, []interface{}{[]byte(purchaseCollectionDetails)}) {
		panic(errInsufficientPayment)
	}

	creditPurchase(ctx, tokenID, buyer, amount, cost)
}

// OnNEP17Payment is a callback for NEP-17 compatible native GAS contract. It
// serves push-style purchases: a plain GAS transfer to the contract carrying
// [tokenID, amount] attachment data buys fractions for the sender, with any
// surplus over price × amount kept by the ledger. Transfers of other assets
// and GAS receipts without a valid purchase order are rejected, which aborts
// the whole transfer.
func OnNEP17Payment(from interop.Hash160, amount int, data interface{}) {
	caller := runtime.GetCallingScriptHash()
	if !common.BytesEqual(caller, []byte(gas.Hash)) {
		panic("onNEP17Payment: fractions contract accepts GAS only")
	}

	if data == nil {
		panic("onNEP17Payment: payment without a purchase order is not accepted")
	}

	order := data.([]interface{})
	if len(order) == 1 && common.BytesEqual(order[0].([]byte), []byte(purchaseCollectionDetails)) {
		// Payment collected by BuyFraction, already being processed there.
		return
	}
	if len(order) != 2 {
		panic("onNEP17Payment: invalid purchase order")
	}

	ctx := storage.GetContext()
	creditPurchase(ctx, order[0].(int), from, order[1].(int), amount)
}

// SellFraction buys the specified number of fractions back from the seller at
// the current price, paying out of the ledger's GAS reserve. The balance
// mutation and the payout are atomic: a failed payout faults the whole
// transaction and reverts the mutation.
//
// Produces FractionsSold notification.
func SellFraction(seller interop.Hash160, tokenID int, amount int) {
	common.CheckOwnerWitness(seller)

	if amount <= 0 {
		panic("non-positive amount")
	}

	ctx := storage.GetContext()
	requireMinted(ctx, tokenID)

	if getBalance(ctx, tokenID, seller) < amount {
		panic(errInsufficientFractions)
	}

	payout := getPrice(ctx) * amount
	self := runtime.GetExecutingScriptHash()
	if gas.BalanceOf(self) < payout {
		panic(errInsufficientBalance)
	}

	transferFractions(ctx, tokenID, seller, self, amount)

	if !gas.Transfer(self, seller, payout, nil) {
		panic(errPayoutFailed)
	}

	runtime.Notify("FractionsSold", tokenID, seller, amount, payout)
}

// SetFractionPrice overwrites the uniform fraction price. Already settled
// trades are not affected. Can be invoked only by the contract administrator.
//
// Produces PriceChanged notification.
func SetFractionPrice(price int) {
	ctx := storage.GetContext()
	common.CheckAdminWitness(getAdmin(ctx))

	storage.Put(ctx, []byte{prefixPrice}, price)
	runtime.Notify("PriceChanged", price)
}

// SetTokenMetadata overwrites the stored metadata of the specified token.
// The identifier is deliberately not checked for existence: the write is a
// blind overwrite and rows of never-minted identifiers stay unreadable.
// Can be invoked only by the contract administrator.
//
// Produces MetadataUpdated notification.
func SetTokenMetadata(tokenID int, name, description, location, image string) {
	ctx := storage.GetContext()
	common.CheckAdminWitness(getAdmin(ctx))

	common.SetSerialized(ctx, metadataKey(tokenID), TokenMetadata{
		Name:        name,
		Description: description,
		Location:    location,
		Image:       image,
	})
	runtime.Notify("MetadataUpdated", tokenID)
}

// Withdraw sweeps the ledger's entire GAS reserve to the administrator. Can
// be invoked only by the contract administrator.
func Withdraw() {
	ctx := storage.GetReadOnlyContext()
	admin := getAdmin(ctx)
	common.CheckAdminWitness(admin)

	self := runtime.GetExecutingScriptHash()
	amount := gas.BalanceOf(self)
	if amount == 0 {
		runtime.Log("withdraw: nothing to withdraw")
		return
	}

	if !gas.Transfer(self, admin, amount, nil) {
		panic(errPayoutFailed)
	}
	runtime.Log("withdraw: contract balance swept to administrator")
}

// creditPurchase moves amount fractions of tokenID from the ledger's own
// account to buyer. payment is the GAS amount already secured by the caller;
// any check failure faults the transaction and reverts the payment together
// with it.
func creditPurchase(ctx storage.Context, tokenID int, buyer interop.Hash160, amount, payment int) {
	if amount <= 0 {
		panic("non-positive amount")
	}
	requireMinted(ctx, tokenID)

	if payment < getPrice(ctx)*amount {
		panic(errInsufficientPayment)
	}

	self := runtime.GetExecutingScriptHash()
	if getBalance(ctx, tokenID, self) < amount {
		panic(errInsufficientSupply)
	}

	transferFractions(ctx, tokenID, self, buyer, amount)
	runtime.Notify("FractionsPurchased", tokenID, buyer, amount, payment)
}

// transferFractions moves amount fractions of tokenID between two holders.
// Callers must have checked the from balance already.
func transferFractions(ctx storage.Context, tokenID int, from, to interop.Hash160, amount int) {
	fromBalance := getBalance(ctx, tokenID, from)
	if fromBalance == amount {
		storage.Delete(ctx, balanceKey(tokenID, from))
	} else {
		storage.Put(ctx, balanceKey(tokenID, from), fromBalance-amount)
	}
	storage.Put(ctx, balanceKey(tokenID, to), getBalance(ctx, tokenID, to)+amount)
}

func requireMinted(ctx storage.Context, tokenID int) {
	if getSupply(ctx, tokenID) == 0 {
		panic(errUnknownToken)
	}
}

func getAdmin(ctx storage.Context) interop.Hash160 {
	return storage.Get(ctx, []byte{prefixAdmin}).(interop.Hash160)
}

func getPrice(ctx storage.Context) int {
	return storage.Get(ctx, []byte{prefixPrice}).(int)
}

func getSupply(ctx storage.Context, tokenID int) int {
	supply := storage.Get(ctx, supplyKey(tokenID))
	if supply != nil {
		return supply.(int)
	}
	return 0
}

func getBalance(ctx storage.Context, tokenID int, holder interop.Hash160) int {
	balance := storage.Get(ctx, balanceKey(tokenID, holder))
	if balance != nil {
		return balance.(int)
	}
	return 0
}

func getMetadata(ctx storage.Context, tokenID int) TokenMetadata {
	return std.Deserialize(storage.Get(ctx, metadataKey(tokenID)).([]byte)).(TokenMetadata)
}

func supplyKey(tokenID int) []byte {
	return append([]byte{prefixSupply}, []byte(std.Itoa10(tokenID))...)
}

func balanceKey(tokenID int, holder interop.Hash160) []byte {
	key := append([]byte{prefixBalance}, []byte(std.Itoa10(tokenID))...)
	return append(key, holder...)
}

func metadataKey(tokenID int) []byte {
	return append([]byte{prefixMetadata}, []byte(std.Itoa10(tokenID))...)
}

func collectibleOwnerKey(tokenID int) []byte {
	return append([]byte{prefixCollectibleOwner}, []byte(std.Itoa10(tokenID))...)
}
