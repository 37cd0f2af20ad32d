package tests

import (
	"encoding/base64"
	"encoding/json"
	"path"
	"strings"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/interop/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/native/nativenames"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/propshares/fractions-contract/common"
	"github.com/stretchr/testify/require"
)

const fractionsPath = "../fractions"

const (
	oneGAS   = 1_0000_0000
	centiGAS = 100_0000
)

func newFractionsInvoker(t *testing.T, price int64) *neotest.ContractInvoker {
	e := newExecutor(t)
	ctr := neotest.CompileFile(t, e.CommitteeHash, fractionsPath, path.Join(fractionsPath, "config.yml"))
	e.DeployContract(t, ctr, []interface{}{e.CommitteeHash, price})
	return e.CommitteeInvoker(ctr.Hash)
}

func mintBeachHouse(t *testing.T, c *neotest.ContractInvoker) {
	c.Invoke(t, 0, "mint",
		"Beach House", "Beachfront villa", "12 Shoreline Dr", "ipfs://beach-house", int64(100))
}

func TestFractionsGeneric(t *testing.T) {
	c := newFractionsInvoker(t, oneGAS)

	c.Invoke(t, "FRP", "symbol")
	c.Invoke(t, 0, "decimals")
	c.Invoke(t, common.Version, "version")
	c.Invoke(t, oneGAS, "fractionPrice")
	c.Invoke(t, 0, "tokensCount")
	c.Invoke(t, 0, "contractBalance")
	c.Invoke(t, c.CommitteeHash.BytesBE(), "admin")
}

func TestFractionsDeployValidation(t *testing.T) {
	e := newExecutor(t)
	ctr := neotest.CompileFile(t, e.CommitteeHash, fractionsPath, path.Join(fractionsPath, "config.yml"))

	e.DeployContractCheckFAULT(t, ctr,
		[]interface{}{e.CommitteeHash, int64(0)},
		"non-positive fraction price")
	e.DeployContractCheckFAULT(t, ctr,
		[]interface{}{[]byte{1, 2, 3}, int64(oneGAS)},
		"incorrect length of administrator script hash")
}

func TestFractionsMint(t *testing.T) {
	c := newFractionsInvoker(t, oneGAS)

	acc := c.NewAccount(t)
	c.WithSigners(acc).InvokeFail(t, common.ErrAdminWitnessFailed, "mint",
		"Beach House", "", "", "", int64(100))

	c.InvokeFail(t, "non-positive fraction count", "mint",
		"Beach House", "", "", "", int64(0))

	mintBeachHouse(t, c)
	c.Invoke(t, 1, "mint",
		"City Flat", "Downtown apartment", "4 Main St", "ipfs://city-flat", int64(50))

	c.Invoke(t, 2, "tokensCount")
	c.Invoke(t, 100, "supplyOf", int64(0))
	c.Invoke(t, 50, "supplyOf", int64(1))

	// whole supply starts on the ledger's own account
	c.Invoke(t, 100, "balanceOf", int64(0), c.Hash)
	c.Invoke(t, 0, "balanceOf", int64(0), c.CommitteeHash)

	c.Invoke(t, c.CommitteeHash.BytesBE(), "ownerOf", int64(0))
	c.Invoke(t, "ipfs://beach-house", "imageOf", int64(0))

	c.Invoke(t, 0, "supplyOf", int64(5))
	c.InvokeFail(t, "unknown token", "ownerOf", int64(5))
	c.InvokeFail(t, "unknown token", "imageOf", int64(5))
	c.InvokeFail(t, "unknown token", "tokenURI", int64(5))
}

func TestFractionsBuy(t *testing.T) {
	c := newFractionsInvoker(t, oneGAS)
	mintBeachHouse(t, c)

	buyer := c.NewAccount(t)
	cBuyer := c.WithSigners(buyer)

	other := c.NewAccount(t)
	c.WithSigners(other).InvokeFail(t, common.ErrOwnerWitnessFailed, "buyFraction",
		buyer.ScriptHash(), int64(0), int64(1))

	cBuyer.InvokeFail(t, "unknown token", "buyFraction", buyer.ScriptHash(), int64(9), int64(1))
	cBuyer.InvokeFail(t, "non-positive amount", "buyFraction", buyer.ScriptHash(), int64(0), int64(0))

	cBuyer.Invoke(t, stackitem.Null{}, "buyFraction", buyer.ScriptHash(), int64(0), int64(10))
	c.Invoke(t, 10, "balanceOf", int64(0), buyer.ScriptHash())
	c.Invoke(t, 90, "balanceOf", int64(0), c.Hash)
	c.Invoke(t, 10*oneGAS, "contractBalance")

	// cost exceeds buyer's GAS holdings
	cBuyer.InvokeFail(t, "insufficient payment", "buyFraction", buyer.ScriptHash(), int64(0), int64(200))
	c.Invoke(t, 10, "balanceOf", int64(0), buyer.ScriptHash())
}

func TestFractionsBuyInsufficientSupply(t *testing.T) {
	c := newFractionsInvoker(t, centiGAS)
	mintBeachHouse(t, c)

	buyer := c.NewAccount(t)
	c.WithSigners(buyer).InvokeFail(t, "insufficient supply", "buyFraction",
		buyer.ScriptHash(), int64(0), int64(101))
}

func TestFractionsBuyPush(t *testing.T) {
	c := newFractionsInvoker(t, oneGAS)
	mintBeachHouse(t, c)

	buyer := c.NewAccount(t)
	gasHash := c.NativeHash(t, nativenames.Gas)
	gasBuyer := c.CommitteeInvoker(gasHash).WithSigners(buyer)

	// exact payment
	gasBuyer.Invoke(t, true, "transfer",
		buyer.ScriptHash(), c.Hash, int64(10*oneGAS), []interface{}{int64(0), int64(10)})
	c.Invoke(t, 10, "balanceOf", int64(0), buyer.ScriptHash())
	c.Invoke(t, 10*oneGAS, "contractBalance")

	// surplus over the cost is kept by the ledger
	gasBuyer.Invoke(t, true, "transfer",
		buyer.ScriptHash(), c.Hash, int64(5*oneGAS+1234), []interface{}{int64(0), int64(5)})
	c.Invoke(t, 15, "balanceOf", int64(0), buyer.ScriptHash())
	c.Invoke(t, 15*oneGAS+1234, "contractBalance")

	// underpayment aborts the whole transfer
	gasBuyer.InvokeFail(t, "insufficient payment", "transfer",
		buyer.ScriptHash(), c.Hash, int64(3*oneGAS-1), []interface{}{int64(0), int64(3)})
	c.Invoke(t, 15, "balanceOf", int64(0), buyer.ScriptHash())
	c.Invoke(t, 15*oneGAS+1234, "contractBalance")

	// plain GAS receipts without a purchase order are not accepted
	gasBuyer.InvokeFail(t, "payment without a purchase order is not accepted", "transfer",
		buyer.ScriptHash(), c.Hash, int64(oneGAS), nil)

	gasBuyer.InvokeFail(t, "invalid purchase order", "transfer",
		buyer.ScriptHash(), c.Hash, int64(oneGAS), []interface{}{int64(0), int64(1), int64(2)})

	// other assets are rejected
	neoHash := c.NativeHash(t, nativenames.Neo)
	neoCommittee := c.CommitteeInvoker(neoHash)
	neoCommittee.InvokeFail(t, "accepts GAS only", "transfer",
		c.CommitteeHash, c.Hash, int64(1), []interface{}{int64(0), int64(1)})
}

func TestFractionsSell(t *testing.T) {
	c := newFractionsInvoker(t, oneGAS)
	mintBeachHouse(t, c)

	buyer := c.NewAccount(t)
	cBuyer := c.WithSigners(buyer)
	cBuyer.Invoke(t, stackitem.Null{}, "buyFraction", buyer.ScriptHash(), int64(0), int64(10))

	c.WithSigners(c.NewAccount(t)).InvokeFail(t, common.ErrOwnerWitnessFailed, "sellFraction",
		buyer.ScriptHash(), int64(0), int64(1))

	cBuyer.InvokeFail(t, "unknown token", "sellFraction", buyer.ScriptHash(), int64(9), int64(1))
	cBuyer.InvokeFail(t, "non-positive amount", "sellFraction", buyer.ScriptHash(), int64(0), int64(0))
	cBuyer.InvokeFail(t, "insufficient fractions", "sellFraction", buyer.ScriptHash(), int64(0), int64(11))

	cBuyer.Invoke(t, stackitem.Null{}, "sellFraction", buyer.ScriptHash(), int64(0), int64(10))
	c.Invoke(t, 0, "balanceOf", int64(0), buyer.ScriptHash())
	c.Invoke(t, 100, "balanceOf", int64(0), c.Hash)
	c.Invoke(t, 0, "contractBalance")

	// supply never changes on trades
	c.Invoke(t, 100, "supplyOf", int64(0))
}

func TestFractionsSellDrainedReserve(t *testing.T) {
	c := newFractionsInvoker(t, oneGAS)
	mintBeachHouse(t, c)

	buyer := c.NewAccount(t)
	cBuyer := c.WithSigners(buyer)
	cBuyer.Invoke(t, stackitem.Null{}, "buyFraction", buyer.ScriptHash(), int64(0), int64(10))

	c.Invoke(t, stackitem.Null{}, "withdraw")
	c.Invoke(t, 0, "contractBalance")

	cBuyer.InvokeFail(t, "insufficient contract balance", "sellFraction",
		buyer.ScriptHash(), int64(0), int64(10))

	// the failed payout reverted nothing of the seller's holdings
	c.Invoke(t, 10, "balanceOf", int64(0), buyer.ScriptHash())
}

func TestFractionsSetPrice(t *testing.T) {
	c := newFractionsInvoker(t, oneGAS)

	c.WithSigners(c.NewAccount(t)).InvokeFail(t, common.ErrAdminWitnessFailed,
		"setFractionPrice", int64(2*oneGAS))

	c.Invoke(t, stackitem.Null{}, "setFractionPrice", int64(2*oneGAS))
	c.Invoke(t, 2*oneGAS, "fractionPrice")

	// later trades settle at the new price
	mintBeachHouse(t, c)
	buyer := c.NewAccount(t)
	c.WithSigners(buyer).Invoke(t, stackitem.Null{}, "buyFraction", buyer.ScriptHash(), int64(0), int64(3))
	c.Invoke(t, 6*oneGAS, "contractBalance")
}

func TestFractionsWithdraw(t *testing.T) {
	c := newFractionsInvoker(t, oneGAS)

	c.WithSigners(c.NewAccount(t)).InvokeFail(t, common.ErrAdminWitnessFailed, "withdraw")

	// nothing reserved yet, still fine
	c.Invoke(t, stackitem.Null{}, "withdraw")

	mintBeachHouse(t, c)
	buyer := c.NewAccount(t)
	c.WithSigners(buyer).Invoke(t, stackitem.Null{}, "buyFraction", buyer.ScriptHash(), int64(0), int64(10))
	c.Invoke(t, 10*oneGAS, "contractBalance")

	c.Invoke(t, stackitem.Null{}, "withdraw")
	c.Invoke(t, 0, "contractBalance")
}

func TestFractionsSetTokenMetadata(t *testing.T) {
	c := newFractionsInvoker(t, oneGAS)
	mintBeachHouse(t, c)

	c.WithSigners(c.NewAccount(t)).InvokeFail(t, common.ErrAdminWitnessFailed,
		"setTokenMetadata", int64(0), "x", "x", "x", "x")

	c.Invoke(t, stackitem.Null{}, "setTokenMetadata", int64(0),
		"Beach House", "Renovated beachfront villa", "12 Shoreline Dr", "ipfs://beach-house-v2")
	c.Invoke(t, "ipfs://beach-house-v2", "imageOf", int64(0))

	res, err := c.TestInvoke(t, "properties", int64(0))
	require.NoError(t, err)
	m, ok := res.Top().Item().(*stackitem.Map)
	require.True(t, ok)

	props := make(map[string]string)
	for _, el := range m.Value().([]stackitem.MapElement) {
		k, err := el.Key.TryBytes()
		require.NoError(t, err)
		v, err := el.Value.TryBytes()
		require.NoError(t, err)
		props[string(k)] = string(v)
	}
	require.Equal(t, map[string]string{
		"name":        "Beach House",
		"description": "Renovated beachfront villa",
		"location":    "12 Shoreline Dr",
		"image":       "ipfs://beach-house-v2",
	}, props)

	// metadata rows of never-minted tokens can be written but stay unreadable
	c.Invoke(t, stackitem.Null{}, "setTokenMetadata", int64(7), "Ghost", "", "", "")
	c.InvokeFail(t, "unknown token", "tokenURI", int64(7))
	c.InvokeFail(t, "unknown token", "properties", int64(7))
}

func TestFractionsTokenURI(t *testing.T) {
	c := newFractionsInvoker(t, oneGAS)
	mintBeachHouse(t, c)

	res, err := c.TestInvoke(t, "tokenURI", int64(0))
	require.NoError(t, err)

	uri := string(res.Top().Bytes())
	const uriPrefix = "data:application/json;base64,"
	require.True(t, strings.HasPrefix(uri, uriPrefix))

	doc, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, uriPrefix))
	require.NoError(t, err)

	var meta struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Location    string `json:"location"`
		Image       string `json:"image"`
	}
	require.NoError(t, json.Unmarshal(doc, &meta))
	require.Equal(t, "Beach House", meta.Name)
	require.Equal(t, "Beachfront villa", meta.Description)
	require.Equal(t, "12 Shoreline Dr", meta.Location)
	require.Equal(t, "ipfs://beach-house", meta.Image)
}

func TestFractionsTokens(t *testing.T) {
	c := newFractionsInvoker(t, oneGAS)

	res, err := c.TestInvoke(t, "tokens")
	require.NoError(t, err)
	iter, ok := res.Top().Value().(*storage.Iterator)
	require.True(t, ok)
	require.Empty(t, iteratorToArray(iter))

	mintBeachHouse(t, c)
	c.Invoke(t, 1, "mint", "City Flat", "", "", "", int64(50))

	res, err = c.TestInvoke(t, "tokens")
	require.NoError(t, err)
	iter, ok = res.Top().Value().(*storage.Iterator)
	require.True(t, ok)

	items := iteratorToArray(iter)
	require.Equal(t, []stackitem.Item{
		stackitem.Make([]byte("0")),
		stackitem.Make([]byte("1")),
	}, items)
}

func TestFractionsUpdate(t *testing.T) {
	e := newExecutor(t)
	ctr := neotest.CompileFile(t, e.CommitteeHash, fractionsPath, path.Join(fractionsPath, "config.yml"))
	e.DeployContract(t, ctr, []interface{}{e.CommitteeHash, int64(oneGAS)})
	c := e.CommitteeInvoker(ctr.Hash)

	nefBytes, err := ctr.NEF.Bytes()
	require.NoError(t, err)
	manifestBytes, err := json.Marshal(ctr.Manifest)
	require.NoError(t, err)

	acc := c.NewAccount(t)
	c.WithSigners(acc).InvokeFail(t, common.ErrAdminWitnessFailed, "update",
		nefBytes, manifestBytes, nil)

	c.InvokeFail(t, common.ErrAlreadyUpdated, "update",
		nefBytes, manifestBytes, nil)
}
