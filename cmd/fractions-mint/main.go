package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/propshares/fractions-contract/rpc/fractions"
)

func main() {
	neoRPCEndpoint := flag.String("rpc", "", "Network address of the Neo RPC server")
	walletPath := flag.String("wallet", "", "Path to the NEP-6 wallet with the administrator account")
	walletPassword := flag.String("password", "", "Password of the administrator account")
	contractAddress := flag.String("contract", "", "Little-endian script hash of the Property Fractions contract")
	name := flag.String("name", "", "Property name")
	description := flag.String("description", "", "Property description")
	location := flag.String("location", "", "Property location")
	image := flag.String("image", "", "Content address of the property image")
	fractionCount := flag.Int64("fractions", 0, "Fixed fractional supply of the new token")

	flag.Parse()

	switch {
	case *neoRPCEndpoint == "":
		log.Fatal("missing Neo RPC endpoint")
	case *walletPath == "":
		log.Fatal("missing administrator wallet")
	case *contractAddress == "":
		log.Fatal("missing contract address")
	case *name == "":
		log.Fatal("missing property name")
	case *fractionCount <= 0:
		log.Fatal("missing or non-positive fraction count")
	}

	tokenID, err := _mint(*neoRPCEndpoint, *walletPath, *walletPassword, *contractAddress,
		*name, *description, *location, *image, *fractionCount)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("property '%s' is minted as token %s with %d fractions\n", *name, tokenID, *fractionCount)
}

func _mint(neoRPCEndpoint, walletPath, walletPassword, contractAddress, name, description, location, image string, fractionCount int64) (*big.Int, error) {
	contractHash, err := util.Uint160DecodeStringLE(contractAddress)
	if err != nil {
		return nil, fmt.Errorf("decode contract address: %w", err)
	}

	w, err := wallet.NewWalletFromFile(walletPath)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}

	if len(w.Accounts) == 0 {
		return nil, fmt.Errorf("wallet '%s' has no accounts", walletPath)
	}

	acc := w.Accounts[0]

	err = acc.Decrypt(walletPassword, w.Scrypt)
	if err != nil {
		return nil, fmt.Errorf("unlock account %s: %w", acc.Address, err)
	}

	c, err := rpcclient.New(context.Background(), neoRPCEndpoint, rpcclient.Options{
		DialTimeout:    15 * time.Second,
		RequestTimeout: 15 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("RPC client dial: %w", err)
	}

	defer c.Close()

	act, err := actor.NewSimple(c, acc)
	if err != nil {
		return nil, fmt.Errorf("init transaction sender: %w", err)
	}

	contract := fractions.New(act, contractHash)

	nextID, err := contract.TokensCount()
	if err != nil {
		return nil, fmt.Errorf("read next token identifier: %w", err)
	}

	txHash, vub, err := contract.Mint(name, description, location, image, big.NewInt(fractionCount))
	if err != nil {
		return nil, fmt.Errorf("send mint transaction: %w", err)
	}

	log.Printf("mint transaction %s sent, waiting for persistence...\n", txHash.StringLE())

	res, err := act.Wait(txHash, vub, nil)
	if err != nil {
		return nil, fmt.Errorf("wait for mint transaction: %w", err)
	}
	if res.VMState != vmstate.Halt {
		return nil, fmt.Errorf("mint transaction faulted: %s", res.FaultException)
	}

	appLog, err := c.GetApplicationLog(txHash, nil)
	if err != nil {
		return nil, fmt.Errorf("get mint transaction application log: %w", err)
	}

	events, err := fractions.MintEventsFromApplicationLog(appLog)
	if err != nil {
		return nil, fmt.Errorf("decode Mint events: %w", err)
	}
	if len(events) != 1 {
		return nil, fmt.Errorf("unexpected number of Mint events: %d", len(events))
	}
	if events[0].TokenId.Cmp(nextID) != 0 {
		return nil, fmt.Errorf("minted token identifier %s diverges from the expected %s", events[0].TokenId, nextID)
	}

	return events[0].TokenId, nil
}
