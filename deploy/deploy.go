// Package deploy provides Property Fractions contract deployment routine.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"go.uber.org/zap"
)

// Blockchain groups services provided by particular Neo blockchain network
// that are required for the contract deployment.
type Blockchain interface {
	// RPCActor groups functions needed to compose and send transactions to the
	// blockchain.
	actor.RPCActor

	// GetContractStateByHash returns network state of the smart contract by its
	// address. GetContractStateByHash returns error with 'Unknown contract'
	// substring if requested contract is missing.
	GetContractStateByHash(util.Uint160) (*state.Contract, error)
}

// Prm groups parameters of the Property Fractions contract deployment
// procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Particular Neo blockchain instance to deploy the contract to.
	Blockchain Blockchain

	// Local account used for transaction signing (must be unlocked). It becomes
	// the sender of the deployment transaction and so determines the resulting
	// contract address.
	LocalAccount *wallet.Account

	// Compiled contract executable and manifest.
	NEF      nef.File
	Manifest manifest.Manifest

	// Script hash of the account to be set as the contract administrator.
	Admin util.Uint160

	// Initial price of a single fraction in GAS fractions. Must be positive.
	FractionPrice int64
}

// Deploy deploys Property Fractions contract to the Neo network represented
// by given Prm.Blockchain and returns the address of the on-chain contract.
//
// Deploy is idempotent: if a contract with the resulting address already
// exists in the network, Deploy logs this and succeeds without sending
// anything.
func Deploy(ctx context.Context, prm Prm) (util.Uint160, error) {
	if prm.FractionPrice <= 0 {
		return util.Uint160{}, errors.New("non-positive fraction price")
	}

	sender := prm.LocalAccount.ScriptHash()
	contractAddress := state.CreateContractHash(sender, prm.NEF.Checksum, prm.Manifest.Name)

	alreadyDeployed, err := isContractDeployed(prm.Blockchain, contractAddress)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("check contract presence in the network: %w", err)
	}
	if alreadyDeployed {
		prm.Logger.Info("contract is already deployed in the network, nothing to do",
			zap.Stringer("address", contractAddress))
		return contractAddress, nil
	}

	localActor, err := actor.NewSimple(prm.Blockchain, prm.LocalAccount)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("init transaction sender from local account: %w", err)
	}

	prm.Logger.Info("deploying contract...",
		zap.Stringer("address", contractAddress),
		zap.Stringer("admin", prm.Admin),
		zap.Int64("fraction price", prm.FractionPrice))

	deployData := []any{prm.Admin, prm.FractionPrice}

	txHash, vub, err := management.New(localActor).Deploy(&prm.NEF, &prm.Manifest, deployData)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("send contract deployment transaction: %w", err)
	}

	prm.Logger.Info("contract deployment transaction sent, waiting for persistence...",
		zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	res, err := localActor.Wait(txHash, vub, nil)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("wait for contract deployment transaction: %w", err)
	}
	if res.VMState != vmstate.Halt {
		return util.Uint160{}, fmt.Errorf("contract deployment transaction faulted: %s", res.FaultException)
	}

	prm.Logger.Info("contract successfully deployed", zap.Stringer("address", contractAddress))

	return contractAddress, nil
}

func isContractDeployed(b Blockchain, addr util.Uint160) (bool, error) {
	_, err := b.GetContractStateByHash(addr)
	if err != nil {
		if strings.Contains(err.Error(), "Unknown contract") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
