package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/propshares/fractions-contract/deploy"
	"go.uber.org/zap"
)

func main() {
	neoRPCEndpoint := flag.String("rpc", "", "Network address of the Neo RPC server")
	walletPath := flag.String("wallet", "", "Path to the NEP-6 wallet with the deployer account")
	walletPassword := flag.String("password", "", "Password of the deployer account")
	nefPath := flag.String("nef", "", "Path to the compiled contract executable (NEF)")
	manifestPath := flag.String("manifest", "", "Path to the contract manifest")
	adminAddress := flag.String("admin", "", "Neo address of the contract administrator (defaults to the deployer)")
	fractionPrice := flag.Int64("price", 0, "Initial price of a single fraction in GAS fractions")

	flag.Parse()

	switch {
	case *neoRPCEndpoint == "":
		log.Fatal("missing Neo RPC endpoint")
	case *walletPath == "":
		log.Fatal("missing deployer wallet")
	case *nefPath == "":
		log.Fatal("missing contract executable")
	case *manifestPath == "":
		log.Fatal("missing contract manifest")
	case *fractionPrice <= 0:
		log.Fatal("missing or non-positive fraction price")
	}

	contractAddress, err := _deploy(*neoRPCEndpoint, *walletPath, *walletPassword, *nefPath, *manifestPath, *adminAddress, *fractionPrice)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("Property Fractions contract is available at address %s\n", address.Uint160ToString(contractAddress))
}

func _deploy(neoRPCEndpoint, walletPath, walletPassword, nefPath, manifestPath, adminAddress string, fractionPrice int64) (util.Uint160, error) {
	acc, err := deployerAccount(walletPath, walletPassword)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("open deployer account: %w", err)
	}

	exe, manif, err := readContractFiles(nefPath, manifestPath)
	if err != nil {
		return util.Uint160{}, err
	}

	admin := acc.ScriptHash()
	if adminAddress != "" {
		admin, err = address.StringToUint160(adminAddress)
		if err != nil {
			return util.Uint160{}, fmt.Errorf("decode administrator address: %w", err)
		}
	}

	c, err := rpcclient.New(context.Background(), neoRPCEndpoint, rpcclient.Options{
		DialTimeout:    15 * time.Second,
		RequestTimeout: 15 * time.Second,
	})
	if err != nil {
		return util.Uint160{}, fmt.Errorf("RPC client dial: %w", err)
	}

	defer c.Close()

	logger, err := zap.NewProduction()
	if err != nil {
		return util.Uint160{}, fmt.Errorf("init logger: %w", err)
	}

	defer func() { _ = logger.Sync() }()

	return deploy.Deploy(context.Background(), deploy.Prm{
		Logger:        logger,
		Blockchain:    c,
		LocalAccount:  acc,
		NEF:           exe,
		Manifest:      manif,
		Admin:         admin,
		FractionPrice: fractionPrice,
	})
}

func deployerAccount(walletPath, walletPassword string) (*wallet.Account, error) {
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

	return acc, nil
}

func readContractFiles(nefPath, manifestPath string) (nef.File, manifest.Manifest, error) {
	var manif manifest.Manifest

	nefBytes, err := os.ReadFile(nefPath)
	if err != nil {
		return nef.File{}, manif, fmt.Errorf("read contract executable: %w", err)
	}

	exe, err := nef.FileFromBytes(nefBytes)
	if err != nil {
		return nef.File{}, manif, fmt.Errorf("decode contract executable: %w", err)
	}

	manifestBytes, err := os.ReadFile(manifestPath)
	if err != nil {
		return nef.File{}, manif, fmt.Errorf("read contract manifest: %w", err)
	}

	err = json.Unmarshal(manifestBytes, &manif)
	if err != nil {
		return nef.File{}, manif, fmt.Errorf("decode contract manifest: %w", err)
	}

	return exe, manif, nil
}
