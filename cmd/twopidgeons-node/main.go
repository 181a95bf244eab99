package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"twopidgeons.dev/node/crypto"
	"twopidgeons.dev/node/node"
	"twopidgeons.dev/node/node/store"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	nodeID := flag.String("node-id", "", "override node id")
	dataDir := flag.String("datadir", "", "override data directory")
	difficulty := flag.Int("difficulty", -1, "override mining difficulty (leading zero hex nibbles)")
	mineBlocks := flag.Int("mine-blocks", 0, "mine N blocks from the pending pool after startup")
	initKeys := flag.Bool("init-keys", false, "generate a signing key pair, write the keystore, and exit")
	subjectID := flag.String("subject", "", "subject id for a stored-image transaction")
	contentHash := flag.String("content-hash", "", "content hash for a stored-image transaction")
	dryRun := flag.Bool("dry-run", false, "print effective config and exit")
	flag.Parse()

	cfg, err := node.LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(2)
	}
	if *nodeID != "" {
		cfg.NodeID = *nodeID
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *difficulty >= 0 {
		cfg.Difficulty = *difficulty
	}
	if err := node.ValidateConfig(cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}
	if err := printConfig(cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config encode failed: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		return
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "datadir create failed: %v\n", err)
		os.Exit(2)
	}
	keystorePath := cfg.KeystorePath
	if keystorePath == "" {
		keystorePath = filepath.Join(cfg.DataDir, "node.ks")
	}

	if *initKeys {
		priv, err := crypto.GenerateKeyPair()
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "key generation failed: %v\n", err)
			os.Exit(2)
		}
		if err := crypto.SaveKeystore(keystorePath, priv, passphrase()); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "keystore write failed: %v\n", err)
			os.Exit(2)
		}
		pubPEM, err := crypto.EncodePublicKey(&priv.PublicKey)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "key encode failed: %v\n", err)
			os.Exit(2)
		}
		_, _ = fmt.Fprintf(os.Stdout, "keystore written: %s\n%s", keystorePath, pubPEM)
		return
	}

	db, err := store.Open(filepath.Join(cfg.DataDir, "chain.db"))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "store open failed: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = db.Close() }()

	initial, err := db.LoadChain()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "chain load failed: %v\n", err)
		os.Exit(2)
	}

	ledgerCfg := node.DefaultLedgerConfig()
	ledgerCfg.Difficulty = cfg.Difficulty
	ledgerCfg.Persist = db
	ledger, err := node.NewLedger(ledgerCfg, initial)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ledger init failed: %v\n", err)
		os.Exit(2)
	}

	tip := ledger.Tip()
	_, _ = fmt.Fprintf(os.Stdout, "chain: height=%d tip_index=%d tip_hash=%s pending=%d\n",
		ledger.Height(), tip.Index, tip.Hash, ledger.PendingCount())

	if *subjectID != "" || *contentHash != "" {
		if *subjectID == "" || *contentHash == "" {
			_, _ = fmt.Fprintln(os.Stderr, "-subject and -content-hash must be given together")
			os.Exit(2)
		}
		priv, err := crypto.LoadKeystore(keystorePath, passphrase())
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "keystore open failed: %v\n", err)
			os.Exit(2)
		}
		signer, err := node.NewSigner(cfg.NodeID, priv)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "signer init failed: %v\n", err)
			os.Exit(2)
		}
		tx, err := signer.NewTransaction(*subjectID, *contentHash, 0)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "transaction build failed: %v\n", err)
			os.Exit(2)
		}
		if err := ledger.AddTransaction(tx); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "transaction rejected: %v\n", err)
			os.Exit(1)
		}
		_, _ = fmt.Fprintf(os.Stdout, "queued: subject=%s content_hash=%s pending=%d\n",
			tx.SubjectID, tx.ContentHash, ledger.PendingCount())
	}

	if *mineBlocks > 0 {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		miner, err := node.NewMiner(ledger, node.DefaultMinerConfig())
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "miner init failed: %v\n", err)
			os.Exit(2)
		}
		mined, err := miner.MineN(ctx, *mineBlocks)
		if err != nil {
			if node.IsCancelled(err) {
				_, _ = fmt.Fprintln(os.Stderr, "mining cancelled")
				os.Exit(1)
			}
			_, _ = fmt.Fprintf(os.Stderr, "mining failed: %v\n", err)
			os.Exit(2)
		}
		for _, b := range mined {
			_, _ = fmt.Fprintf(os.Stdout, "mined: index=%d hash=%s timestamp=%d nonce=%d tx_count=%d\n",
				b.Index, b.Hash, b.Timestamp, b.Nonce, b.TxCount)
		}
	}
}

// passphrase reads the keystore passphrase from the environment; an empty
// value is a usable (if weak) passphrase.
func passphrase() []byte {
	return []byte(os.Getenv("TP_PASSPHRASE"))
}

func printConfig(cfg node.Config) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
