// qi-wallet is a command-line client for the Qi UTXO wallet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/quainet/qi-wallet/config"
	"github.com/quainet/qi-wallet/internal/log"
	"github.com/quainet/qi-wallet/internal/provider"
	"github.com/quainet/qi-wallet/internal/storage"
	"github.com/quainet/qi-wallet/internal/wallet"
	"github.com/quainet/qi-wallet/pkg/types"
	"golang.org/x/term"
)

const version = "0.1.0"

func main() {
	cfg, flags, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fatal("%v", err)
	}

	if flags.Help {
		config.PrintUsage()
		return
	}
	if flags.Version {
		fmt.Printf("qi-wallet version %s\n", version)
		return
	}
	if len(flags.Args) == 0 {
		config.PrintUsage()
		os.Exit(1)
	}

	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	env := &cliEnv{
		cfg:  cfg,
		name: flags.Name,
		provider: provider.NewWithTimeout(
			cfg.RPC.Endpoint,
			cfg.RPC.WSEndpoint,
			time.Duration(cfg.RPC.TimeoutSec)*time.Second,
		),
	}
	env.keystore, err = wallet.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}

	cmd := flags.Args[0]
	cmdArgs := flags.Args[1:]

	switch cmd {
	case "new":
		cmdNew(env)
	case "restore":
		cmdRestore(env, cmdArgs)
	case "addresses":
		cmdAddresses(env)
	case "scan":
		cmdScan(env, cmdArgs)
	case "balance":
		cmdBalance(env, cmdArgs)
	case "send":
		cmdSend(env, cmdArgs)
	case "convert":
		cmdConvert(env, cmdArgs)
	case "aggregate":
		cmdAggregate(env, cmdArgs)
	case "channel-open":
		cmdChannelOpen(env, cmdArgs)
	case "import-key":
		cmdImportKey(env, cmdArgs)
	case "help":
		config.PrintUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		config.PrintUsage()
		os.Exit(1)
	}
}

// cliEnv carries the pieces every subcommand needs.
type cliEnv struct {
	cfg      *config.Config
	name     string
	provider *provider.Client
	keystore *wallet.Keystore
}

// walletOptions maps config settings onto wallet construction options.
func (e *cliEnv) walletOptions() wallet.Options {
	return wallet.Options{
		GapLimit: e.cfg.Wallet.GapLimit,
		ChainID:  e.cfg.Wallet.ChainID,
		Account:  e.cfg.Wallet.Account,
		Aggregate: wallet.AggregateOptions{
			MaxAggregateDenom: types.Denomination(e.cfg.Wallet.MaxAggregateDenom),
			MaxOutputDenom:    types.Denomination(e.cfg.Wallet.MaxOutputDenom),
			FailOnNoBenefit:   e.cfg.Wallet.FailOnNoBenefit,
		},
	}
}

// openWallet prompts for the password and loads the named wallet.
func (e *cliEnv) openWallet() (*wallet.Wallet, []byte) {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	serialized, err := e.keystore.Load(e.name, password)
	if err != nil {
		fatal("open wallet %q: %v", e.name, err)
	}
	w, err := wallet.Deserialize(serialized, "", e.provider, e.walletOptions())
	if err != nil {
		fatal("restore wallet state: %v", err)
	}
	return w, password
}

// saveWallet persists the wallet back under the same name and password.
func (e *cliEnv) saveWallet(w *wallet.Wallet, password []byte) {
	if err := e.keystore.Save(e.name, w, password, wallet.DefaultParams()); err != nil {
		fatal("save wallet: %v", err)
	}
}

// attachCache opens the persistent outpoint cache and pre-loads the zones.
// Returns a close function for the underlying database.
func (e *cliEnv) attachCache(w *wallet.Wallet, zones ...types.Zone) func() {
	db, err := storage.NewBadger(filepath.Join(e.cfg.CacheDir(), "outpoints"))
	if err != nil {
		fatal("open outpoint cache: %v", err)
	}
	if err := w.UseOutpointCache(wallet.NewOutpointStore(db), zones...); err != nil {
		db.Close()
		fatal("load outpoint cache: %v", err)
	}
	return func() { db.Close() }
}

func (e *cliEnv) ctx() context.Context {
	return context.Background()
}

// ── new / restore ───────────────────────────────────────────────────────

func cmdNew(env *cliEnv) {
	mnemonic, err := wallet.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	password := readNewPassword()
	w, err := wallet.NewFromMnemonic(mnemonic, "", env.provider, env.walletOptions())
	if err != nil {
		fatal("create wallet: %v", err)
	}
	if err := env.keystore.Create(env.name, w, password, wallet.DefaultParams()); err != nil {
		fatal("save wallet: %v", err)
	}

	fmt.Printf("Wallet created: %s\n", env.name)
	fmt.Printf("Payment code: %s\n", w.PaymentCode())
}

func cmdRestore(env *cliEnv, args []string) {
	if len(args) == 0 {
		fatal("Usage: qi-wallet restore <word1> <word2> ... <word24>")
	}
	mnemonic := strings.Join(args, " ")
	if !wallet.ValidateMnemonic(mnemonic) {
		fatal("invalid mnemonic")
	}

	password := readNewPassword()
	w, err := wallet.NewFromMnemonic(mnemonic, "", env.provider, env.walletOptions())
	if err != nil {
		fatal("restore wallet: %v", err)
	}
	if err := env.keystore.Create(env.name, w, password, wallet.DefaultParams()); err != nil {
		fatal("save wallet: %v", err)
	}

	fmt.Printf("Wallet restored: %s\n", env.name)
	fmt.Printf("Payment code: %s\n", w.PaymentCode())
	fmt.Println("Run 'qi-wallet scan <zone>' to discover previously used addresses.")
}

// ── addresses ───────────────────────────────────────────────────────────

func cmdAddresses(env *cliEnv) {
	w, _ := env.openWallet()

	addrs := w.Addresses()
	if len(addrs) == 0 {
		fmt.Println("No addresses yet. Run 'qi-wallet scan <zone>' or request one with a send.")
		return
	}

	fmt.Printf("%-42s %-9s %-10s %-6s %s\n", "ADDRESS", "ZONE", "PATH", "INDEX", "STATUS")
	for _, info := range addrs {
		path := info.Path
		if strings.HasPrefix(path, "imported") {
			path = "imported"
		} else if path != wallet.PathExternal && path != wallet.PathChange {
			// Payment-code paths are long; show a short prefix.
			if len(path) > 8 {
				path = path[:8] + "..."
			}
		}
		fmt.Printf("%-42s %-9s %-10s %-6d %s\n",
			info.Address, info.Zone, path, info.Index, info.Status)
	}
}

// ── scan / balance ──────────────────────────────────────────────────────

func cmdScan(env *cliEnv, args []string) {
	if len(args) < 1 {
		fatal("Usage: qi-wallet scan <zone>")
	}
	zone, err := types.ParseZone(args[0])
	if err != nil {
		fatal("%v", err)
	}

	w, password := env.openWallet()
	closeCache := env.attachCache(w, zone)
	defer closeCache()

	fmt.Printf("Scanning %s...\n", zone)
	if err := w.Scan(env.ctx(), zone); err != nil {
		fatal("scan: %v", err)
	}
	env.saveWallet(w, password)

	fmt.Printf("Balance in %s: %d qits (%d locked)\n",
		zone, w.GetBalance(zone), w.GetLockedBalance(zone))
}

func cmdBalance(env *cliEnv, args []string) {
	if len(args) < 1 {
		fatal("Usage: qi-wallet balance <zone>")
	}
	zone, err := types.ParseZone(args[0])
	if err != nil {
		fatal("%v", err)
	}

	w, password := env.openWallet()
	closeCache := env.attachCache(w, zone)
	defer closeCache()

	if err := w.Sync(env.ctx(), zone); err != nil {
		fatal("sync: %v", err)
	}
	env.saveWallet(w, password)

	fmt.Printf("Balance in %s: %d qits (%d locked)\n",
		zone, w.GetBalance(zone), w.GetLockedBalance(zone))
}

// ── send / convert / aggregate ──────────────────────────────────────────

func cmdSend(env *cliEnv, args []string) {
	if len(args) < 4 {
		fatal("Usage: qi-wallet send <payment-code> <amount> <from-zone> <to-zone>")
	}
	code := args[0]
	amount := parseAmount(args[1])
	fromZone, err := types.ParseZone(args[2])
	if err != nil {
		fatal("%v", err)
	}
	toZone, err := types.ParseZone(args[3])
	if err != nil {
		fatal("%v", err)
	}

	w, password := env.openWallet()
	closeCache := env.attachCache(w, fromZone)
	defer closeCache()

	if err := w.Sync(env.ctx(), fromZone); err != nil {
		fatal("sync: %v", err)
	}
	resp, err := w.SendTransaction(env.ctx(), code, amount, fromZone, toZone)
	if err != nil {
		fatal("send: %v", err)
	}
	env.saveWallet(w, password)

	fmt.Printf("Sent %d qits: %s\n", amount, resp.Hash)
}

func cmdConvert(env *cliEnv, args []string) {
	if len(args) < 2 {
		fatal("Usage: qi-wallet convert <quai-address> <amount>")
	}
	dest, err := types.ParseAddress(args[0])
	if err != nil {
		fatal("%v", err)
	}
	amount := parseAmount(args[1])
	zone := dest.Zone()

	w, password := env.openWallet()
	closeCache := env.attachCache(w, zone)
	defer closeCache()

	if err := w.Sync(env.ctx(), zone); err != nil {
		fatal("sync: %v", err)
	}
	resp, err := w.ConvertToQuai(env.ctx(), dest, amount)
	if err != nil {
		fatal("convert: %v", err)
	}
	env.saveWallet(w, password)

	fmt.Printf("Converted %d qits to Quai: %s\n", amount, resp.Hash)
}

func cmdAggregate(env *cliEnv, args []string) {
	if len(args) < 1 {
		fatal("Usage: qi-wallet aggregate <zone>")
	}
	zone, err := types.ParseZone(args[0])
	if err != nil {
		fatal("%v", err)
	}

	w, password := env.openWallet()
	closeCache := env.attachCache(w, zone)
	defer closeCache()

	if err := w.Sync(env.ctx(), zone); err != nil {
		fatal("sync: %v", err)
	}
	resp, err := w.Aggregate(env.ctx(), zone)
	if err != nil {
		fatal("aggregate: %v", err)
	}
	env.saveWallet(w, password)

	fmt.Printf("Aggregation broadcast: %s\n", resp.Hash)
}

// ── channel-open / import-key ───────────────────────────────────────────

func cmdChannelOpen(env *cliEnv, args []string) {
	if len(args) < 1 {
		fatal("Usage: qi-wallet channel-open <payment-code>")
	}

	w, password := env.openWallet()
	if err := w.OpenChannel(args[0]); err != nil {
		fatal("open channel: %v", err)
	}
	env.saveWallet(w, password)

	fmt.Println("Channel open.")
	fmt.Printf("Share your payment code with the counterparty: %s\n", w.PaymentCode())
}

func cmdImportKey(env *cliEnv, args []string) {
	if len(args) < 1 {
		fatal("Usage: qi-wallet import-key <private-key-hex>")
	}

	w, password := env.openWallet()
	info, err := w.ImportPrivateKey(args[0])
	if err != nil {
		fatal("import key: %v", err)
	}
	env.saveWallet(w, password)

	fmt.Printf("Imported address %s in %s\n", info.Address, info.Zone)
}

// ── helpers ─────────────────────────────────────────────────────────────

func parseAmount(s string) int64 {
	amount, err := strconv.ParseInt(s, 10, 64)
	if err != nil || amount <= 0 {
		fatal("amount must be a positive integer (qits), got %q", s)
	}
	return amount
}

// readNewPassword prompts twice and requires the entries to match.
func readNewPassword() []byte {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	return password
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
