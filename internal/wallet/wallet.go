package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/quainet/qi-wallet/internal/hdkey"
	"github.com/quainet/qi-wallet/internal/log"
	"github.com/quainet/qi-wallet/internal/provider"
	"github.com/quainet/qi-wallet/pkg/crypto"
	"github.com/quainet/qi-wallet/pkg/tx"
	"github.com/quainet/qi-wallet/pkg/types"
)

// DefaultGapLimit is the number of consecutive unused addresses the wallet
// keeps derived ahead of the last used one.
const DefaultGapLimit = 20

// serializeVersion is the wallet file format version.
const serializeVersion = 1

// Wallet errors.
var (
	ErrAddressExists = errors.New("already exists in wallet")
	ErrNotQuaiDest   = errors.New("destination is not a Quai-ledger address")
)

// Options tunes wallet construction.
type Options struct {
	GapLimit  int
	ChainID   uint64
	Account   uint32
	Aggregate AggregateOptions
}

// DefaultOptions returns the standard wallet settings.
func DefaultOptions() Options {
	return Options{
		GapLimit:  DefaultGapLimit,
		Aggregate: DefaultAggregateOptions(),
	}
}

// Wallet is the Qi HD wallet: it owns the key tree, the address set, the
// outpoint ledger, and the payment channels, and drives coin selection,
// signing, and broadcast through the provider.
//
// A wallet instance is driven by a single caller at a time; there is no
// internal locking. Callers needing concurrency must serialize access
// externally.
type Wallet struct {
	phrase   string
	coinType uint32
	account  uint32

	master   *hdkey.Node
	external *hdkey.Node // m/44'/969'/account'/0
	change   *hdkey.Node // m/44'/969'/account'/1
	payment  *hdkey.Node // m/47'/969'/account'

	book     *addressBook
	ledger   *OutpointLedger
	channels map[string]*channelState
	imported map[types.Address]*crypto.PrivateKey

	provider provider.Provider
	cache    *OutpointStore
	gapLimit int
	chainID  uint64
	aggOpts  AggregateOptions

	// last observed height per zone, used for lock gating
	heights map[types.Zone]uint64

	logger zerolog.Logger
}

// NewFromMnemonic constructs a wallet from a BIP-39 mnemonic and optional
// passphrase. The provider may be nil for offline use; network operations
// will then fail.
func NewFromMnemonic(phrase, passphrase string, p provider.Provider, opts Options) (*Wallet, error) {
	seed, err := SeedFromMnemonic(phrase, passphrase)
	if err != nil {
		return nil, err
	}
	master, err := hdkey.NewMaster(seed)
	if err != nil {
		return nil, fmt.Errorf("expand seed: %w", err)
	}

	if opts.GapLimit <= 0 {
		opts.GapLimit = DefaultGapLimit
	}
	if !opts.Aggregate.MaxAggregateDenom.Valid() || !opts.Aggregate.MaxOutputDenom.Valid() {
		opts.Aggregate = DefaultAggregateOptions()
	}

	account, err := master.DeriveQiAccount(opts.Account)
	if err != nil {
		return nil, fmt.Errorf("derive account node: %w", err)
	}
	external, err := account.DeriveChild(hdkey.ChangeExternal)
	if err != nil {
		return nil, fmt.Errorf("derive external chain: %w", err)
	}
	change, err := account.DeriveChild(hdkey.ChangeInternal)
	if err != nil {
		return nil, fmt.Errorf("derive change chain: %w", err)
	}
	payment, err := master.DerivePaymentCodeAccount(opts.Account)
	if err != nil {
		return nil, fmt.Errorf("derive payment-code node: %w", err)
	}

	return &Wallet{
		phrase:   phrase,
		coinType: 969,
		account:  opts.Account,
		master:   master,
		external: external,
		change:   change,
		payment:  payment,
		book:     newAddressBook(),
		ledger:   NewOutpointLedger(),
		channels: make(map[string]*channelState),
		imported: make(map[types.Address]*crypto.PrivateKey),
		provider: p,
		gapLimit: opts.GapLimit,
		chainID:  opts.ChainID,
		aggOpts:  opts.Aggregate,
		heights:  make(map[types.Zone]uint64),
		logger:   log.Wallet,
	}, nil
}

// UseOutpointCache attaches a persistent outpoint cache and pre-loads the
// given zones into the ledger. Cached outpoints owned by addresses the
// wallet does not know are skipped; a later scan restores them.
func (w *Wallet) UseOutpointCache(cache *OutpointStore, zones ...types.Zone) error {
	w.cache = cache
	for _, zone := range zones {
		cached, err := cache.LoadZone(zone)
		if err != nil {
			return err
		}
		for _, info := range cached {
			if w.book.Get(info.Address) == nil {
				continue
			}
			w.ledger.add(info)
		}
	}
	return nil
}

// persistZone mirrors the ledger's view of a zone into the cache.
func (w *Wallet) persistZone(zone types.Zone) {
	if w.cache == nil {
		return
	}
	if err := w.cache.ReplaceZone(zone, w.ledger.Outpoints(zone)); err != nil {
		log.Storage.Warn().Err(err).Str("zone", zone.String()).Msg("outpoint cache write failed")
	}
}

// PaymentCode returns the wallet's own payment code for publication.
func (w *Wallet) PaymentCode() string {
	return PaymentCodeFromNode(w.payment).String()
}

// Addresses returns the wallet's address set in allocation order.
func (w *Wallet) Addresses() []*AddressInfo {
	return w.book.All()
}

// chainNode returns the derivation node backing a path label.
func (w *Wallet) chainNode(path string) *hdkey.Node {
	if path == PathChange {
		return w.change
	}
	return w.external
}

// nextAddress allocates the next address in the (account, path, zone)
// bucket, continuing from max(index)+1.
func (w *Wallet) nextAddress(path string, zone types.Zone) (*AddressInfo, error) {
	start := w.book.NextIndex(w.account, path, zone)
	node, err := deriveNextQiAddressNode(w.chainNode(path), start, zone)
	if err != nil {
		return nil, err
	}
	info := &AddressInfo{
		PubKey:  node.PublicKeyBytes(),
		Address: node.QiAddress(),
		Account: w.account,
		Index:   node.Index(),
		Zone:    zone,
		Path:    path,
		Status:  StatusUnused,
	}
	w.book.Add(info)
	return info, nil
}

// GetNextAddress allocates the next external receiving address in the zone.
func (w *Wallet) GetNextAddress(zone types.Zone) (*AddressInfo, error) {
	return w.nextAddress(PathExternal, zone)
}

// GetNextChangeAddress allocates the next change address in the zone.
func (w *Wallet) GetNextChangeAddress(zone types.Zone) (*AddressInfo, error) {
	return w.nextAddress(PathChange, zone)
}

// GetBalance returns the zone's spendable balance from the ledger, excluding
// outpoints still under a lock height.
func (w *Wallet) GetBalance(zone types.Zone) uint64 {
	return w.ledger.BalanceForZone(zone, w.heights[zone])
}

// GetLockedBalance returns the zone's locked balance from the ledger.
func (w *Wallet) GetLockedBalance(zone types.Zone) uint64 {
	return w.ledger.LockedBalance(zone, w.heights[zone])
}

// Outpoints returns the zone's known outpoints.
func (w *Wallet) Outpoints(zone types.Zone) []types.OutpointInfo {
	return w.ledger.Outpoints(zone)
}

// OpenChannel registers a payment channel with the counterparty identified
// by code. Opening is idempotent: reopening an existing channel preserves
// its counters.
func (w *Wallet) OpenChannel(code string) error {
	if _, ok := w.channels[code]; ok {
		return nil
	}
	if _, err := ParsePaymentCode(code); err != nil {
		return err
	}
	w.channels[code] = &channelState{}
	log.Channel.Info().Str("code", code).Msg("payment channel opened")
	return nil
}

// channel returns the open channel state and parsed code, or an error.
func (w *Wallet) channel(code string) (*channelState, *PaymentCode, error) {
	state, ok := w.channels[code]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownChannel, code)
	}
	pc, err := ParsePaymentCode(code)
	if err != nil {
		return nil, nil, err
	}
	return state, pc, nil
}

// GetNextSendAddress derives the next address for paying the counterparty,
// advancing the channel's send counter.
func (w *Wallet) GetNextSendAddress(code string, zone types.Zone) (types.Address, error) {
	state, pc, err := w.channel(code)
	if err != nil {
		return types.Address{}, err
	}
	secret, err := sharedSecret(w.payment, pc)
	if err != nil {
		return types.Address{}, err
	}
	child, _, err := deriveChannelSendAddress(secret, pc, state.SendIndex, zone)
	if err != nil {
		return types.Address{}, err
	}
	state.SendIndex++
	return child.Address, nil
}

// GetNextReceiveAddress derives the next address the counterparty will pay
// us at, advancing the channel's receive counter. The address joins the
// wallet's address set under the payment code's path so scans cover it.
func (w *Wallet) GetNextReceiveAddress(code string, zone types.Zone) (*AddressInfo, error) {
	state, pc, err := w.channel(code)
	if err != nil {
		return nil, err
	}
	secret, err := sharedSecret(w.payment, pc)
	if err != nil {
		return nil, err
	}
	node, _, err := deriveChannelReceiveNode(secret, w.payment, state.ReceiveIndex, zone)
	if err != nil {
		return nil, err
	}
	state.ReceiveIndex++

	info := &AddressInfo{
		PubKey:  node.PublicKeyBytes(),
		Address: node.QiAddress(),
		Account: w.account,
		Index:   node.Index(),
		Zone:    zone,
		Path:    code,
		Status:  StatusUnused,
	}
	w.book.Add(info)
	return info, nil
}

// ImportPrivateKey adds a raw private key to the wallet. The resulting
// address is tagged with the imported path so discovered outpoints can be
// traced back to the key for signing.
func (w *Wallet) ImportPrivateKey(hexKey string) (*AddressInfo, error) {
	raw, err := hex.DecodeString(trimHexPrefix(hexKey))
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	key, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		return nil, err
	}
	addr := crypto.QiAddressFromPubKey(key.PubKeyBytes())
	if w.book.Get(addr) != nil {
		return nil, fmt.Errorf("address %s %w", addr, ErrAddressExists)
	}

	info := &AddressInfo{
		PubKey:  key.PubKeyBytes(),
		Address: addr,
		Account: w.account,
		Zone:    addr.Zone(),
		Path:    PathImported,
		Status:  StatusUnused,
	}
	w.book.Add(info)
	w.imported[addr] = key
	w.logger.Info().Str("address", addr.String()).Msg("private key imported")
	return info, nil
}

// resolveSigner re-derives or looks up the private key owning addr.
func (w *Wallet) resolveSigner(addr types.Address) (*crypto.PrivateKey, error) {
	info := w.book.Get(addr)
	if info == nil {
		return nil, fmt.Errorf("address %s not in wallet", addr)
	}
	switch info.Path {
	case PathExternal, PathChange:
		node, err := w.chainNode(info.Path).DeriveChild(info.Index)
		if err != nil {
			return nil, fmt.Errorf("re-derive %s/%d: %w", info.Path, info.Index, err)
		}
		return node.Signer()
	case PathImported:
		key, ok := w.imported[addr]
		if !ok {
			return nil, fmt.Errorf("no key material for imported address %s", addr)
		}
		return key, nil
	default:
		// Payment-channel receive address: the stored index is the
		// masked index under the channel's shared secret.
		changeNode, err := w.payment.DeriveChild(0)
		if err != nil {
			return nil, fmt.Errorf("derive payment change level: %w", err)
		}
		node, err := changeNode.DeriveChild(info.Index)
		if err != nil {
			return nil, fmt.Errorf("re-derive channel index %d: %w", info.Index, err)
		}
		return node.Signer()
	}
}

// scanResult is the uncommitted outcome of scanning one zone.
type scanResult struct {
	newAddrs []*AddressInfo
	used     []types.Address
	upstream map[types.Address][]types.OutpointInfo
	tip      *provider.Block
	height   uint64
}

// Scan extends each derivation bucket's frontier in strictly increasing
// index order until gapLimit consecutive unused addresses are seen, querying
// the provider for every address. Results are merged into the ledger only
// after the whole scan succeeds; a provider error leaves the wallet
// untouched.
func (w *Wallet) Scan(ctx context.Context, zone types.Zone) error {
	res, err := w.collectScan(ctx, zone, true)
	if err != nil {
		return err
	}
	w.commitScan(zone, res)
	log.Scan.Info().
		Str("zone", zone.String()).
		Int("new_addresses", len(res.newAddrs)).
		Int("used", len(res.used)).
		Msg("scan complete")
	return nil
}

// Sync re-checks only the already-known addresses in the zone without
// extending the derivation frontier.
func (w *Wallet) Sync(ctx context.Context, zone types.Zone) error {
	res, err := w.collectScan(ctx, zone, false)
	if err != nil {
		return err
	}
	w.commitScan(zone, res)
	return nil
}

// collectScan gathers provider state for the zone without mutating the
// wallet. With extend set, each bucket's frontier is pushed until the gap
// limit of consecutive unused addresses holds.
func (w *Wallet) collectScan(ctx context.Context, zone types.Zone, extend bool) (*scanResult, error) {
	if !zone.Valid() {
		return nil, fmt.Errorf("invalid zone 0x%02x", uint8(zone))
	}
	res := &scanResult{
		upstream: make(map[types.Address][]types.OutpointInfo),
	}

	height, err := w.provider.GetBlockNumber(ctx, zone)
	if err != nil {
		return nil, fmt.Errorf("fetch height: %w", err)
	}
	res.height = height
	if tip, err := w.provider.GetBlock(ctx, zone, "latest"); err == nil {
		res.tip = tip
	}

	// Known addresses first.
	for _, info := range w.book.All() {
		if info.Zone != zone {
			continue
		}
		active, err := w.checkAddress(ctx, zone, info.Address, res)
		if err != nil {
			return nil, err
		}
		if active {
			res.used = append(res.used, info.Address)
		}
	}
	if !extend {
		return res, nil
	}

	// Frontier extension per bucket, strictly increasing index order.
	for _, path := range []string{PathExternal, PathChange} {
		if err := w.extendBucket(ctx, zone, path, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// extendBucket derives fresh addresses for a bucket until gapLimit
// consecutive unused ones are observed.
func (w *Wallet) extendBucket(ctx context.Context, zone types.Zone, path string, res *scanResult) error {
	chainNode := w.chainNode(path)
	nextIndex := w.book.NextIndex(w.account, path, zone)
	gap := 0

	// Activity found earlier in this scan is not yet committed to the
	// book, so consult the scan result as well.
	activeNow := make(map[types.Address]struct{}, len(res.used))
	for _, addr := range res.used {
		activeNow[addr] = struct{}{}
	}

	// Unused known tail addresses already count toward the gap.
	for _, info := range w.book.InBucket(w.account, path, zone) {
		_, active := activeNow[info.Address]
		if info.Status == StatusUnused && !active {
			gap++
		} else {
			gap = 0
		}
	}

	for gap < w.gapLimit {
		node, err := deriveNextQiAddressNode(chainNode, nextIndex, zone)
		if err != nil {
			return err
		}
		nextIndex = node.Index() + 1

		addr := node.QiAddress()
		info := &AddressInfo{
			PubKey:  node.PublicKeyBytes(),
			Address: addr,
			Account: w.account,
			Index:   node.Index(),
			Zone:    zone,
			Path:    path,
			Status:  StatusUnused,
		}
		res.newAddrs = append(res.newAddrs, info)

		active, err := w.checkAddress(ctx, zone, addr, res)
		if err != nil {
			return err
		}
		if active {
			res.used = append(res.used, addr)
			gap = 0
		} else {
			gap++
		}
	}
	return nil
}

// checkAddress queries the provider for one address and records its
// upstream outpoint set. Returns true if the address shows any activity.
func (w *Wallet) checkAddress(ctx context.Context, zone types.Zone, addr types.Address, res *scanResult) (bool, error) {
	outpoints, err := w.provider.GetOutpointsByAddress(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("fetch outpoints for %s: %w", addr, err)
	}
	infos := make([]types.OutpointInfo, 0, len(outpoints))
	for _, op := range outpoints {
		infos = append(infos, types.OutpointInfo{
			Outpoint: op,
			Address:  addr,
			Zone:     zone,
		})
	}
	res.upstream[addr] = infos
	if len(infos) > 0 {
		return true, nil
	}

	balance, err := w.provider.GetBalance(ctx, addr)
	if err != nil {
		return false, fmt.Errorf("fetch balance for %s: %w", addr, err)
	}
	return balance > 0, nil
}

// commitScan applies a successful scan to the wallet.
func (w *Wallet) commitScan(zone types.Zone, res *scanResult) {
	w.heights[zone] = res.height

	for _, info := range res.newAddrs {
		w.book.Add(info)
	}
	for addr, upstream := range res.upstream {
		if w.ledger.Reconcile(zone, addr, upstream) {
			w.book.MarkUsed(addr)
		}
	}
	for _, addr := range res.used {
		w.book.MarkUsed(addr)
	}
	if res.tip != nil {
		ref := &BlockRef{Hash: res.tip.Hash, Number: res.tip.Number}
		for _, info := range w.book.All() {
			if info.Zone == zone {
				info.LastSyncedBlock = ref
			}
		}
	}
	w.persistZone(zone)
}

// spendableOutpoints returns the zone's outpoints excluding locked ones.
func (w *Wallet) spendableOutpoints(zone types.Zone) []types.OutpointInfo {
	height := w.heights[zone]
	var out []types.OutpointInfo
	for _, info := range w.ledger.Outpoints(zone) {
		if !info.Outpoint.Locked(height) {
			out = append(out, info)
		}
	}
	return out
}

// changeStager derives change addresses without committing them to the
// address book. commit adds the staged addresses once the broadcast
// succeeds, so a failed send does not burn derivation indices.
type changeStager struct {
	w     *Wallet
	zone  types.Zone
	next  uint32
	infos []*AddressInfo
}

func (w *Wallet) stageChange(zone types.Zone) *changeStager {
	return &changeStager{
		w:    w,
		zone: zone,
		next: w.book.NextIndex(w.account, PathChange, zone),
	}
}

func (s *changeStager) Next() (types.Address, error) {
	node, err := deriveNextQiAddressNode(s.w.chainNode(PathChange), s.next, s.zone)
	if err != nil {
		return types.Address{}, err
	}
	info := &AddressInfo{
		PubKey:  node.PublicKeyBytes(),
		Address: node.QiAddress(),
		Account: s.w.account,
		Index:   node.Index(),
		Zone:    s.zone,
		Path:    PathChange,
		Status:  StatusAttemptedUse,
	}
	s.next = node.Index() + 1
	s.infos = append(s.infos, info)
	return info.Address, nil
}

func (s *changeStager) commit() {
	for _, info := range s.infos {
		s.w.book.Add(info)
	}
}

// buildAndSend assembles, signs, and broadcasts a transaction from a
// selection. destFor hands out one destination address per spend output;
// nil routes spend outputs to fresh change addresses. Wallet state is
// only mutated after the broadcast succeeds.
func (w *Wallet) buildAndSend(ctx context.Context, zone types.Zone, sel *SelectionResult, destFor func() (types.Address, error)) (*provider.TransactionResponse, error) {
	t := &tx.Transaction{ChainID: w.chainID}
	stager := w.stageChange(zone)
	if destFor == nil {
		destFor = stager.Next
	}

	keys := make([]*crypto.PrivateKey, 0, len(sel.Inputs))
	for _, input := range sel.Inputs {
		key, err := w.resolveSigner(input.Address)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
		t.Ins = append(t.Ins, tx.TxIn{
			PrevOut: input.Outpoint,
			PubKey:  key.PubKeyBytes(),
		})
	}

	var destAddrs []types.Address
	for _, denom := range sel.SpendOutputs {
		dest, err := destFor()
		if err != nil {
			return nil, err
		}
		destAddrs = append(destAddrs, dest)
		t.Outs = append(t.Outs, tx.TxOut{Address: dest, Denomination: denom})
	}

	for _, denom := range sel.ChangeOutputs {
		change, err := stager.Next()
		if err != nil {
			return nil, err
		}
		t.Outs = append(t.Outs, tx.TxOut{Address: change, Denomination: denom})
	}

	if err := t.Sign(keys); err != nil {
		return nil, err
	}
	signed, err := t.EncodeSigned()
	if err != nil {
		return nil, err
	}

	resp, err := w.provider.BroadcastTransaction(ctx, zone, signed, sel.Inputs[0].Address)
	if err != nil {
		return nil, fmt.Errorf("broadcast: %w", err)
	}

	// Commit: drop spent outpoints, add the staged change addresses, and
	// mark destinations as attempted.
	keys2 := make([]string, 0, len(sel.Inputs))
	for _, input := range sel.Inputs {
		keys2 = append(keys2, input.Outpoint.Key())
	}
	w.ledger.Remove(zone, keys2)
	w.persistZone(zone)
	stager.commit()
	for _, addr := range destAddrs {
		if info := w.book.Get(addr); info != nil && info.Status == StatusUnused {
			info.Status = StatusAttemptedUse
		}
	}

	w.logger.Info().
		Str("zone", zone.String()).
		Str("tx", resp.Hash.String()).
		Int("inputs", len(t.Ins)).
		Int("outputs", len(t.Outs)).
		Msg("transaction sent")
	return resp, nil
}

// SendTransaction pays amount base units to the counterparty behind the
// payment code, spending from fromZone and deriving destination addresses
// in toZone through the channel.
func (w *Wallet) SendTransaction(ctx context.Context, code string, amount int64, fromZone, toZone types.Zone) (*provider.TransactionResponse, error) {
	state, pc, err := w.channel(code)
	if err != nil {
		return nil, err
	}
	sel, err := SelectFewest(w.spendableOutpoints(fromZone), amount)
	if err != nil {
		return nil, err
	}

	secret, err := sharedSecret(w.payment, pc)
	if err != nil {
		return nil, err
	}
	// Destination counters only advance if the broadcast succeeds.
	offset := uint32(0)
	destFor := func() (types.Address, error) {
		child, _, err := deriveChannelSendAddress(secret, pc, state.SendIndex+offset, toZone)
		if err != nil {
			return types.Address{}, err
		}
		offset++
		return child.Address, nil
	}

	resp, err := w.buildAndSend(ctx, fromZone, sel, destFor)
	if err != nil {
		return nil, err
	}
	state.SendIndex += offset
	return resp, nil
}

// ConvertToQuai moves amount base units out of the Qi ledger to a
// Quai-ledger destination address.
func (w *Wallet) ConvertToQuai(ctx context.Context, dest types.Address, amount int64) (*provider.TransactionResponse, error) {
	if !dest.IsQuai() {
		return nil, fmt.Errorf("%w: %s", ErrNotQuaiDest, dest)
	}
	zone := dest.Zone()
	if !zone.Valid() {
		return nil, fmt.Errorf("invalid zone 0x%02x", uint8(zone))
	}
	sel, err := SelectFewest(w.spendableOutpoints(zone), amount)
	if err != nil {
		return nil, err
	}
	destFor := func() (types.Address, error) { return dest, nil }
	return w.buildAndSend(ctx, zone, sel, destFor)
}

// Aggregate consolidates the zone's small-denomination outpoints into fewer,
// larger coins owned by fresh change addresses. The fee comes from the
// provider's estimate over a draft of the transaction.
func (w *Wallet) Aggregate(ctx context.Context, zone types.Zone) (*provider.TransactionResponse, error) {
	available := w.spendableOutpoints(zone)

	// Draft selection with no fee to size the transaction for the
	// provider's estimate.
	draft, err := SelectAggregate(available, 0, w.aggOpts)
	if err != nil {
		return nil, err
	}
	draftTx := &tx.Transaction{ChainID: w.chainID}
	for _, input := range draft.Inputs {
		draftTx.Ins = append(draftTx.Ins, tx.TxIn{PrevOut: input.Outpoint})
	}
	for _, denom := range draft.SpendOutputs {
		draftTx.Outs = append(draftTx.Outs, tx.TxOut{Denomination: denom})
	}
	fee, err := w.provider.EstimateFeeForQi(ctx, zone, draftTx.EncodeUnsigned())
	if err != nil {
		return nil, fmt.Errorf("estimate fee: %w", err)
	}

	sel, err := SelectAggregate(available, fee, w.aggOpts)
	if err != nil {
		return nil, err
	}
	// nil destFor: consolidated coins land on fresh change addresses.
	return w.buildAndSend(ctx, zone, sel, nil)
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
