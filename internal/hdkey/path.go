package hdkey

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePath converts a derivation path string like "m/44'/969'/0'/0/5" into
// derivation indices. Apostrophe- or h-suffixed components are hardened.
func ParsePath(path string) ([]uint32, error) {
	if path == "" {
		return nil, fmt.Errorf("empty derivation path")
	}

	parts := strings.Split(path, "/")
	if parts[0] == "m" || parts[0] == "M" {
		parts = parts[1:]
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("derivation path %q has no components", path)
	}

	indices := make([]uint32, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("derivation path %q has an empty component", path)
		}
		hardened := false
		if strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h") {
			hardened = true
			part = part[:len(part)-1]
		}
		v, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid path component %q: %w", part, err)
		}
		if v >= uint64(HardenedOffset) {
			return nil, fmt.Errorf("path component %d out of range", v)
		}
		idx := uint32(v)
		if hardened {
			idx += HardenedOffset
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// DerivePath derives sequentially along a path string, applying hardened
// derivation for apostrophe-suffixed components. Fails if a hardened
// component is requested on a public-only node.
func (n *Node) DerivePath(path string) (*Node, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	return n.Derive(indices...)
}

// Derive applies DeriveChild sequentially for each index.
func (n *Node) Derive(indices ...uint32) (*Node, error) {
	current := n
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// DeriveQiAccount returns the account node at m/44'/969'/account'.
func (n *Node) DeriveQiAccount(account uint32) (*Node, error) {
	return n.Derive(PurposeBIP44, CoinTypeQi, HardenedOffset+account)
}

// DerivePaymentCodeAccount returns the payment-code root at m/47'/969'/account'.
func (n *Node) DerivePaymentCodeAccount(account uint32) (*Node, error) {
	return n.Derive(PurposePaymentCode, CoinTypeQi, HardenedOffset+account)
}
