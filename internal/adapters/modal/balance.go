package modal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bnema/modal-accounts-cli/internal/ports"
)

const DefaultBalancePath = "/root/workspace/ComfyUI/custom_nodes/ModalCredits/balance.json"

var balanceKeys = []string{"balance", "credits", "amount"}

var errBalanceMissing = errors.New("balance document has no balance, credits, or amount key")

// BalanceReader downloads the balance document from the volume of the
// currently active profile.
type BalanceReader struct {
	platform *Platform
	path     string
}

var _ ports.BalanceReader = (*BalanceReader)(nil)

func NewBalanceReader(platform *Platform) *BalanceReader {
	path := platform.cfg.BalancePath
	if path == "" {
		path = DefaultBalancePath
	}

	return &BalanceReader{platform: platform, path: path}
}

func (r *BalanceReader) ReadBalance(ctx context.Context) (float64, error) {
	dir, err := os.MkdirTemp("", "ma-balance-*")
	if err != nil {
		return 0, fmt.Errorf("create balance temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	local := filepath.Join(dir, "balance.json")
	if err := r.platform.downloadFile(ctx, r.path, local); err != nil {
		return 0, fmt.Errorf("download balance document: %w", err)
	}

	data, err := os.ReadFile(local)
	if err != nil {
		return 0, fmt.Errorf("read balance document: %w", err)
	}

	return ParseBalance(data)
}

// ParseBalance takes the first present key of balance, credits, amount.
// A present zero is a real balance; a missing or non-numeric value is an error.
func ParseBalance(data []byte) (float64, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("decode balance document: %w", err)
	}

	for _, key := range balanceKeys {
		raw, ok := doc[key]
		if !ok || string(raw) == "null" {
			continue
		}

		value, err := parseNumber(raw)
		if err != nil {
			return 0, fmt.Errorf("balance key %q: %w", key, err)
		}
		return value, nil
	}

	return 0, errBalanceMissing
}

func parseNumber(raw json.RawMessage) (float64, error) {
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, fmt.Errorf("not a number: %s", string(raw))
	}

	number, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, fmt.Errorf("not a number: %q", text)
	}

	return number, nil
}
