package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// evmChains lists DexScreener chain ids whose token addresses are EVM hex
// addresses. Anything else (solana, sui, ton, ...) passes through untouched.
var evmChains = map[string]bool{
	"ethereum":  true,
	"bsc":       true,
	"polygon":   true,
	"base":      true,
	"arbitrum":  true,
	"optimism":  true,
	"avalanche": true,
	"fantom":    true,
	"linea":     true,
	"scroll":    true,
}

type monitorRequest struct {
	tokenAddress string
	thresholdPct float64
	chainID      string
}

// parseMonitorArgs interprets "/monitor <tokenAddress> [threshold(%)] [chain]".
// An unparsable or non-positive threshold silently falls back to the default.
func parseMonitorArgs(args []string, defaultThreshold float64, defaultChain string) (monitorRequest, error) {
	req := monitorRequest{
		tokenAddress: args[0],
		thresholdPct: defaultThreshold,
		chainID:      defaultChain,
	}
	if len(args) >= 2 {
		if v, err := strconv.ParseFloat(args[1], 64); err == nil && v > 0 {
			req.thresholdPct = v
		}
	}
	if len(args) >= 3 {
		req.chainID = strings.ToLower(args[2])
	}

	normalized, err := NormalizeTokenAddress(req.chainID, req.tokenAddress)
	if err != nil {
		return monitorRequest{}, err
	}
	req.tokenAddress = normalized
	return req, nil
}

// parseStopArgs interprets "/stop <tokenAddress> [chain]".
func parseStopArgs(args []string, defaultChain string) (string, string, error) {
	token := args[0]
	chain := defaultChain
	if len(args) >= 2 {
		chain = strings.ToLower(args[1])
	}

	normalized, err := NormalizeTokenAddress(chain, token)
	if err != nil {
		return "", "", err
	}
	return normalized, chain, nil
}

// parseChartArgs interprets "/chart <tokenAddress> [hours] [chain]". When the
// second argument is not a window, it is treated as the chain and the third
// argument, if any, as the window.
func parseChartArgs(args []string, defaultChain string) (string, float64, string) {
	token := args[0]
	hours := 24.0
	chain := defaultChain

	if len(args) >= 2 {
		if v, err := parseHours(args[1]); err == nil {
			hours = v
			if len(args) >= 3 {
				chain = strings.ToLower(args[2])
			}
		} else {
			chain = strings.ToLower(args[1])
			if len(args) >= 3 {
				if v, err := parseHours(args[2]); err == nil {
					hours = v
				}
			}
		}
	}
	return token, hours, chain
}

// parseHours accepts "12", "12h" or "90m"; bare numbers mean hours.
func parseHours(arg string) (float64, error) {
	s := strings.ToLower(strings.TrimSpace(arg))
	switch {
	case strings.HasSuffix(s, "h"):
		return strconv.ParseFloat(strings.TrimSuffix(s, "h"), 64)
	case strings.HasSuffix(s, "m"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "m"), 64)
		if err != nil {
			return 0, err
		}
		return v / 60.0, nil
	default:
		return strconv.ParseFloat(s, 64)
	}
}

// NormalizeTokenAddress validates EVM addresses and rewrites them in EIP-55
// checksum form so every reference to the same token shares one identity.
// Addresses on non-EVM chains pass through untouched.
func NormalizeTokenAddress(chainID, tokenAddress string) (string, error) {
	if !evmChains[chainID] {
		return tokenAddress, nil
	}
	if !common.IsHexAddress(tokenAddress) {
		return "", fmt.Errorf("%s is not a valid %s token address", tokenAddress, chainID)
	}
	return common.HexToAddress(tokenAddress).Hex(), nil
}

// splitCommand extracts the bot command and its arguments from a message.
// "@botname" suffixes, as sent in group chats, are stripped.
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	command := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	return strings.ToLower(command), fields[1:]
}
