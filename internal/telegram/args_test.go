package telegram

import (
	"testing"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		text    string
		command string
		args    int
	}{
		{"/monitor tok 5 solana", "monitor", 3},
		{"/stop@PriceBot tok", "stop", 1},
		{"/START", "start", 0},
		{"hello there", "", 0},
		{"", "", 0},
	}
	for _, tc := range cases {
		command, args := splitCommand(tc.text)
		if command != tc.command || len(args) != tc.args {
			t.Fatalf("splitCommand(%q) = (%q, %d), 期望 (%q, %d)", tc.text, command, len(args), tc.command, tc.args)
		}
	}
}

func TestParseMonitorArgsDefaults(t *testing.T) {
	req, err := parseMonitorArgs([]string{"tok"}, 3, "solana")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if req.tokenAddress != "tok" || req.thresholdPct != 3 || req.chainID != "solana" {
		t.Fatalf("默认值不正确: %+v", req)
	}
}

func TestParseMonitorArgsExplicit(t *testing.T) {
	req, err := parseMonitorArgs([]string{"tok", "7.5", "Sui"}, 3, "solana")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if req.thresholdPct != 7.5 || req.chainID != "sui" {
		t.Fatalf("显式参数不正确: %+v", req)
	}
}

func TestParseMonitorArgsBadThresholdFallsBack(t *testing.T) {
	req, err := parseMonitorArgs([]string{"tok", "abc"}, 3, "solana")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if req.thresholdPct != 3 {
		t.Fatalf("坏阈值应回退默认值, 实际 %v", req.thresholdPct)
	}

	req, _ = parseMonitorArgs([]string{"tok", "-5"}, 3, "solana")
	if req.thresholdPct != 3 {
		t.Fatalf("负阈值应回退默认值, 实际 %v", req.thresholdPct)
	}
}

func TestParseMonitorArgsChecksumsEVMAddress(t *testing.T) {
	req, err := parseMonitorArgs([]string{"0xdac17f958d2ee523a2206206994597c13d831ec7", "5", "ethereum"}, 3, "solana")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if req.tokenAddress != "0xdAC17F958D2ee523a2206206994597C13D831ec7" {
		t.Fatalf("EVM 地址应规范化为校验和形式, 实际 %s", req.tokenAddress)
	}

	if _, err := parseMonitorArgs([]string{"not-an-address", "5", "ethereum"}, 3, "solana"); err == nil {
		t.Fatal("非法 EVM 地址应报错")
	}
}

func TestParseStopArgs(t *testing.T) {
	token, chain, err := parseStopArgs([]string{"tok"}, "solana")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if token != "tok" || chain != "solana" {
		t.Fatalf("默认链不正确: %s %s", token, chain)
	}

	token, chain, err = parseStopArgs([]string{"0xdac17f958d2ee523a2206206994597c13d831ec7", "Ethereum"}, "solana")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if chain != "ethereum" || token != "0xdAC17F958D2ee523a2206206994597C13D831ec7" {
		t.Fatalf("显式链解析不正确: %s %s", token, chain)
	}
}

func TestNormalizeSolanaAddressPassthrough(t *testing.T) {
	addr := "7S2fEFvce6tGFJLLw9HK6PsW1ERFKKLgHnAAAVVVbonk"
	got, err := NormalizeTokenAddress("solana", addr)
	if err != nil {
		t.Fatalf("solana 地址不应校验: %v", err)
	}
	if got != addr {
		t.Fatalf("solana 地址应原样返回, 实际 %s", got)
	}
}

func TestParseHours(t *testing.T) {
	cases := []struct {
		arg  string
		want float64
	}{
		{"24", 24},
		{"12h", 12},
		{"90m", 1.5},
		{"0.5", 0.5},
	}
	for _, tc := range cases {
		got, err := parseHours(tc.arg)
		if err != nil {
			t.Fatalf("parseHours(%q) 报错: %v", tc.arg, err)
		}
		if got != tc.want {
			t.Fatalf("parseHours(%q) = %v, 期望 %v", tc.arg, got, tc.want)
		}
	}
	if _, err := parseHours("abc"); err == nil {
		t.Fatal("非法窗口应报错")
	}
}

func TestParseChartArgs(t *testing.T) {
	token, hours, chain := parseChartArgs([]string{"tok"}, "solana")
	if token != "tok" || hours != 24 || chain != "solana" {
		t.Fatalf("默认值不正确: %s %v %s", token, hours, chain)
	}

	_, hours, chain = parseChartArgs([]string{"tok", "6", "bsc"}, "solana")
	if hours != 6 || chain != "bsc" {
		t.Fatalf("窗口后跟链名解析不正确: %v %s", hours, chain)
	}

	// 第二参数不是窗口时按链名处理
	_, hours, chain = parseChartArgs([]string{"tok", "bsc"}, "solana")
	if hours != 24 || chain != "bsc" {
		t.Fatalf("第二参数为链名时解析不正确: %v %s", hours, chain)
	}

	_, hours, chain = parseChartArgs([]string{"tok", "bsc", "6h"}, "solana")
	if hours != 6 || chain != "bsc" {
		t.Fatalf("链名后跟窗口解析不正确: %v %s", hours, chain)
	}
}
