// Copyright (c) 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/kaspa-ng/dnsseeder/internal/addrmgr"
	"github.com/kaspa-ng/dnsseeder/internal/apperr"
	"github.com/kaspa-ng/dnsseeder/internal/netparams"
)

const (
	defaultConfigFilename = "dnsseeder.conf"
	defaultLogLevel       = "info"
	defaultListen         = "0.0.0.0:5354"
	defaultGRPCListen     = "127.0.0.1:3737"
	defaultThreads        = 8
	defaultMinProtoVer    = 1
	minThreads            = 1
	maxThreads            = 32
)

// config is the recognized set of §6: every option has an equivalent CLI
// flag of the same name with a "--" prefix (the `long` tag below), and the
// same name as an INI key in the config file. CLI overrides file, which
// overrides these defaults.
type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`

	Host       string `long:"host" description:"Zone name this seeder is authoritative for"`
	Nameserver string `long:"nameserver" description:"NS record value"`
	Listen     string `long:"listen" description:"UDP bind for DNS" default:"0.0.0.0:5354"`
	GRPCListen string `long:"grpc_listen" description:"TCP bind for inspection" default:"127.0.0.1:3737"`
	AppDir     string `long:"app_dir" description:"Where persisted state lives"`

	Seeder     string `long:"seeder" description:"One bootstrap peer, merged into known peers"`
	KnownPeers string `long:"known_peers" description:"Comma-separated list of operator-trusted peers"`

	Threads int `long:"threads" description:"Crawler worker count (1-32)" default:"8"`

	Testnet  bool `long:"testnet" description:"Use testnet-11 parameters"`
	NetSuffix int `long:"net_suffix" description:"Select network parameters (0 mainnet, 11 testnet-11)"`

	MinProtoVer uint32 `long:"min_proto_ver" description:"Rejection threshold in Probe" default:"1"`
	MinUAVer    string `long:"min_ua_ver" description:"Optional rejection threshold in Probe"`

	LogLevel string `long:"log_level" description:"trace/debug/info/warn/error" default:"info"`
	Profile  string `long:"profile" description:"If set, bind an HTTP endpoint on this port for metrics/pprof-style introspection"`
}

// loadedConfig is the validated, resolved configuration main() acts on.
type loadedConfig struct {
	cfg           config
	netParams     netparams.Params
	knownPeers    []addrmgr.Addr
	appDir        string
}

// defaultAppDir mirrors the teacher's defaultHomeDir: an OS-appropriate
// per-user application directory.
func defaultAppDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".kaspa-ng-dnsseeder")
	}
	return filepath.Join(home, ".kaspa-ng-dnsseeder")
}

// loadConfig parses the config file (if present) then CLI flags (which
// override it), validates the result, and resolves derived values
// (network params, known-peer address list).
func loadConfig(args []string) (*loadedConfig, error) {
	cfg := config{
		Listen:      defaultListen,
		GRPCListen:  defaultGRPCListen,
		Threads:     defaultThreads,
		MinProtoVer: defaultMinProtoVer,
		LogLevel:    defaultLogLevel,
	}

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default|flags.IgnoreUnknown)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, err
	}

	appDir := preCfg.AppDir
	if appDir == "" {
		appDir = defaultAppDir()
	}
	if preCfg.ConfigFile == "" {
		preCfg.ConfigFile = filepath.Join(appDir, defaultConfigFilename)
	}

	if _, err := os.Stat(preCfg.ConfigFile); err == nil {
		iniParser := flags.NewIniParser(flags.NewParser(&cfg, flags.Default))
		if err := iniParser.ParseFile(preCfg.ConfigFile); err != nil {
			return nil, &apperr.ConfigError{Option: "configfile", Reason: err.Error()}
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.AppDir == "" {
		cfg.AppDir = appDir
	}

	return validate(cfg)
}

func validate(cfg config) (*loadedConfig, error) {
	if cfg.Host == "" {
		return nil, &apperr.ConfigError{Option: "host", Reason: "must be set"}
	}
	if cfg.Nameserver == "" {
		return nil, &apperr.ConfigError{Option: "nameserver", Reason: "must be set"}
	}
	if cfg.Threads < minThreads || cfg.Threads > maxThreads {
		return nil, &apperr.ConfigError{Option: "threads", Reason: fmt.Sprintf("must be between %d and %d", minThreads, maxThreads)}
	}

	suffix := cfg.NetSuffix
	if cfg.Testnet && suffix == 0 {
		suffix = 11
	}
	params, err := netparams.ForSuffix(suffix)
	if err != nil {
		return nil, &apperr.ConfigError{Option: "net_suffix", Reason: err.Error()}
	}

	var knownPeers []addrmgr.Addr
	addAddrList := func(csv string) error {
		for _, item := range strings.Split(csv, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			a, err := resolveHostOrHostPort(item, params.DefaultPort)
			if err != nil {
				return &apperr.ConfigError{Option: "known_peers", Reason: fmt.Sprintf("%s: %v", item, err)}
			}
			knownPeers = append(knownPeers, a)
		}
		return nil
	}
	if cfg.Seeder != "" {
		if err := addAddrList(cfg.Seeder); err != nil {
			return nil, err
		}
	}
	if cfg.KnownPeers != "" {
		if err := addAddrList(cfg.KnownPeers); err != nil {
			return nil, err
		}
	}

	return &loadedConfig{cfg: cfg, netParams: params, knownPeers: knownPeers, appDir: cfg.AppDir}, nil
}

// resolveHostOrHostPort accepts "host:port" or a bare host/IP, pairing a
// bare value with defaultPort. This is the teacher's own cfg.Seeder
// handling (resolve via net.LookupHost, pair with peersDefaultPort)
// generalized to the comma-separated known_peers list.
func resolveHostOrHostPort(value string, defaultPort uint16) (addrmgr.Addr, error) {
	if host, port, err := splitHostPortLenient(value); err == nil {
		p, err := strconv.ParseUint(port, 10, 16)
		if err != nil {
			return addrmgr.Addr{}, err
		}
		return addrmgr.ParseAddr(fmt.Sprintf("%s:%d", host, p))
	}
	host := value
	if strings.Count(value, ":") > 0 && !strings.HasPrefix(value, "[") {
		host = "[" + value + "]" // bare IPv6 literal, no port
	}
	return addrmgr.ParseAddr(fmt.Sprintf("%s:%d", host, defaultPort))
}

// splitHostPortLenient succeeds only if value already contains a port.
func splitHostPortLenient(value string) (host, port string, err error) {
	idx := strings.LastIndex(value, ":")
	if idx < 0 {
		return "", "", errors.New("no port")
	}
	// Reject bare IPv6 literals without brackets (e.g. "::1") which
	// contain colons but no port.
	if strings.Count(value, ":") > 1 && !strings.HasPrefix(value, "[") {
		return "", "", errors.New("ambiguous host:port")
	}
	// A bracketed IPv6 literal carries a port only after its closing "]".
	if strings.HasPrefix(value, "[") && !strings.Contains(value, "]:") {
		return "", "", errors.New("no port")
	}
	return value[:idx], value[idx+1:], nil
}
