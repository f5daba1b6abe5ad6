// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package app provides the configuration and logging bootstrap shared by the
// hostwallet commands.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/jessevdk/go-flags"

	"hostwallet.org/hostwallet/wallet"
)

const (
	defaultLogLevel = "debug"
	configFilename  = "hostwallet.conf"
	logFilename     = "hostwallet.log"
)

var (
	defaultApplicationDirectory = dcrutil.AppDataDir("hostwallet", false)
	defaultConfigPath           = filepath.Join(defaultApplicationDirectory, configFilename)
)

// LogConfig encapsulates the logging-related settings.
type LogConfig struct {
	LogPath    string `long:"logpath" description:"A file to save app logs"`
	DebugLevel string `long:"log" description:"Logging level {trace, debug, info, warn, error, critical}"`
	LocalLogs  bool   `long:"loglocal" description:"Use local time zone time stamps in log entries."`
}

// Config is the application configuration definition.
type Config struct {
	LogConfig
	// AppData and ConfigPath should be parsed from the command-line, as it
	// makes no sense to set these in the config file itself. If no values
	// are assigned, defaults will be used.
	AppData    string `long:"appdata" description:"Path to application directory."`
	ConfigPath string `long:"config" description:"Path to an INI configuration file."`
	// PursesPath and InboxPath receive the serialized wallet projections
	// after every change.
	PursesPath string `long:"purses" description:"File to mirror the purses projection into."`
	InboxPath  string `long:"inbox" description:"File to mirror the offer inbox projection into."`
	ShowVer    bool   `short:"V" long:"version" description:"Display version information and exit"`
}

var defaultConfig = Config{
	AppData:    defaultApplicationDirectory,
	ConfigPath: defaultConfigPath,
	LogConfig:  LogConfig{DebugLevel: defaultLogLevel},
}

// parseCLIConfig parses the command-line arguments into the provided struct
// with go-flags tags. If the --help flag has been passed, the struct is
// described back to the terminal and the program exits.
func parseCLIConfig(cfg any) error {
	preParser := flags.NewParser(cfg, flags.HelpFlag|flags.PassDoubleDash)
	_, flagerr := preParser.Parse()
	if flagerr != nil {
		e, ok := flagerr.(*flags.Error)
		if !ok || e.Type != flags.ErrHelp {
			preParser.WriteHelp(os.Stderr)
		}
		if ok && e.Type == flags.ErrHelp {
			preParser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		return flagerr
	}
	return nil
}

// parseFileConfig parses the INI file into the provided struct with go-flags
// tags. The CLI args are then parsed again, and take precedence over the
// file values.
func parseFileConfig(path string, cfg any) error {
	parser := flags.NewParser(cfg, flags.Default)
	err := flags.NewIniParser(parser).ParseFile(path)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return err
		}
		// Missing file is not an error.
	}
	_, err = parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return err
	}
	return nil
}

// Configure assembles the application configuration from defaults, the INI
// configuration file, and the command line, in ascending order of
// precedence.
func Configure() (*Config, error) {
	cfg := defaultConfig
	if err := parseCLIConfig(&cfg); err != nil {
		return nil, err
	}
	// If the app directory has been changed, replace shortcut chars such as
	// "~" with the full path.
	if cfg.AppData != defaultApplicationDirectory {
		cfg.AppData = wallet.CleanAndExpandPath(cfg.AppData)
		// If the app directory has been changed, but the config file path
		// hasn't, reform the config file path with the new directory.
		if cfg.ConfigPath == defaultConfigPath {
			cfg.ConfigPath = filepath.Join(cfg.AppData, configFilename)
		}
	}
	cfg.ConfigPath = wallet.CleanAndExpandPath(cfg.ConfigPath)
	if err := parseFileConfig(cfg.ConfigPath, &cfg); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.AppData, 0700); err != nil {
		return nil, fmt.Errorf("failed to create application directory: %w", err)
	}
	if cfg.LogPath == "" {
		cfg.LogPath = filepath.Join(cfg.AppData, logFilename)
	}
	return &cfg, nil
}
