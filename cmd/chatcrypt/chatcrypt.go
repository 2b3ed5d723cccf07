package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sem-hub/chatcrypt/internal/configs"
)

type logType map[string]string

var (
	cfg        *configs.ConfigFile
	configFile string
	key        string
	cipher     string
	group      string
	inFile     string
	outFile    string
	chatID     string
	sender     string
	defaultLog string
	logLevel   logType
	raw        bool
	noColor    bool
)

var flagAlias = map[string]string{
	"config": "c",
	"debug":  "d",
	"log":    "D",
	"cipher": "e",
	"group":  "g",
	"in":     "i",
	"key":    "k",
	"out":    "o",
}

var logger *configs.ColorLogger

func isFlagPresent(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func (i *logType) String() string {
	return fmt.Sprint(*i)
}

func (i *logType) Set(value string) error {
	for _, logStr := range strings.Split(value, ",") {
		parts := strings.SplitN(logStr, "=", 2)
		if len(parts) != 2 || !configs.IsLogLevel(parts[1]) {
			return fmt.Errorf("invalid log level format: %s", logStr)
		}
		(*i)[parts[0]] = parts[1]
	}
	return nil
}

func init() {
	logLevel = make(map[string]string)
	flag.StringVar(&configFile, "config", "", "Path to config file (default "+configs.DefaultConfigFile+" if present).")
	flag.StringVar(&key, "key", "", "Hex encoded key (overrides config file).")
	flag.StringVar(&cipher, "cipher", "", "Engine string cipher[-size][-mode][-padding], e.g. rc6-256-cbc-pkcs7.")
	flag.StringVar(&group, "group", "", "Diffie-Hellman group (modp1536, modp2048, modp3072, modp4096).")
	flag.StringVar(&inFile, "in", "", "Input file (default stdin).")
	flag.StringVar(&outFile, "out", "", "Output file (default stdout).")
	flag.StringVar(&chatID, "chat", "default", "Chat ID stored in envelopes.")
	flag.StringVar(&sender, "sender", "", "Sender name stored in envelopes.")
	flag.StringVar(&defaultLog, "debug", "", "Default logging level for all modules.")
	flag.Var(&logLevel, "log", "Per module logging levels, e.g. modes=trace,dh=debug.")
	flag.BoolVar(&raw, "raw", false, "Read and write IV followed by ciphertext instead of a JSON envelope.")
	flag.BoolVar(&noColor, "no_color", false, "Disable colored logs.")
	for from, to := range flagAlias {
		flagSet := flag.Lookup(from)
		flag.Var(flagSet.Value, to, fmt.Sprintf("alias to %s", flagSet.Name))
	}
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] iv|encrypt|decrypt|dh|uuid\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func setModuleLevel(module, level string) bool {
	switch module {
	case "main":
		cfg.Log.Main = level
	case "crypt":
		cfg.Log.Crypt = level
	case "ciphers":
		cfg.Log.Ciphers = level
	case "modes":
		cfg.Log.Modes = level
	case "padding":
		cfg.Log.Padding = level
	case "dh":
		cfg.Log.DH = level
	case "protocol":
		cfg.Log.Protocol = level
	default:
		return false
	}
	return true
}

// setupConfig applies defaults, then the config file, then command line switches.
func setupConfig() {
	cfg = configs.GetConfigFile()
	logger = configs.InitLogger("main")

	path := configFile
	if path == "" {
		if _, err := os.Stat(expandDefault()); err == nil {
			path = configs.DefaultConfigFile
		}
	}
	if path != "" {
		if _, err := configs.LoadConfigFile(path); err != nil {
			logger.Fatal("Failed to load config file", "file", path, "error", err)
		}
	}

	if key != "" {
		cfg.Crypt.Key = key
	}
	if cipher != "" {
		cfg.Crypt.Engine = cipher
	}
	if group != "" {
		cfg.DH.Group = group
	}
	if isFlagPresent("no_color") {
		cfg.Log.NoColor = noColor
	}
	if defaultLog != "" {
		if !configs.IsLogLevel(defaultLog) {
			logger.Fatal("Invalid log level", "level", defaultLog)
		}
		for _, module := range []string{"main", "crypt", "ciphers", "modes", "padding", "dh", "protocol"} {
			setModuleLevel(module, defaultLog)
		}
		level := strings.ToLower(defaultLog)
		cfg.Main.Debug = level == "debug" || level == "trace"
	}
	for module, level := range logLevel {
		if !setModuleLevel(module, level) {
			logger.Warn("Unknown module for log level override", "module", module)
		}
	}

	// Reinit logger with a new level
	logger = configs.ReinitLogger("main")
	logger.Debug("Configuration", "engine", cfg.Crypt.Engine, "group", cfg.DH.Group)
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	// Special case: UUID generation mode
	if flag.Arg(0) == "uuid" {
		fmt.Println(newUUID())
		os.Exit(0)
	}

	setupConfig()

	var err error
	switch flag.Arg(0) {
	case "iv":
		err = cmdIV()
	case "encrypt":
		err = cmdEncrypt()
	case "decrypt":
		err = cmdDecrypt()
	case "dh":
		err = cmdDH()
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		logger.Fatal(flag.Arg(0)+" failed", "error", err)
	}
}
