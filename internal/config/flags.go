package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagFormat     = flag.String("format", "", "Output format: text or yaml")
	flagPrecision  = flag.Int("precision", -1, "Digits printed after the decimal point")
	flagMaxBytes   = flag.Int64("max-bytes", -1, "Largest document to read (0 = unlimited)")
	flagNoExternal = flag.Bool("no-external", false, "Refuse buffers stored in separate files")
)

// ParseFlags parses command-line flags from args (the arguments after the
// subcommand) and returns the remaining positional arguments.
func ParseFlags(args []string) ([]string, error) {
	if err := flag.CommandLine.Parse(args); err != nil {
		return nil, err
	}
	return flag.CommandLine.Args(), nil
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagFormat != "" {
		cfg.Output.Format = *flagFormat
	}
	if *flagPrecision >= 0 {
		cfg.Output.Precision = *flagPrecision
	}
	if *flagMaxBytes >= 0 {
		cfg.Decode.MaxDocumentBytes = *flagMaxBytes
	}
	if *flagNoExternal {
		cfg.Decode.AllowExternalBuffers = false
	}
}
