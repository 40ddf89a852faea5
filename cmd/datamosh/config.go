package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds CLI configuration
type Config struct {
	Output    string   `yaml:"output"`
	All       bool     `yaml:"all"`
	Fake      bool     `yaml:"fake"`
	LogLevel  string   `yaml:"log_level"`
	MaxFrames int      `yaml:"max_frames"`
	Inputs    []string `yaml:"-"`
}

func defaultConfig() Config {
	return Config{
		Output:   "out.avi",
		LogLevel: "info",
	}
}

// loadConfig decodes a YAML file over cfg. Keys missing from the file keep
// their current values.
func loadConfig(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// Version can be set at build time
var version = "dev"

var errHelp = errors.New("help requested")

// parseFlags builds the configuration from defaults, the optional -config
// file and the command line, in increasing order of precedence.
func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()

	var configFile string
	var showVersion bool
	var flags Config

	fs.StringVar(&configFile, "config", "", "YAML config file")
	fs.StringVar(&flags.Output, "o", cfg.Output, "output the video to OUTPUT")
	fs.StringVar(&flags.Output, "output", cfg.Output, "same as -o")
	fs.BoolVar(&flags.All, "a", false, "remove all keyframes (the first keyframe is kept by default)")
	fs.BoolVar(&flags.All, "all", false, "same as -a")
	fs.BoolVar(&flags.Fake, "f", false, "keep every keyframe's pixels but mark it as a deltaframe")
	fs.BoolVar(&flags.Fake, "fake", false, "same as -f")
	fs.StringVar(&flags.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.IntVar(&flags.MaxFrames, "max-frames", 0, "accept files up to this many frames when not asked on a terminal")
	fs.BoolVar(&showVersion, "version", false, "Show version")

	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "datamosh %s - AVI keyframe remover\n", version)
		fmt.Fprintf(out, "\nUsage: %s [options] <file ...>\n", fs.Name())
		fmt.Fprintf(out, "\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nExamples:\n")
		fmt.Fprintf(out, "  %s clip.avi                     # Keep the first keyframe, write out.avi\n", fs.Name())
		fmt.Fprintf(out, "  %s -a -o moshed.avi clip.avi    # Remove every keyframe\n", fs.Name())
		fmt.Fprintf(out, "  %s -f a.avi b.avi               # Join two clips, keyframes flagged as deltas\n", fs.Name())
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if showVersion {
		fmt.Fprintf(fs.Output(), "datamosh %s\n", version)
		return cfg, errHelp
	}

	if configFile != "" {
		if err := loadConfig(configFile, &cfg); err != nil {
			return cfg, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o", "output":
			cfg.Output = flags.Output
		case "a", "all":
			cfg.All = flags.All
		case "f", "fake":
			cfg.Fake = flags.Fake
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "max-frames":
			cfg.MaxFrames = flags.MaxFrames
		}
	})
	cfg.Inputs = fs.Args()

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.All && c.Fake {
		return errors.New("the -f/--fake option cannot be used with -a/--all")
	}
	if len(c.Inputs) == 0 {
		return errors.New("at least one input file is required")
	}
	for _, in := range c.Inputs {
		st, err := os.Stat(in)
		if err != nil || st.IsDir() {
			return fmt.Errorf("%s: no such file", in)
		}
	}
	if c.Output == "" {
		return errors.New("output file is required")
	}
	return nil
}
