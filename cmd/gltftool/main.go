// gltftool is a CLI utility for inspecting and validating glTF 2.0 documents.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-gltf/internal/config"
	"github.com/Faultbox/midgard-gltf/internal/logger"
	"github.com/Faultbox/midgard-gltf/pkg/gltf"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var run func(m *gltf.Model, path string, cfg *config.Config, w io.Writer) error
	switch command {
	case "info":
		run = cmdInfo
	case "meshes":
		run = cmdMeshes
	case "nodes":
		run = cmdNodes
	case "animations", "anims":
		run = cmdAnimations
	case "validate", "check":
		os.Exit(cmdValidate(args, os.Stdout))
	case "config":
		if err := cmdConfig(args, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	path, cfg, err := setup(command, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	m, err := loadModel(path, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := run(m, path, cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gltftool - glTF 2.0 document utility

Usage:
  gltftool <command> [options] <file.gltf|file.glb>

Commands:
  info        Show asset information, element counts and scene bounds
  meshes      List primitives with their attributes and upload sizes
  nodes       Print the node hierarchy with world transforms
  animations  List animations, channels and durations
  validate    Decode the document and report the first error
  config init Write the effective settings to the user config file
  config show Print the effective settings as YAML

Options:
  -config <path>   Config file (default: ./config.yaml, then user config dir)
  -format <fmt>    Output format: text or yaml
  -precision <n>   Digits after the decimal point
  -max-bytes <n>   Largest document to read (0 = unlimited)
  -no-external     Refuse buffers stored in separate files
  -debug           Log decoder stages to stderr

Examples:
  gltftool info scene.glb
  gltftool nodes -format yaml -precision 3 rig.gltf
  gltftool validate broken.gltf
  gltftool config init -precision 6`)
}

// setup parses flags, loads config and initializes logging. It returns the
// document path.
func setup(command string, args []string) (string, *config.Config, error) {
	rest, err := config.ParseFlags(args)
	if err != nil {
		return "", nil, err
	}
	if len(rest) != 1 {
		return "", nil, fmt.Errorf("usage: gltftool %s [options] <file>", command)
	}

	cfg, err := config.Load()
	if err != nil {
		return "", nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return "", nil, err
	}
	return rest[0], cfg, nil
}

// loadModel decodes the document at path with the configured limits.
func loadModel(path string, cfg *config.Config) (*gltf.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	opts := &gltf.Options{
		Logger:           logger.Named("gltf").With(zap.String("file", filepath.Base(path))),
		MaxDocumentBytes: cfg.Decode.MaxDocumentBytes,
	}
	if cfg.Decode.AllowExternalBuffers {
		opts.BufferLoader = gltf.DirLoader(filepath.Dir(path))
	}

	m, err := gltf.DecodeReader(f, opts)
	if err != nil {
		logger.Debug("decode failed", zap.String("file", path), zap.Error(err))
		return nil, err
	}
	return m, nil
}

// cmdValidate decodes the document and prints a verdict. It returns the
// process exit code: 0 valid, 1 invalid, 2 usage or I/O error.
func cmdValidate(args []string, w io.Writer) int {
	path, cfg, err := setup("validate", args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	defer logger.Sync()

	m, err := loadModel(path, cfg)
	var decodeErr *gltf.DecodeError
	if err != nil && !errors.As(err, &decodeErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	r := newValidation(path, m, err)
	if err := write(w, cfg.Output, r); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	if !r.Valid {
		return 1
	}
	return 0
}

// cmdConfig handles "config init" and "config show". Both print or store
// the merged defaults, config file and flags.
func cmdConfig(args []string, w io.Writer) error {
	const usage = "usage: gltftool config <init|show> [options]"
	if len(args) == 0 {
		return errors.New(usage)
	}
	rest, err := config.ParseFlags(args[1:])
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return errors.New(usage)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch args[0] {
	case "show":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case "init":
		path := config.UserPath()
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote %s\n", path)
		return nil
	default:
		return fmt.Errorf("unknown config command %q; %s", args[0], usage)
	}
}

func cmdInfo(m *gltf.Model, path string, cfg *config.Config, w io.Writer) error {
	return write(w, cfg.Output, newInfo(path, m, cfg.Output.Precision))
}

func cmdMeshes(m *gltf.Model, _ string, cfg *config.Config, w io.Writer) error {
	r, err := newMeshes(m)
	if err != nil {
		return err
	}
	return write(w, cfg.Output, r)
}

func cmdNodes(m *gltf.Model, _ string, cfg *config.Config, w io.Writer) error {
	return write(w, cfg.Output, newNodes(m, cfg.Output.Precision))
}

func cmdAnimations(m *gltf.Model, _ string, cfg *config.Config, w io.Writer) error {
	return write(w, cfg.Output, newAnimations(m))
}
