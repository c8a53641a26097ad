package logger

import (
    "fmt"
    "io"
    "os"
    "path/filepath"
    "time"

    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
    lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options defines logger initialization parameters.
type Options struct {
    Level      string
    Pretty     bool
    File       string
    MaxSizeMB  int
    MaxBackups int
    MaxAgeDays int
    Compress   bool
    // Service is attached to every forwarded event.
    Service string
    // Console replaces stdout as the console destination.
    Console io.Writer

    Axiom AxiomOptions
}

var shipper *axiomShipper

// Init configures the global logger. Events go to the console, to a rotated
// file when File is set, and to Axiom when enabled.
func Init(opts Options) error {
    lvl, err := zerolog.ParseLevel(opts.Level)
    if err != nil || opts.Level == "" {
        lvl = zerolog.InfoLevel
    }

    sinks, err := fileSinks(opts)
    if err != nil {
        return err
    }
    sinks = append(sinks, consoleSink(opts))

    if opts.Axiom.Enabled() {
        s, err := newAxiomShipper(opts.Axiom, serviceName(opts))
        if err != nil {
            fmt.Fprintf(os.Stderr, "axiom forwarding disabled: %v\n", err)
        } else {
            shipper = s
            sinks = append(sinks, s)
        }
    }

    zerolog.TimeFieldFormat = time.RFC3339
    log.Logger = zerolog.New(zerolog.MultiLevelWriter(sinks...)).Level(lvl).With().Timestamp().Logger()
    return nil
}

func fileSinks(opts Options) ([]io.Writer, error) {
    if opts.File == "" {
        return nil, nil
    }
    if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
        return nil, fmt.Errorf("create logs dir: %w", err)
    }
    return []io.Writer{&lumberjack.Logger{
        Filename:   opts.File,
        MaxSize:    opts.MaxSizeMB,
        MaxBackups: opts.MaxBackups,
        MaxAge:     opts.MaxAgeDays,
        Compress:   opts.Compress,
    }}, nil
}

func consoleSink(opts Options) io.Writer {
    out := opts.Console
    if out == nil {
        out = os.Stdout
    }
    if opts.Pretty {
        return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
    }
    return out
}

// Close flushes forwarded events.
func Close() {
    if shipper != nil {
        shipper.Close()
        shipper = nil
    }
}

// Component returns a child of the global logger tagged with a component name.
func Component(name string) zerolog.Logger {
    return log.Logger.With().Str("component", name).Logger()
}

func serviceName(opts Options) string {
    if opts.Service == "" {
        return "pdftables"
    }
    return opts.Service
}
