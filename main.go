package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matheusfillipe/euporie/internal/config"
	"github.com/matheusfillipe/euporie/internal/history"
	"github.com/matheusfillipe/euporie/internal/kernel"
	"github.com/matheusfillipe/euporie/internal/logq"
	"github.com/matheusfillipe/euporie/internal/notebook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "euporie: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	queue := logq.Default()
	logger, err := buildLogger(cfg, queue)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	path := "untitled.ipynb"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	specs := specsFromConfig(cfg)

	hist, err := history.Open(cfg.History.Path)
	if err != nil {
		// History is a convenience; the editor works without it.
		logger.Warn("history store unavailable", zap.Error(err))
		hist = nil
	} else {
		defer hist.Close()
	}

	tab, err := NewNotebookTab(cfg, path, notebook.JSONStore{}, specs, hist, logger.Named("tab"))
	if err != nil {
		return err
	}

	m := newModel(cfg, tab, logger, queue)
	if err := m.keys.ApplyOverrides(cfg.Keybindings); err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	tab.send = p.Send
	hookID := queue.Hook(func(logq.Record) { p.Send(logRecordMsg{}) })
	defer queue.Unhook(hookID)

	logger.Info("starting", zap.String("notebook", path))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run program: %w", err)
	}
	return nil
}

// buildLogger wires zap into the in-app log queue, optionally teeing to a
// file.
func buildLogger(cfg config.Config, queue *logq.Queue) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	core := logq.NewCore(queue, level)
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		enc := zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig())
		core = zapcore.NewTee(core, zapcore.NewCore(enc, zapcore.AddSync(f), level))
	}
	return zap.New(core), nil
}

func specsFromConfig(cfg config.Config) kernel.SpecLister {
	specs := make(kernel.StaticSpecs, len(cfg.Kernel.Kernels))
	for name, sc := range cfg.Kernel.Kernels {
		specs[name] = kernel.Spec{
			Name:          name,
			DisplayName:   sc.DisplayName,
			Language:      sc.Language,
			FileExtension: sc.FileExtension,
			URL:           sc.URL,
		}
	}
	return specs
}
