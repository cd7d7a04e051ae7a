package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go-looper/config"
	"go-looper/debug"
	"go-looper/engine"
	"go-looper/looper"
	"go-looper/midi"
	"go-looper/theme"
	"go-looper/tui"

	tea "github.com/charmbracelet/bubbletea"
)

const shutdownWait = 2 * time.Second

func main() {
	configPath := flag.String("config", "", "config file (default ~/.config/go-looper/config.yaml)")
	debugLog := flag.Bool("debug", false, "write a debug log (path and level from config)")
	writeConfig := flag.Bool("write-config", false, "write the effective config and exit")
	flag.Parse()

	if err := run(*configPath, *debugLog, *writeConfig); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, debugLog, writeConfig bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if writeConfig {
		return cfg.Save(configPath)
	}

	if debugLog {
		if err := debug.Enable(cfg.Log.Path, cfg.Log.Level); err != nil {
			return err
		}
		defer debug.Disable()
	}
	logger := debug.For("main")

	// Load theme
	palette := theme.Plasma()
	if cfg.UI.Palette != "" {
		if palette, err = theme.LoadGPL(cfg.UI.Palette); err != nil {
			return err
		}
	}
	th := theme.New(palette)

	// Audio engine and device
	eng := engine.New(cfg.Audio.SampleRate)
	dev, err := engine.Open(eng, engine.DeviceConfig{
		InputChannels:  cfg.Audio.InputChannels,
		OutputChannels: cfg.Audio.OutputChannels,
		BufferFrames:   cfg.Audio.BufferFrames,
	})
	if err != nil {
		return err
	}
	defer dev.Close()

	usesMIDI := cfg.MIDI.OutputPort != "" || cfg.MIDI.InputPort != ""
	if usesMIDI {
		defer midi.CloseDriver()
	}

	// Drum hits and clicks optionally go out over MIDI too
	var io looper.AudioIO = eng
	if cfg.MIDI.OutputPort != "" {
		send, closeOut, err := midi.OpenOutput(cfg.MIDI.OutputPort)
		if err != nil {
			logger.Warn("midi mirror disabled", "err", err)
		} else {
			defer closeOut()
			io = midi.NewMirror(eng, send, midi.GetKit(cfg.MIDI.Kit), cfg.MIDI.OutputChannel)
			logger.Info("mirroring drums to midi", "port", cfg.MIDI.OutputPort, "kit", cfg.MIDI.Kit)
		}
	}

	manager := looper.NewManager(io, looper.Options{
		Settings:  cfg.Settings(),
		Tracks:    cfg.Looper.Tracks,
		InputGain: cfg.Looper.InputGain,
		InputErr:  dev.InputErr,
	})
	manager.StartRuntime()
	defer func() {
		// stopping cuts any recording short; let that take and any other
		// in-flight capture decode before the device goes away
		manager.Close()
		ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		if err := manager.Wait(ctx); err != nil {
			logger.Warn("pending takes dropped", "err", err)
		}
	}()

	// Footswitch hot-plug
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var deviceMgr *midi.DeviceManager
	if cfg.MIDI.InputPort != "" {
		bindings, err := midi.ParseBindings(cfg.MIDI.Controls)
		if err != nil {
			return err
		}
		deviceMgr = midi.NewDeviceManager(cfg.MIDI.InputPort, midi.FootswitchOpener(bindings, manager))
		go deviceMgr.Run(ctx)
	}

	m := tui.NewModel(manager, deviceMgr, th)
	p := tea.NewProgram(m, tea.WithAltScreen())

	_, err = p.Run()
	return err
}
