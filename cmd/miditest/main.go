package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"go-looper/config"
	"go-looper/looper"
	looperMidi "go-looper/midi"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	defer midi.CloseDriver()

	switch os.Args[1] {
	case "list":
		listPorts()
	case "monitor":
		monitor(arg(2))
	case "kit":
		playKit(arg(2), arg(3))
	case "poll":
		pollDevices()
	default:
		usage()
	}
}

func arg(i int) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return ""
}

func usage() {
	fmt.Println("MIDI Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                 - List all MIDI ports")
	fmt.Println("  monitor [port]       - Print incoming events and the looper command each fires")
	fmt.Println("  kit [port] [kit]     - Play every instrument and click of a drum kit")
	fmt.Println("  poll                 - Poll for device changes")
	fmt.Println("")
	fmt.Println("Ports default to midi.input_port / midi.output_port from the config.")
	fmt.Printf("Kits: %s\n", strings.Join(looperMidi.KitNames(), ", "))
}

func loadConfig() *config.Config {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Config error: %v (using defaults)\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ins := midi.GetInPorts()
		outs := midi.GetOutPorts()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		for i, p := range r.ins {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, p := range r.outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}
}

// printer stands in for the looper and prints what would run
type printer struct{}

func (printer) ToggleTransport() { fmt.Println("  -> transport") }
func (printer) RequestRecord(id int) error {
	fmt.Printf("  -> record track %d\n", id+1)
	return nil
}
func (printer) RequestPlayStop(id int) error {
	fmt.Printf("  -> play/stop track %d\n", id+1)
	return nil
}
func (printer) RequestClear(id int) error {
	fmt.Printf("  -> clear track %d\n", id+1)
	return nil
}
func (printer) ToggleMute(id int) error {
	fmt.Printf("  -> mute track %d\n", id+1)
	return nil
}

func monitor(port string) {
	cfg := loadConfig()
	if port == "" {
		port = cfg.MIDI.InputPort
	}
	if port == "" {
		fmt.Println("No port given and midi.input_port is not set")
		return
	}

	bindings, err := looperMidi.ParseBindings(cfg.MIDI.Controls)
	if err != nil {
		fmt.Printf("Bad controls: %v\n", err)
		return
	}

	in, err := midi.FindInPort(port)
	if err != nil {
		fmt.Printf("No input matching %q: %v\n", port, err)
		return
	}

	fs, err := looperMidi.NewFootswitch(in.String(), nil, bindings, printer{})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer fs.Close()

	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		fmt.Printf("[%6dms] %s\n", timestampms, msg)
		if ev, ok := looperMidi.ParseEvent(msg); ok {
			fs.Handle(ev)
		}
	})
	if err != nil {
		fmt.Printf("Error opening port: %v\n", err)
		return
	}
	defer stop()

	fmt.Printf("Listening on %s. Ctrl+C to exit.\n", in.String())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig
}

func playKit(port, kitName string) {
	cfg := loadConfig()
	if port == "" {
		port = cfg.MIDI.OutputPort
	}
	if kitName == "" {
		kitName = cfg.MIDI.Kit
	}
	if port == "" {
		fmt.Println("No port given and midi.output_port is not set")
		return
	}

	send, closeOut, err := looperMidi.OpenOutput(port)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer closeOut()

	kit := looperMidi.GetKit(kitName)
	ch := uint8(cfg.MIDI.OutputChannel - 1)
	fmt.Printf("Playing %s on %s channel %d\n", kit.Name, port, ch+1)

	hit := func(label string, note uint8) {
		fmt.Printf("  %-8s note %d\n", label, note)
		send(midi.NoteOn(ch, note, 100))
		time.Sleep(100 * time.Millisecond)
		send(midi.NoteOff(ch, note))
		time.Sleep(300 * time.Millisecond)
	}
	for _, inst := range looper.Instruments() {
		hit(inst.String(), kit.Note(inst))
	}
	hit("ACCENT", kit.Accent)
	hit("CLICK", kit.Click)

	fmt.Println("Done!")
}

func pollDevices() {
	fmt.Println("Polling for device changes every 2 seconds...")
	fmt.Println("Connect/disconnect a controller to test. Ctrl+C to exit.")

	cfg := loadConfig()
	match := strings.ToLower(cfg.MIDI.InputPort)

	lastIn := ""
	lastOut := ""

	for {
		ins := midi.GetInPorts()
		outs := midi.GetOutPorts()

		var inNames, outNames []string
		for _, p := range ins {
			inNames = append(inNames, p.String())
		}
		for _, p := range outs {
			outNames = append(outNames, p.String())
		}

		currentIn := strings.Join(inNames, ",")
		currentOut := strings.Join(outNames, ",")

		if currentIn != lastIn || currentOut != lastOut {
			fmt.Printf("\n[%s] Device change detected!\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", inNames)
			fmt.Printf("  Outputs: %v\n", outNames)

			if match != "" {
				for _, name := range inNames {
					if strings.Contains(strings.ToLower(name), match) {
						fmt.Printf("  -> footswitch %s detected!\n", name)
					}
				}
			}

			lastIn = currentIn
			lastOut = currentOut
		}

		time.Sleep(2 * time.Second)
	}
}
