// Command gones is the SDL2 desktop frontend: it loads a ROM, wires up a
// System, and drives pkg/gui's window/renderer/audio loop. For scripted
// or automated use, see cmd/headless instead.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nescore-emu/nescore/pkg/cartridge"
	"github.com/nescore-emu/nescore/pkg/gui"
	"github.com/nescore-emu/nescore/pkg/logger"
	"github.com/nescore-emu/nescore/pkg/nes"
)

func main() {
	var (
		logLevel  = flag.String("log-level", "info", "Log level (off, error, warn, info, debug, trace)")
		logFile   = flag.String("log-file", "", "Log file path (empty for stdout)")
		cpuLog    = flag.Bool("cpu-log", false, "Enable CPU instruction logging")
		ppuLog    = flag.Bool("ppu-log", false, "Enable PPU logging")
		apuLog    = flag.Bool("apu-log", false, "Enable APU logging")
		mapperLog = flag.Bool("mapper-log", false, "Enable mapper logging")
	)

	flag.Usage = func() {
		fmt.Printf("Usage: %s [options] <rom_file>\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println("\nControls:")
		fmt.Println("  Z - A button")
		fmt.Println("  X - B button")
		fmt.Println("  A - Select")
		fmt.Println("  S - Start")
		fmt.Println("  Arrow keys - D-pad")
		fmt.Println("  ESC - Quit")
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	romFile := flag.Arg(0)

	level := logger.GetLogLevelFromString(*logLevel)
	if err := logger.Initialize(level, *logFile); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.SetCPULogging(*cpuLog)
	logger.SetPPULogging(*ppuLog)
	logger.SetAPULogging(*apuLog)
	logger.SetMapperLogging(*mapperLog)

	file, err := os.Open(romFile)
	if err != nil {
		log.Fatalf("failed to open ROM file: %v", err)
	}
	defer file.Close()

	cart, err := cartridge.Load(file)
	if err != nil {
		log.Fatalf("failed to load ROM: %v", err)
	}

	logger.LogInfo("Loaded ROM: %s (mapper %d)", filepath.Base(romFile), cart.Header.Mapper)

	sys := nes.New(cart)
	sys.Reset()

	nesGUI, err := gui.NewNESGUI(sys)
	if err != nil {
		log.Fatalf("failed to create GUI: %v", err)
	}
	defer nesGUI.Destroy()

	nesGUI.Run()
}
