// Command rom_analyzer prints the parsed iNES header of a ROM file
// without loading it into a running system.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/nescore-emu/nescore/pkg/cartridge"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: rom_analyzer <rom_file>")
		os.Exit(1)
	}

	romFile := os.Args[1]

	file, err := os.Open(romFile)
	if err != nil {
		log.Fatalf("failed to open ROM file: %v", err)
	}
	defer file.Close()

	cart, err := cartridge.Load(file)
	if err != nil {
		log.Fatalf("failed to load ROM: %v", err)
	}

	h := cart.Header
	fmt.Printf("=== ROM Analysis ===\n")
	fmt.Printf("File: %s\n\n", romFile)
	fmt.Printf("PRG ROM: %d x 16KiB banks (%d KiB)\n", h.PRGBanks, int(h.PRGBanks)*16)
	fmt.Printf("CHR ROM: %d x 8KiB banks (%d KiB)\n", h.CHRBanks, int(h.CHRBanks)*8)
	fmt.Printf("Mapper: %d\n", h.Mapper)
	fmt.Printf("Battery-backed PRG RAM: %v\n", h.Battery)
	fmt.Printf("512-byte trainer present: %v\n", h.Trainer)

	switch h.Mirroring {
	case cartridge.MirrorFourScreen:
		fmt.Println("Mirroring: four-screen")
	case cartridge.MirrorVertical:
		fmt.Println("Mirroring: vertical")
	default:
		fmt.Println("Mirroring: horizontal")
	}

	if ram := cart.PRGRAM(); ram != nil {
		fmt.Printf("PRG RAM: %d bytes\n", len(ram))
	}
	if ram := cart.CHRRAM(); ram != nil {
		fmt.Printf("CHR RAM: %d bytes (no CHR ROM on this cartridge)\n", len(ram))
	}
}
