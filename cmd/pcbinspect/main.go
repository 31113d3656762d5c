// Command pcbinspect detects components on a PCB photograph and
// identifies the ICs it finds from the text printed on their packages.
//
// Usage: pcbinspect [flags] <image-file>
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/tiff"

	"pcb-inspector/internal/component"
	"pcb-inspector/internal/config"
	"pcb-inspector/internal/icinfo"
	"pcb-inspector/internal/imageops"
	"pcb-inspector/internal/inference"
	"pcb-inspector/internal/inspect"
	"pcb-inspector/internal/manufacturer"
	"pcb-inspector/internal/ocr"
	"pcb-inspector/internal/partsapi"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "configuration file")
	windowed := flag.Bool("windowed", false, "run the small-component model over image tiles")
	windows := flag.Int("windows", 0, "tile grid dimension (overrides the configured value)")
	identify := flag.Bool("identify", false, "read and identify each detected IC")
	orientationFlag := flag.String("orientation", "up", "capture orientation: up, left, right or down")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <image-file>\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*configPath, flag.Arg(0), *windowed, *windows, *identify, *orientationFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, imagePath string, windowed bool, windowsOverride int, identify bool, orientationFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if windowsOverride > 0 {
		cfg.Windows = windowsOverride
	}

	orientation, err := parseOrientation(orientationFlag)
	if err != nil {
		return err
	}

	img, err := loadImage(imagePath)
	if err != nil {
		return err
	}

	detector, cleanup, err := buildDetector(cfg, windowed)
	if err != nil {
		return err
	}
	defer cleanup()

	var comps []component.Info
	var ics []component.ICInfo
	if windowed {
		comps, ics, err = detector.IdentifyComponentsWindowed(img, orientation, cfg.Windows, cfg.IgnoreTypes)
	} else {
		comps, ics, err = detector.IdentifyComponents(img, orientation, cfg.IgnoreTypes)
	}
	if err != nil {
		return err
	}

	printComponents(comps)

	if identify {
		return identifyICs(cfg, ics)
	}
	return nil
}

func buildDetector(cfg config.Config, windowed bool) (*inspect.Detector, func(), error) {
	var large, small inference.Engine
	cleanup := func() {
		if large != nil {
			large.Close()
		}
		if small != nil {
			small.Close()
		}
	}

	if windowed {
		engine, err := loadEngine(cfg.SmallModelPath, cfg.Threads)
		if err != nil {
			return nil, nil, err
		}
		small = engine
	} else {
		engine, err := loadEngine(cfg.LargeModelPath, cfg.Threads)
		if err != nil {
			return nil, nil, err
		}
		large = engine
	}
	return inspect.NewDetector(large, small), cleanup, nil
}

func loadEngine(modelPath string, threads int) (inference.Engine, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("loading model: %w", err)
	}
	return inference.NewTFLiteEngine(data, threads)
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

func parseOrientation(s string) (component.Orientation, error) {
	switch s {
	case "up":
		return component.OrientationUp, nil
	case "left":
		return component.OrientationLeft, nil
	case "right":
		return component.OrientationRight, nil
	case "down":
		return component.OrientationDown, nil
	}
	return "", fmt.Errorf("unknown orientation %q", s)
}

func printComponents(comps []component.Info) {
	fmt.Printf("Found %d components\n\n", len(comps))
	fmt.Printf("%-10s %-6s %10s %10s %10s %10s\n", "Name", "Type", "X", "Y", "W", "H")
	for _, c := range comps {
		fmt.Printf("%-10s %-6s %10.4f %10.4f %10.4f %10.4f\n",
			c.InternalName, c.Type.ShortCode(),
			c.ImageInfo.Location.X, c.ImageInfo.Location.Y,
			c.ImageInfo.Size.Width, c.ImageInfo.Size.Height)
	}
}

func identifyICs(cfg config.Config, ics []component.ICInfo) error {
	if len(ics) == 0 {
		fmt.Println("\nNo ICs to identify")
		return nil
	}

	reader, err := ocr.NewEngine()
	if err != nil {
		return fmt.Errorf("starting text extraction: %w", err)
	}
	defer reader.Close()

	db, err := manufacturer.Load()
	if err != nil {
		return err
	}

	var lookup icinfo.PartsLookup
	if cfg.LookupEnabled && cfg.Nexar.ClientID != "" {
		lookup = partsapi.NewClient(partsapi.Config{
			ClientID:     cfg.Nexar.ClientID,
			ClientSecret: cfg.Nexar.ClientSecret,
		})
	}
	resolver := icinfo.NewResolver(db, lookup)

	ctx := context.Background()
	for i := range ics {
		ic := &ics[i]
		fmt.Printf("\n=== %s ===\n", ic.BaseInfo.InternalName)

		sub := ic.BaseInfo.ImageInfo.SubImage
		if sub == nil {
			fmt.Println("No package image")
			continue
		}
		if imageops.BlurinessLevel(sub) == imageops.BlurHeavy {
			fmt.Println("Warning: package image is blurry, reading may be unreliable")
		}

		raw, binarised, err := inspect.ReadPackage(reader, sub)
		if err != nil {
			fmt.Printf("Text extraction failed: %v\n", err)
			continue
		}

		_, result := resolver.ResolveCompare(ctx, raw, binarised)
		ic.State = result.State
		printResult(result)
	}
	return nil
}

func printResult(result icinfo.ExtractionResult) {
	switch result.State {
	case component.StateNoText:
		fmt.Println("No readable text on the package")
		return
	case component.StateUnloaded:
		fmt.Println("Lookup failed, showing locally derived details")
	case component.StateNotAvailable:
		fmt.Println("No database match, showing locally derived details")
	}

	if result.Details != nil {
		for _, key := range result.Details.Keys() {
			value, _ := result.Details.Get(key)
			fmt.Printf("%-26s %s\n", key+":", value)
		}
		if result.State != component.StateLoaded {
			if term, ok := icinfo.WebSearchTerm(result.Details); ok {
				fmt.Printf("%-26s %s\n", "Suggested web search:", term)
			}
		}
	}
}
