package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/dominantcolor"

	"github.com/wbrown/pixelbot"
	"github.com/wbrown/pixelbot/imageutil"
)

func main() {
	inputFile := flag.String("input", "",
		"Path to the input image file (required)")
	outputFile := flag.String("output", "",
		"Path to save a PNG preview of the quantized image")
	paletteFile := flag.String("palette", pixelbot.DefaultPalette,
		"Path to the palette file (Embedded: notpixel)")
	colorMethod := flag.String("colormethod", "manhattan",
		"Color distance method: manhattan, redmean, or lab")
	targetWidth := flag.Int("width", 0,
		"Resize the image to this width before quantizing, 0 to keep")
	scale := flag.Int("scale", 8,
		"Preview pixels per image pixel")
	dominant := flag.Int("dominant", 0,
		"Also report this many dominant colors of the input")
	flag.Parse()

	if *inputFile == "" {
		fmt.Println("Please provide the image using the -input flag")
		flag.PrintDefaults()
		return
	}

	method, err := pixelbot.DistanceMethodByName(*colorMethod)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	beginInit := time.Now()
	palette := pixelbot.LoadPalette(*paletteFile)
	if len(palette) == 0 {
		fmt.Printf("Error loading palette: %v (%s)\n", pixelbot.ErrEmptyPalette, *paletteFile)
		os.Exit(1)
	}
	quantizer := pixelbot.NewQuantizer(palette, method)
	fmt.Printf("palette colors: %d\ncolormethod: %s\n", len(palette), method.Name())

	img, err := imageutil.LoadImage(*inputFile)
	if err != nil {
		fmt.Printf("Error processing image: %v\n", err)
		os.Exit(1)
	}
	if *targetWidth > 0 && *targetWidth != img.Width() {
		img = imageutil.ResizeToWidth(img, *targetWidth, imageutil.InterpolationArea)
	}
	endInit := time.Now()
	fmt.Printf("Initialization time: %v\n", endInit.Sub(beginInit))

	colors := pixelbot.NewAnalyzer(quantizer).AnalyzeImage(img.RGBA)
	endComputation := time.Now()

	fmt.Printf("Image: %dx%d, %d pixels\n", img.Width(), img.Height(), len(colors))
	for _, cc := range pixelbot.Histogram(colors) {
		fmt.Printf("  %s %7d %5.1f%%\n", cc.Color.Hex(), cc.Count, cc.Percent)
	}

	if *dominant > 0 {
		fmt.Println("Dominant colors:")
		for _, dc := range dominantcolor.FindWeight(img.RGBA, *dominant) {
			c := pixelbot.RGBFromColor(dc.RGBA)
			fmt.Printf("  %s weight %.3f -> %s\n", c.Hex(), dc.Weight, quantizer.Nearest(c).Hex())
		}
	}

	if *outputFile != "" {
		if err := pixelbot.SavePreview(*outputFile, colors, img.Width(), *scale); err != nil {
			fmt.Printf("Error writing PNG: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("PNG output written to %s\n", *outputFile)
	}

	hits, misses, hitRate := quantizer.CacheStats()
	fmt.Printf("Computation time: %v\n", endComputation.Sub(endInit))
	fmt.Printf("Color cache: %d hits, %d misses (%.1f%%)\n", hits, misses, hitRate*100)
}
