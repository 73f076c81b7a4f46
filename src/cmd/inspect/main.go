package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/cobra"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"auto-shake/src/config"
	"auto-shake/src/detect"
	"auto-shake/src/screenshot"
	"auto-shake/src/state"
)

type inspectOptions struct {
	filePath   string
	configPath string
	grayPath   string
	jsonOutput bool
	verbose    bool
	x, y       int32
	width      uint32
	height     uint32
}

// Report is what one inspect run found.
type Report struct {
	Source    string              `json:"source"`
	Frame     image.Point         `json:"frame"`
	Requested state.CaptureRegion `json:"requested"`
	Sampled   *image.Rectangle    `json:"sampled,omitempty"`
	Bright    *image.Rectangle    `json:"bright,omitempty"`
	Marker    bool                `json:"marker"`
}

func main() {
	if err := newRootCmd(&inspectOptions{}, os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *inspectOptions, stdin io.Reader, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "inspect",
		Short:         "Run one capture-and-detect cycle over an image or the live screen",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			region, err := resolveRegion(cmd, *opts)
			if err != nil {
				return err
			}
			return runInspect(*opts, region, stdin, stdout)
		},
	}

	cmd.Flags().StringVar(&opts.filePath, "file", "", "PNG or BMP frame to inspect ('-' for stdin); live screen when empty")
	cmd.Flags().StringVar(&opts.configPath, "config", config.DefaultFileName, "Config file providing the capture box")
	cmd.Flags().StringVar(&opts.grayPath, "save-gray", "", "Write the extracted luma image to this PNG path")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the report as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().Int32Var(&opts.x, "x", 0, "Capture box left edge (overrides config)")
	cmd.Flags().Int32Var(&opts.y, "y", 0, "Capture box top edge (overrides config)")
	cmd.Flags().Uint32Var(&opts.width, "width", 0, "Capture box width (overrides config)")
	cmd.Flags().Uint32Var(&opts.height, "height", 0, "Capture box height (overrides config)")

	return cmd
}

// resolveRegion starts from the config file (defaults when it is missing)
// and applies any flags that were set explicitly.
func resolveRegion(cmd *cobra.Command, opts inspectOptions) (state.CaptureRegion, error) {
	app, err := config.ReadFile(opts.configPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return state.CaptureRegion{}, fmt.Errorf("failed to read %s: %w", opts.configPath, err)
	}
	region := app.Region()

	flags := cmd.Flags()
	if flags.Changed("x") {
		region.X = opts.x
	}
	if flags.Changed("y") {
		region.Y = opts.y
	}
	if flags.Changed("width") {
		region.Width = opts.width
	}
	if flags.Changed("height") {
		region.Height = opts.height
	}
	return region, nil
}

func runInspect(opts inspectOptions, region state.CaptureRegion, stdin io.Reader, stdout io.Writer) error {
	if opts.verbose {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	frame, source, err := loadFrame(opts.filePath, stdin)
	if err != nil {
		return err
	}
	log.Printf("Frame %s: %dx%d", source, frame.Bounds().Dx(), frame.Bounds().Dy())

	report := inspect(frame, region)
	report.Source = source

	if opts.grayPath != "" {
		if err := saveGray(opts.grayPath, frame, region); err != nil {
			return err
		}
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(stdout, report)
	return nil
}

func inspect(frame *image.RGBA, region state.CaptureRegion) Report {
	report := Report{
		Frame:     frame.Bounds().Size(),
		Requested: region,
	}
	gray, ok := detect.Extract(frame, region)
	if !ok {
		return report
	}
	sampled := detect.Clip(region, frame.Bounds().Dx(), frame.Bounds().Dy())
	report.Sampled = &sampled
	if bright, ok := detect.Bounds(gray); ok {
		bright = bright.Add(sampled.Min)
		report.Bright = &bright
	}
	report.Marker = detect.MarkerPresent(gray)
	return report
}

func loadFrame(path string, stdin io.Reader) (*image.RGBA, string, error) {
	if path == "" {
		src := screenshot.New()
		d, ok := screenshot.Primary(src.Displays())
		if !ok {
			return nil, "", errors.New("no active displays found")
		}
		img, err := src.Capture(d)
		if err != nil {
			return nil, "", err
		}
		return img, fmt.Sprintf("display %d", d.Index), nil
	}

	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	log.Printf("Decoded %s as %s", path, format)
	return toRGBA(img), path, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

func saveGray(path string, frame *image.RGBA, region state.CaptureRegion) error {
	gray, ok := detect.Extract(frame, region)
	if !ok {
		return errors.New("capture box is outside the frame, nothing to save")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, gray); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

func printReport(w io.Writer, r Report) {
	fmt.Fprintf(w, "source:    %s (%dx%d)\n", r.Source, r.Frame.X, r.Frame.Y)
	fmt.Fprintf(w, "requested: %dx%d at (%d,%d)\n", r.Requested.Width, r.Requested.Height, r.Requested.X, r.Requested.Y)
	if r.Sampled == nil {
		fmt.Fprintln(w, "sampled:   none (box outside frame)")
	} else {
		fmt.Fprintf(w, "sampled:   %v\n", *r.Sampled)
	}
	if r.Bright == nil {
		fmt.Fprintln(w, "bright:    none")
	} else {
		fmt.Fprintf(w, "bright:    %v\n", *r.Bright)
	}
	fmt.Fprintf(w, "marker:    %v\n", r.Marker)
}
