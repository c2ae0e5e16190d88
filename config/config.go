package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"
)

const (
	EncoderOpenCV = "opencv"
	EncoderFFmpeg = "ffmpeg"

	// EnvPrefix prefixes every environment override, e.g. TRACKER_WORKERS.
	EnvPrefix = "TRACKER_"
)

// ROI is the tracked circle in normalized coordinates. X and Y are fractions
// of the frame width and height; Radius is a fraction of the frame width.
type ROI struct {
	X, Y   float64
	Radius float64
}

// Config describes a single tracking run. It is fixed once a session starts.
type Config struct {
	Input  string
	Output string

	// Inclusive clip window, in seconds from the start of the input.
	StartSec float64
	EndSec   float64

	// Output frame size. Zero keeps the input size.
	Width, Height int

	ROI ROI

	Workers     int
	TrailLength int

	Threshold float64
	BlurSize  int
	Dilations int
	DrawROI   bool

	Encoder string
	Codec   string

	// If set, drawn together with the clip offset in the top left corner.
	Label string

	SnapshotPath  string
	TranscodePath string

	PreviewBuffer int
}

func Default() Config {
	return Config{
		EndSec:        5,
		Width:         1280,
		Height:        720,
		ROI:           ROI{X: 0.5, Y: 0.5, Radius: 0.5},
		Workers:       8,
		TrailLength:   250,
		Threshold:     20,
		BlurSize:      11,
		Dilations:     10,
		DrawROI:       true,
		Encoder:       EncoderOpenCV,
		Codec:         "MJPG",
		PreviewBuffer: 4,
	}
}

// Size returns the configured output size.
func (c *Config) Size() image.Point {
	return image.Point{X: c.Width, Y: c.Height}
}

func (c *Config) Validate() error {
	var errs []string
	if c.Input == "" {
		errs = append(errs, "input path is required")
	}
	if c.Output == "" {
		errs = append(errs, "output path is required")
	}
	if c.StartSec < 0 {
		errs = append(errs, "start second must not be negative")
	}
	if c.EndSec < c.StartSec {
		errs = append(errs, fmt.Sprintf("end second %v is before start second %v", c.EndSec, c.StartSec))
	}
	if c.Width < 0 || c.Height < 0 || (c.Width == 0) != (c.Height == 0) {
		errs = append(errs, fmt.Sprintf("invalid output size %dx%d", c.Width, c.Height))
	}
	if c.ROI.X < 0 || c.ROI.X > 1 || c.ROI.Y < 0 || c.ROI.Y > 1 {
		errs = append(errs, fmt.Sprintf("ROI center (%v, %v) outside [0,1]", c.ROI.X, c.ROI.Y))
	}
	if c.ROI.Radius <= 0 {
		errs = append(errs, "ROI radius must be positive")
	}
	if c.Workers < 1 {
		errs = append(errs, "at least one worker is required")
	}
	if c.TrailLength < 1 {
		errs = append(errs, "trail length must be positive")
	}
	if c.BlurSize < 1 || c.BlurSize%2 == 0 {
		errs = append(errs, fmt.Sprintf("blur size %d must be odd and positive", c.BlurSize))
	}
	if c.Dilations < 0 {
		errs = append(errs, "dilations must not be negative")
	}
	switch c.Encoder {
	case EncoderOpenCV:
		if len(c.Codec) != 4 {
			errs = append(errs, fmt.Sprintf("codec %q must be a fourcc", c.Codec))
		}
	case EncoderFFmpeg:
	default:
		errs = append(errs, fmt.Sprintf("unknown encoder %q", c.Encoder))
	}
	if len(errs) > 0 {
		return errors.New("invalid config: " + strings.Join(errs, "; "))
	}
	return nil
}

// FromFile decodes a JSON config on top of the defaults.
func FromFile(path string) (*Config, error) {
	config := Default()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p := json.NewDecoder(f)
	if err := p.Decode(&config); err != nil {
		return nil, fmt.Errorf("decoding %v: %w", path, err)
	}
	log.Debugf("Loaded configuration: %v", spew.Sdump(config))
	return &config, nil
}

// ApplyEnv overrides fields from TRACKER_* environment variables.
// Malformed values are logged and ignored.
func (c *Config) ApplyEnv() {
	str := func(key string, dst *string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *float64) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				log.Warnf("Ignoring %s%s=%q: %v", EnvPrefix, key, v, err)
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				log.Warnf("Ignoring %s%s=%q: %v", EnvPrefix, key, v, err)
				return
			}
			*dst = i
		}
	}

	str("INPUT", &c.Input)
	str("OUTPUT", &c.Output)
	num("START", &c.StartSec)
	num("END", &c.EndSec)
	integer("WIDTH", &c.Width)
	integer("HEIGHT", &c.Height)
	num("ROI_X", &c.ROI.X)
	num("ROI_Y", &c.ROI.Y)
	num("ROI_RADIUS", &c.ROI.Radius)
	integer("WORKERS", &c.Workers)
	integer("TRAIL", &c.TrailLength)
	str("ENCODER", &c.Encoder)
	str("CODEC", &c.Codec)
	str("LABEL", &c.Label)
}
