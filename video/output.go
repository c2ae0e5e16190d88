package video

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"tracker/config"
	"tracker/util"
	"tracker/video/sink"
	"tracker/video/source"
)

// Opener opens the external video collaborators for a session.
type Opener struct {
	Input  func(path string) (source.Decoder, error)
	Output func(cfg *config.Config, fps float64, size image.Point) (sink.Sink, error)
}

func OpenInput(path string) (source.Decoder, error) {
	v, err := source.OpenVideoCapture(path)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// OutputProducer opens the output file with the encoder a config asks for.
type OutputProducer struct {
	// FFmpeg is the ffmpeg binary; located on demand if empty.
	FFmpeg string
}

func (p *OutputProducer) New(cfg *config.Config, fps float64, size image.Point) (sink.Sink, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0755); err != nil {
		return nil, err
	}

	switch cfg.Encoder {
	case config.EncoderFFmpeg:
		bin := p.FFmpeg
		if bin == "" {
			var err error
			if bin, err = util.LocateFFmpeg(); err != nil {
				return nil, fmt.Errorf("locating ffmpeg: %w", err)
			}
		}
		f, err := sink.NewFFmpeg(cfg.Output, sink.FFmpegOptions{
			Binary: bin,
			Size:   size,
			FPS:    fps,
		})
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		v, err := sink.NewVideo(cfg.Output, cfg.Codec, fps, size)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

func DefaultOpener() Opener {
	p := &OutputProducer{}
	return Opener{
		Input:  OpenInput,
		Output: p.New,
	}
}
