package patch

import (
	"fmt"
	"math/rand"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// Sampler draws Config.Count independent patches from a Source and hands the
// encoded results to a Sink. Draws are uniform over the valid coordinate
// range, with replacement; coincidentally identical draws are not
// deduplicated.
type Sampler struct {
	src      Source
	sink     Sink
	cfg      Config
	rng      *rand.Rand
	log      *zap.Logger
	progress bool
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithRand sets the random source. Fixing the seed makes the coordinate
// sequence, and therefore the output names, fully deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(s *Sampler) { s.rng = rng }
}

// WithLogger sets the logger. Defaults to zap.NewNop().
func WithLogger(log *zap.Logger) Option {
	return func(s *Sampler) { s.log = log }
}

// WithProgress enables a terminal progress bar over the sampling loop.
func WithProgress(on bool) Option {
	return func(s *Sampler) { s.progress = on }
}

// New returns a Sampler over src writing to sink.
func New(src Source, sink Sink, cfg Config, opts ...Option) (*Sampler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Sampler{
		src:  src,
		sink: sink,
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(rand.Int63())),
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run performs the sampling loop: Config.Count times, draw a coordinate,
// fetch the region, encode it, and write it to the sink. The first fetch,
// encode, or write failure aborts the run; patches written before the failure
// are left in place.
//
// Run fails before drawing anything when the source is smaller than the patch
// size in either dimension. A source exactly the patch size is valid: the
// coordinate range degenerates to zero.
func (s *Sampler) Run() error {
	width, height := s.src.Bounds()
	if width < s.cfg.Size || height < s.cfg.Size {
		return fmt.Errorf(
			"patch size %d does not fit inside image bounds %dx%d",
			s.cfg.Size, width, height,
		)
	}

	var bar *progressbar.ProgressBar
	if s.progress {
		bar = progressbar.Default(int64(s.cfg.Count), "sampling")
	}

	maxX := width - s.cfg.Size
	maxY := height - s.cfg.Size
	for i := 0; i < s.cfg.Count; i++ {
		x := s.rng.Intn(maxX + 1)
		y := s.rng.Intn(maxY + 1)
		if err := s.one(i, x, y); err != nil {
			return err
		}
		s.log.Debug("patch written",
			zap.Int("index", i), zap.Int("x", x), zap.Int("y", y))
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return s.sink.Close()
}

func (s *Sampler) one(index, x, y int) error {
	reg, err := s.src.Fetch(x, y, s.cfg.Size)
	if err != nil {
		return fmt.Errorf("fetch %dx%d region at (%d, %d) err, %w",
			s.cfg.Size, s.cfg.Size, x, y, err)
	}
	defer reg.Close()

	data, err := reg.Encode(s.cfg.Format, s.cfg.Quality)
	if err != nil {
		return fmt.Errorf("encode patch %d as %s err, %w", index, s.cfg.Format, err)
	}
	name := FileName(index, x, y, s.cfg.Format)
	if err := s.sink.Put(name, data); err != nil {
		return fmt.Errorf("write patch %q err, %w", name, err)
	}
	return nil
}
