package converter

import (
	"encoding/base64"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/slidecraft/slidecraft/internal/config"
	"github.com/slidecraft/slidecraft/internal/marker"
	"github.com/slidecraft/slidecraft/internal/staging"
)

// Packer partitions an ordered element sequence into slides with a single
// greedy forward pass, no lookahead or backtracking.
type Packer struct {
	logger *logrus.Logger
	store  *staging.Store
	limits config.Limits
	now    func() time.Time
}

// NewPacker creates a Packer materializing image handles from store at slide
// finalization time.
func NewPacker(logger *logrus.Logger, store *staging.Store, limits config.Limits) *Packer {
	return &Packer{logger: logger, store: store, limits: limits, now: time.Now}
}

// packState is the accumulator for the slide under construction, threaded
// explicitly through the pass.
type packState struct {
	elements   []Element
	textCount  int
	imageCount int
	pages      map[int]struct{}
}

func newPackState() packState {
	return packState{pages: make(map[int]struct{})}
}

func (s *packState) add(el Element) {
	s.elements = append(s.elements, el)
	s.pages[el.SourcePage] = struct{}{}
	if el.Kind == marker.KindImage {
		s.imageCount++
	} else if el.IsTextLike() {
		s.textCount++
	}
}

// Pack assigns elements to slides under the configured capacity rules. If the
// very first element of the whole sequence is a heading it is promoted to the
// document title before packing. Empty accumulators are never finalized, so
// no empty slides are ever emitted.
func (p *Packer) Pack(elements []Element) []Slide {
	slides := make([]Slide, 0)
	if len(elements) == 0 {
		return slides
	}

	els := slices.Clone(elements)
	if els[0].Kind == marker.KindHeading {
		els[0].Kind = marker.KindTitle
	}

	state := newPackState()
	for _, el := range els {
		if p.needsNewSlide(&state, el) && len(state.elements) > 0 {
			slides = append(slides, p.finalize(&state, len(slides)+1))
			state = newPackState()
		}
		state.add(el)
	}
	if len(state.elements) > 0 {
		slides = append(slides, p.finalize(&state, len(slides)+1))
	}
	return slides
}

// needsNewSlide decides, before appending, whether el overflows the current
// slide.
func (p *Packer) needsNewSlide(s *packState, el Element) bool {
	if el.Kind == marker.KindImage {
		if s.imageCount >= p.limits.MaxImagesPerSlide {
			return true
		}
		// First image on a slide that already carries too much text.
		if s.imageCount == 0 && s.textCount >= p.limits.MaxTextWithImages {
			return true
		}
		return false
	}
	if el.IsTextLike() {
		if s.textCount >= p.limits.MaxTextPerSlide {
			return true
		}
		if s.imageCount > 0 && s.textCount >= p.limits.MaxTextWithImages {
			return true
		}
	}
	return false
}

// finalize stamps the accumulated elements with their slide positions,
// materializes image payloads, and seals the slide. A materialization failure
// drops the image and keeps the element's text.
func (p *Packer) finalize(s *packState, slideNumber int) Slide {
	out := make([]SlideElement, 0, len(s.elements))
	for idx, el := range s.elements {
		se := SlideElement{
			ID:       el.ID,
			Type:     string(el.Kind),
			Content:  el.Text,
			Position: idx,
		}
		if el.Kind == marker.KindImage && el.Image != staging.NoHandle {
			data, err := p.store.Materialize(el.Image)
			if err != nil {
				p.logger.WithFields(logrus.Fields{
					"element": el.ID,
					"slide":   slideNumber,
				}).WithError(err).Warn("Failed to materialize image, emitting element without image data")
			} else {
				se.ImageData = base64.StdEncoding.EncodeToString(data)
			}
		}
		out = append(out, se)
	}

	pages := make([]int, 0, len(s.pages))
	for page := range s.pages {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	return Slide{
		ID:          uuid.New().String(),
		SlideNumber: slideNumber,
		Elements:    out,
		Metadata: SlideMetadata{
			SourcePageNumbers: pages,
			Timestamp:         p.now().UTC(),
		},
	}
}
