package scene

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/net/html"

	imbuierrors "github.com/conneroisu/imbui/internal/errors"
	"github.com/conneroisu/imbui/internal/logging"
	"github.com/conneroisu/imbui/pkg/cast"
	"github.com/conneroisu/imbui/pkg/dom"
)

// Stats counts what rendering one frame did to the container.
type Stats struct {
	ChildList     int `json:"child_list"`
	Attributes    int `json:"attributes"`
	CharacterData int `json:"character_data"`
	Disposed      int `json:"disposed"`
	Listeners     int `json:"listeners_invoked"`
}

// Mutations returns the total number of DOM mutations.
func (s Stats) Mutations() int { return s.ChildList + s.Attributes + s.CharacterData }

// FrameResult is the outcome of rendering one frame.
type FrameResult struct {
	Index int    `json:"index"`
	HTML  string `json:"html"`
	Stats Stats  `json:"stats"`
}

// Text renders the result as one human-readable block.
func (r FrameResult) Text() string {
	return fmt.Sprintf("-- frame %d (%d mutations, %d disposed)\n%s\n",
		r.Index, r.Stats.Mutations(), r.Stats.Disposed, r.HTML)
}

// JSON encodes the result on one line.
func (r FrameResult) JSON() ([]byte, error) { return json.Marshal(r) }

// Player renders a scene's frames into one container with a runtime of its
// own. A player is not safe for concurrent use.
type Player struct {
	scene     *Scene
	rt        *cast.Runtime
	container *html.Node
	logger    logging.Logger
	disposed  int
}

// NewPlayer returns a player for s. logger may be nil.
func NewPlayer(s *Scene, logger logging.Logger) *Player {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	p := &Player{scene: s, logger: logger.WithComponent("scene")}
	p.rt = cast.NewRuntime(
		cast.WithLogger(logger),
		cast.WithDisposeHook(func(*cast.Instance) { p.disposed++ }),
	)
	p.container = p.rt.Document().CreateElement("main")
	return p
}

// Runtime returns the player's runtime.
func (p *Player) Runtime() *cast.Runtime { return p.rt }

// Container returns the element frames are rendered into.
func (p *Player) Container() *html.Node { return p.container }

// Scene returns the scene being played.
func (p *Player) Scene() *Scene { return p.scene }

// Step renders frame i over whatever the container currently shows and fires
// the frame's dispatches.
func (p *Player) Step(ctx context.Context, i int) (FrameResult, error) {
	if i < 0 || i >= len(p.scene.Frames) {
		return FrameResult{}, imbuierrors.NewSceneError(imbuierrors.ErrCodeFrameOutOfRange,
			fmt.Sprintf("frame %d out of range [0, %d)", i, len(p.scene.Frames)), nil)
	}
	if err := ctx.Err(); err != nil {
		return FrameResult{}, err
	}

	frame := p.scene.Frames[i]
	doc := p.rt.Document()
	p.disposed = 0

	rec := doc.Record()
	err := p.rt.Render(p.scene.Root.With(frame.Values...), p.container, nil)
	rec.Stop()
	if err != nil {
		return FrameResult{}, fmt.Errorf("rendering frame %d: %w", i, err)
	}

	stats := Stats{
		ChildList:     rec.Count(dom.ChildList),
		Attributes:    rec.Count(dom.Attributes),
		CharacterData: rec.Count(dom.CharacterData),
		Disposed:      p.disposed,
	}

	for _, d := range frame.Dispatch {
		matches := dom.QuerySelectorAll(p.container, d.Tag)
		if d.Index < 0 || d.Index >= len(matches) {
			p.logger.Warn(ctx, imbuierrors.NewValidationError(imbuierrors.ErrCodeInvalidValue, "dispatch target not found"),
				"skipping dispatch", "frame", i, "tag", d.Tag, "index", d.Index)
			continue
		}
		stats.Listeners += doc.Dispatch(matches[d.Index], &dom.Event{Type: d.Type})
	}

	p.logger.Debug(ctx, "frame rendered", "frame", i, "mutations", stats.Mutations(), "disposed", stats.Disposed)
	return FrameResult{Index: i, HTML: dom.InnerHTML(p.container), Stats: stats}, nil
}

// Play renders every frame in order, calling fn after each. Failures of
// individual frames are collected; playback stops early only when ctx is
// done or fn returns an error.
func (p *Player) Play(ctx context.Context, fn func(FrameResult) error) error {
	errs := imbuierrors.NewCollector()
	for i := range p.scene.Frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := p.Step(ctx, i)
		if err != nil {
			errs.Add(err)
			continue
		}
		if fn != nil {
			if err := fn(res); err != nil {
				return err
			}
		}
	}
	return errs.Err()
}

// Reset unmounts the container and zeroes listener counts.
func (p *Player) Reset() {
	p.rt.Unmount(p.container)
	p.scene.ResetCounters()
}
