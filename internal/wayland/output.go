package wayland

import (
	"fmt"

	"github.com/bnema/wdotool/internal/logger"
	"github.com/bnema/wdotool/internal/wire"
)

const (
	outputRelease = 0

	outputEventGeometry    = 0
	outputEventMode        = 1
	outputEventDone        = 2
	outputEventScale       = 3
	outputEventName        = 4
	outputEventDescription = 5

	// OutputModeCurrent flags the mode the output is using.
	OutputModeCurrent = 0x1

	// OutputMaxVersion is the highest wl_output version the client handles.
	OutputMaxVersion = 4
)

// Output is a bound wl_output and the properties the compositor reported
// for it. Outputs bound below version 4 get a name derived from their
// global name.
type Output struct {
	ID         uint32
	GlobalName uint32
	Version    uint32

	Name        string
	Description string
	Make        string
	Model       string

	X, Y           int32
	PhysicalWidth  int32
	PhysicalHeight int32
	Subpixel       int32
	Transform      int32
	Scale          int32

	Width   int32
	Height  int32
	Refresh int32

	conn *Conn
	done bool
	lost bool
}

// BindOutput binds an output global.
func BindOutput(r *Registry, g Global) (*Output, error) {
	o := &Output{
		GlobalName: g.Name,
		Version:    min(g.Version, OutputMaxVersion),
		Name:       fmt.Sprintf("output-%d", g.Name),
		Scale:      1,
		conn:       r.conn,
	}
	id, err := r.Bind(g, o.Version, o)
	if err != nil {
		return nil, err
	}
	o.ID = id
	return o, nil
}

func (o *Output) HandleEvent(d *wire.Decoder) error {
	switch d.Opcode() {
	case outputEventGeometry:
		x, y := d.ReadInt(), d.ReadInt()
		pw, ph := d.ReadInt(), d.ReadInt()
		subpixel := d.ReadInt()
		manufacturer, model := d.ReadString(), d.ReadString()
		transform := d.ReadInt()
		if err := d.Err(); err != nil {
			return err
		}
		if o.done && transform != o.Transform {
			o.markLost("transform changed")
		}
		o.X, o.Y = x, y
		o.PhysicalWidth, o.PhysicalHeight = pw, ph
		o.Subpixel = subpixel
		o.Make, o.Model = manufacturer, model
		o.Transform = transform
	case outputEventMode:
		flags := d.ReadUint()
		w, h, refresh := d.ReadInt(), d.ReadInt(), d.ReadInt()
		if err := d.Err(); err != nil {
			return err
		}
		if flags&OutputModeCurrent == 0 {
			return nil
		}
		if o.done && (w != o.Width || h != o.Height) {
			o.markLost(fmt.Sprintf("mode changed from %dx%d to %dx%d", o.Width, o.Height, w, h))
		}
		o.Width, o.Height, o.Refresh = w, h, refresh
	case outputEventDone:
		o.done = true
	case outputEventScale:
		o.Scale = d.ReadInt()
	case outputEventName:
		o.Name = d.ReadString()
	case outputEventDescription:
		o.Description = d.ReadString()
	default:
		return wire.UnknownOpcode("wl_output", d.Header())
	}
	return nil
}

func (o *Output) markLost(reason string) {
	if !o.lost {
		logger.Warn("output no longer usable", "output", o.Name, "reason", reason)
	}
	o.lost = true
}

// Ready reports whether the initial burst of properties has arrived.
// Version 1 outputs have no done event and are ready once bound.
func (o *Output) Ready() bool {
	return o.Version < 2 || o.done
}

// Lost reports whether the output was removed, or reconfigured after its
// properties were first reported.
func (o *Output) Lost() bool { return o.lost }

// MarkRemoved flags the output after its global has been withdrawn.
func (o *Output) MarkRemoved() { o.markLost("global removed") }

// Release destroys the output object when the bound version allows it.
func (o *Output) Release() error {
	if o.Version < 3 {
		return nil
	}
	return o.conn.Send(o.ID, outputRelease)
}
