package wayland

import (
	"errors"
	"slices"

	"github.com/bnema/wdotool/internal/logger"
	"github.com/bnema/wdotool/internal/wire"
)

const (
	registryBind = 0

	registryEventGlobal       = 0
	registryEventGlobalRemove = 1
)

// Global is a compositor global advertised through wl_registry.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Requirement is a global the client cannot work without. Bind at
// Version(g) to stay within what the client implements.
type Requirement struct {
	Interface  string
	MinVersion uint32
	MaxVersion uint32
}

// Version returns the version to bind g at.
func (r Requirement) Version(g Global) uint32 {
	if r.MaxVersion != 0 && g.Version > r.MaxVersion {
		return r.MaxVersion
	}
	return g.Version
}

// Registry tracks the globals advertised by the compositor, in
// advertisement order.
type Registry struct {
	conn    *Conn
	id      uint32
	globals []Global

	// OnRemove is called after a global has been withdrawn.
	OnRemove func(g Global)
}

// GetRegistry creates the registry and waits until the initial burst of
// globals has arrived.
func GetRegistry(c *Conn) (*Registry, error) {
	r := &Registry{conn: c, id: c.NewID()}
	c.Register(r.id, "wl_registry", r)

	if err := c.Send(DisplayID, displayGetRegistry, wire.NewID(r.id)); err != nil {
		return nil, err
	}
	if err := c.RoundTrip(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) HandleEvent(d *wire.Decoder) error {
	switch d.Opcode() {
	case registryEventGlobal:
		g := Global{Name: d.ReadUint(), Interface: d.ReadString(), Version: d.ReadUint()}
		if err := d.Err(); err != nil {
			return err
		}
		logger.Debug("global advertised", "name", g.Name, "interface", g.Interface, "version", g.Version)
		r.globals = append(r.globals, g)
	case registryEventGlobalRemove:
		name := d.ReadUint()
		if err := d.Err(); err != nil {
			return err
		}
		i := slices.IndexFunc(r.globals, func(g Global) bool { return g.Name == name })
		if i < 0 {
			return nil
		}
		g := r.globals[i]
		r.globals = slices.Delete(r.globals, i, i+1)
		logger.Debug("global removed", "name", g.Name, "interface", g.Interface)
		if r.OnRemove != nil {
			r.OnRemove(g)
		}
	default:
		return wire.UnknownOpcode("wl_registry", d.Header())
	}
	return nil
}

// Conn returns the connection the registry belongs to.
func (r *Registry) Conn() *Conn { return r.conn }

// Globals returns a copy of the advertised globals.
func (r *Registry) Globals() []Global {
	return slices.Clone(r.globals)
}

// Find returns the first global implementing iface.
func (r *Registry) Find(iface string) (Global, bool) {
	for _, g := range r.globals {
		if g.Interface == iface {
			return g, true
		}
	}
	return Global{}, false
}

// FindAll returns every global implementing iface.
func (r *Registry) FindAll(iface string) []Global {
	var out []Global
	for _, g := range r.globals {
		if g.Interface == iface {
			out = append(out, g)
		}
	}
	return out
}

// Require looks up every requirement. Each missing or outdated global is
// reported as an UnsupportedError; all of them are joined in the result.
func (r *Registry) Require(reqs ...Requirement) (map[string]Global, error) {
	found := make(map[string]Global, len(reqs))
	var errs []error
	for _, req := range reqs {
		g, ok := r.Find(req.Interface)
		switch {
		case !ok:
			errs = append(errs, &UnsupportedError{Interface: req.Interface, Want: req.MinVersion})
		case g.Version < req.MinVersion:
			errs = append(errs, &UnsupportedError{Interface: req.Interface, Want: req.MinVersion, Got: g.Version})
		default:
			found[req.Interface] = g
		}
	}
	return found, errors.Join(errs...)
}

// Bind binds g at version and routes its events to h.
func (r *Registry) Bind(g Global, version uint32, h EventHandler) (uint32, error) {
	if version > g.Version {
		version = g.Version
	}
	id := r.conn.NewID()
	r.conn.Register(id, g.Interface, h)
	if err := r.conn.Send(r.id, registryBind, g.Name, g.Interface, version, wire.NewID(id)); err != nil {
		r.conn.Unregister(id)
		return 0, err
	}
	logger.Debug("bound global", "interface", g.Interface, "version", version, "id", id)
	return id, nil
}
