package dashboard

import (
	"cmp"
	"slices"
	"strconv"
	"time"

	"github.com/gpuhot/gpuhot/internal/conn"
	"github.com/gpuhot/gpuhot/internal/telemetry"
)

// Card is the display state of one GPU.
type Card struct {
	Key     string
	Node    string
	LocalID string
	// Text is the snapshot the card's text was last rendered from. It lags
	// the newest snapshot by up to one throttle interval.
	Text   telemetry.Snapshot
	TextAt time.Time
	// Redraws counts chart redraws, one per flushed update.
	Redraws int
	// TextUpdates counts text refreshes.
	TextUpdates int
}

// Name returns the GPU's model name, or a label built from its key.
func (c *Card) Name() string {
	if name, ok := c.Text.Text(telemetry.MetricName); ok {
		return name
	}
	return "GPU " + c.LocalID
}

// Display caches what is on screen. It implements scheduler.Renderer; the
// model reads it when rebuilding the view. Every change bumps Version so
// the model only re-renders after a flush or a connection change.
type Display struct {
	cards    map[string]*Card
	order    []string
	system   *telemetry.SystemUpdate
	state    conn.State
	stateErr error
	version  uint64
	now      func() time.Time
}

// NewDisplay creates an empty display.
func NewDisplay() *Display {
	return &Display{
		cards: make(map[string]*Card),
		now:   time.Now,
	}
}

// RegisterEntity adds a card for a GPU seen for the first time.
func (d *Display) RegisterEntity(u telemetry.EntityUpdate) {
	if _, ok := d.cards[u.Key]; ok {
		return
	}
	d.cards[u.Key] = &Card{
		Key:     u.Key,
		Node:    u.Node,
		LocalID: u.LocalID,
		Text:    u.Snapshot,
		TextAt:  d.now(),
	}
	d.order = append(d.order, u.Key)
	slices.SortFunc(d.order, d.compare)
	d.version++
}

// RenderEntity redraws a card's charts and, when updateText is set, its
// text. Unknown GPUs are ignored.
func (d *Display) RenderEntity(u telemetry.EntityUpdate, updateText bool) error {
	c, ok := d.cards[u.Key]
	if !ok {
		return nil
	}
	c.Redraws++
	if updateText {
		c.Text = u.Snapshot
		c.TextAt = d.now()
		c.TextUpdates++
	}
	d.version++
	return nil
}

// RenderSystem replaces the system panel.
func (d *Display) RenderSystem(u telemetry.SystemUpdate) error {
	d.system = &u
	d.version++
	return nil
}

// RemoveEntity drops a GPU's card.
func (d *Display) RemoveEntity(key string) {
	if _, ok := d.cards[key]; !ok {
		return
	}
	delete(d.cards, key)
	d.order = slices.DeleteFunc(d.order, func(k string) bool { return k == key })
	d.version++
}

// ConnectionStateChanged records the connection state for the status line.
func (d *Display) ConnectionStateChanged(_, to conn.State, err error) {
	d.state = to
	d.stateErr = err
	d.version++
}

// Version changes whenever the display changes.
func (d *Display) Version() uint64 { return d.version }

// Card returns the card for key.
func (d *Display) Card(key string) (*Card, bool) {
	c, ok := d.cards[key]
	return c, ok
}

// Keys returns GPU keys in display order: by node, then by numeric id.
func (d *Display) Keys() []string { return d.order }

// Len returns the number of cards.
func (d *Display) Len() int { return len(d.order) }

// System returns the latest system update, if any.
func (d *Display) System() *telemetry.SystemUpdate { return d.system }

// State returns the connection state and, for GivenUp, the reason.
func (d *Display) State() (conn.State, error) { return d.state, d.stateErr }

// Nodes returns the distinct node names in display order.
func (d *Display) Nodes() []string {
	var nodes []string
	for _, key := range d.order {
		node := d.cards[key].Node
		if len(nodes) == 0 || nodes[len(nodes)-1] != node {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func (d *Display) compare(a, b string) int {
	ca, cb := d.cards[a], d.cards[b]
	if c := cmp.Compare(ca.Node, cb.Node); c != 0 {
		return c
	}
	ia, errA := strconv.Atoi(ca.LocalID)
	ib, errB := strconv.Atoi(cb.LocalID)
	if errA == nil && errB == nil {
		return cmp.Compare(ia, ib)
	}
	return cmp.Compare(ca.LocalID, cb.LocalID)
}
