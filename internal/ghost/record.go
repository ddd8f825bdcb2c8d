package ghost

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/five82/ghostkeeper/internal/errs"
	"github.com/five82/ghostkeeper/internal/game"
)

// Tag is the element name of a serialized ghost.
const Tag = "GhostDataPair"

// Attribute names of a serialized ghost.
const (
	AttrMode     = "GameMode"
	AttrTrack    = "Track"
	AttrWeather  = "Weather"
	AttrTime     = "Time"
	AttrNickname = "Nickname"
	AttrSki      = "Ski"
	AttrTicket   = "Ticket"
)

// Record is one recorded race result. Records are never mutated after
// construction; replacing a ghost means deleting it and adding a new one.
type Record struct {
	cond     game.Condition
	time     int64
	nickname string
	ski      int
	ticket   bool
	payload  string
	el       *etree.Element
	raw      string
}

// Fields are the inputs for building a record from scratch.
type Fields struct {
	Condition game.Condition
	Time      int64
	Nickname  string
	Ski       int
	Ticket    bool
	Payload   string
}

// New builds a record from raw fields.
func New(f Fields) (*Record, error) {
	if strings.TrimSpace(f.Condition.Track) == "" {
		return nil, errs.MalformedRecord(AttrTrack, "is empty")
	}
	el := etree.NewElement(Tag)
	el.CreateAttr(AttrMode, strconv.Itoa(int(f.Condition.Mode)))
	el.CreateAttr(AttrTrack, f.Condition.Track)
	el.CreateAttr(AttrWeather, strconv.Itoa(int(f.Condition.Weather)))
	el.CreateAttr(AttrTime, strconv.FormatInt(f.Time, 10))
	el.CreateAttr(AttrNickname, f.Nickname)
	el.CreateAttr(AttrSki, strconv.Itoa(f.Ski))
	el.CreateAttr(AttrTicket, strconv.FormatBool(f.Ticket))
	if f.Payload != "" {
		el.SetText(f.Payload)
	}
	return FromElement(el)
}

// FromElement parses a GhostDataPair element. The element is copied; later
// changes to it do not affect the record.
func FromElement(el *etree.Element) (*Record, error) {
	if el == nil {
		return nil, errs.MalformedRecord("element", "is missing")
	}
	if el.Tag != Tag {
		return nil, errs.MalformedRecord("element", fmt.Sprintf("is <%s>, want <%s>", el.Tag, Tag))
	}

	mode, err := intAttr(el, AttrMode, true)
	if err != nil {
		return nil, err
	}
	track := strings.TrimSpace(el.SelectAttrValue(AttrTrack, ""))
	if track == "" {
		return nil, errs.MalformedRecord(AttrTrack, "is missing")
	}
	weather, err := intAttr(el, AttrWeather, true)
	if err != nil {
		return nil, err
	}
	timeAttr := el.SelectAttr(AttrTime)
	if timeAttr == nil {
		return nil, errs.MalformedRecord(AttrTime, "is missing")
	}
	t, err := strconv.ParseInt(strings.TrimSpace(timeAttr.Value), 10, 64)
	if err != nil {
		return nil, errs.MalformedRecord(AttrTime, "is not numeric").WithCause(err)
	}
	ski, err := intAttr(el, AttrSki, false)
	if err != nil {
		return nil, err
	}
	ticket := false
	if a := el.SelectAttr(AttrTicket); a != nil && strings.TrimSpace(a.Value) != "" {
		ticket, err = strconv.ParseBool(strings.TrimSpace(a.Value))
		if err != nil {
			return nil, errs.MalformedRecord(AttrTicket, "is not a boolean").WithCause(err)
		}
	}

	c := el.Copy()
	raw, err := serialize(c)
	if err != nil {
		return nil, err
	}
	return &Record{
		cond:     game.Condition{Mode: game.Mode(mode), Track: track, Weather: game.Weather(weather)},
		time:     t,
		nickname: el.SelectAttrValue(AttrNickname, ""),
		ski:      ski,
		ticket:   ticket,
		payload:  c.Text(),
		el:       c,
		raw:      raw,
	}, nil
}

// Parse parses a single serialized ghost.
func Parse(text string) (*Record, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, errs.MalformedRecord("document", "is not valid XML").WithCause(err)
	}
	return FromElement(doc.Root())
}

// ParseBatch returns every ghost found at any depth in an XML document, in
// document order.
func ParseBatch(text string) ([]*Record, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return nil, errs.Parse("ghost batch is not valid XML").WithCause(err)
	}
	var out []*Record
	if root := doc.Root(); root != nil && root.Tag == Tag {
		r, err := FromElement(root)
		if err != nil {
			return nil, err
		}
		return []*Record{r}, nil
	}
	for i, el := range doc.FindElements("//" + Tag) {
		r, err := FromElement(el)
		if err != nil {
			return nil, fmt.Errorf("ghost #%d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func intAttr(el *etree.Element, name string, required bool) (int, error) {
	a := el.SelectAttr(name)
	if a == nil || strings.TrimSpace(a.Value) == "" {
		if required {
			return 0, errs.MalformedRecord(name, "is missing")
		}
		return 0, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(a.Value))
	if err != nil {
		return 0, errs.MalformedRecord(name, "is not numeric").WithCause(err)
	}
	return v, nil
}

func serialize(el *etree.Element) (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	s, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("serialize ghost: %w", err)
	}
	return s, nil
}

// Condition returns the (mode, track, weather) the ghost was recorded under.
func (r *Record) Condition() game.Condition { return r.cond }

// Mode returns the game mode.
func (r *Record) Mode() game.Mode { return r.cond.Mode }

// Track returns the track id.
func (r *Record) Track() string { return r.cond.Track }

// Weather returns the weather.
func (r *Record) Weather() game.Weather { return r.cond.Weather }

// Time returns the result; milliseconds, or points for reverse modes.
func (r *Record) Time() int64 { return r.time }

// Nickname returns the nickname of the player who drove the ghost.
func (r *Record) Nickname() string { return r.nickname }

// Ski returns the ski id.
func (r *Record) Ski() int { return r.ski }

// HasTicket reports whether the ghost was recorded on a ticket attempt.
func (r *Record) HasTicket() bool { return r.ticket }

// Payload returns the opaque replay data.
func (r *Record) Payload() string { return r.payload }

// ToSerialized returns the canonical text form of the ghost. It is stable
// across re-parse.
func (r *Record) ToSerialized() string { return r.raw }

// Element returns a fresh copy of the ghost's element for insertion into a
// document.
func (r *Record) Element() *etree.Element { return r.el.Copy() }

// Result formats the ghost's time for display.
func (r *Record) Result(c *game.Catalog) string { return c.FormatResult(r.cond.Mode, r.time) }

func (r *Record) String() string {
	return fmt.Sprintf("%s %s time=%d ticket=%t", r.nickname, r.cond, r.time, r.ticket)
}
